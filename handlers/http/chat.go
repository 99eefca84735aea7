package httpHandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"signage-console/presence"
	"signage-console/store"
	"signage-console/usecases"
)

// ChatHandler exposes conversations to the console UI.
type ChatHandler struct {
	messages *store.MessageStore
	gateway  *usecases.ChatGateway
	tracker  *presence.Tracker
}

func NewChatHandler(messages *store.MessageStore, gateway *usecases.ChatGateway, tracker *presence.Tracker) *ChatHandler {
	return &ChatHandler{messages: messages, gateway: gateway, tracker: tracker}
}

// POST /api/v1/conversations/:id/open
func (h *ChatHandler) Open(c *gin.Context) {
	if err := h.gateway.Open(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "subscribed"})
}

// GET /api/v1/conversations/:id/messages
func (h *ChatHandler) Messages(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusOK, gin.H{
		"messages": h.messages.Messages(id),
		"closed":   h.messages.Closed(id),
	})
}

type sendRequest struct {
	Content string `json:"contenido"`
}

// POST /api/v1/conversations/:id/messages
func (h *ChatHandler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	msg, err := h.gateway.Send(c.Param("id"), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, usecases.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, usecases.ErrConversationClosed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			// The optimistic entry exists in state "error"; surface both.
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "message": msg})
		}
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": msg})
}

// POST /api/v1/conversations/:id/typing
func (h *ChatHandler) Typing(c *gin.Context) {
	h.tracker.NotifyTyping(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /api/v1/conversations/:id/typing
func (h *ChatHandler) Typers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"typing": h.tracker.Typers(c.Param("id"))})
}

type readRequest struct {
	MessageID string `json:"mensajeId"`
}

// POST /api/v1/conversations/:id/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	var req readRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MessageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mensajeId is required"})
		return
	}
	if err := h.gateway.MarkRead(c.Param("id"), req.MessageID); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// POST /api/v1/conversations/:id/close
func (h *ChatHandler) Close(c *gin.Context) {
	if err := h.gateway.Close(c.Param("id")); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "requested"})
}
