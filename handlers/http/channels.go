package httpHandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"signage-console/realtime"
)

// ChannelHandler reports and controls the realtime channel lifecycles.
type ChannelHandler struct {
	channels map[string]*realtime.Channel
}

func NewChannelHandler(channels map[string]*realtime.Channel) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

// GET /api/v1/channels
func (h *ChannelHandler) States(c *gin.Context) {
	out := make(map[string]string, len(h.channels))
	for name, ch := range h.channels {
		out[name] = ch.State().String()
	}
	c.JSON(http.StatusOK, gin.H{"channels": out})
}

// POST /api/v1/channels/:name/connect
// Explicit user-triggered reconnection after a bounded policy gave up.
func (h *ChannelHandler) Connect(c *gin.Context) {
	ch, ok := h.channels[c.Param("name")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown channel"})
		return
	}
	ch.Connect()
	c.JSON(http.StatusOK, gin.H{"status": "connecting"})
}

// POST /api/v1/channels/:name/disconnect
func (h *ChannelHandler) Disconnect(c *gin.Context) {
	ch, ok := h.channels[c.Param("name")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown channel"})
		return
	}
	ch.Disconnect()
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}
