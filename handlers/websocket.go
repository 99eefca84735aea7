package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"signage-console/store"
	"signage-console/ws"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// uiEvent is the envelope pushed to attached console UI clients.
type uiEvent struct {
	Tipo string      `json:"tipo"`
	Data interface{} `json:"data"`
}

// WSHandler fans store events out to console UI clients.
type WSHandler struct {
	mgr *ws.Manager
	log zerolog.Logger
}

func NewWSHandler(mgr *ws.Manager, log zerolog.Logger) *WSHandler {
	return &WSHandler{mgr: mgr, log: log.With().Str("component", "console-ws").Logger()}
}

// Run pumps device and message store events to attached clients until both
// streams close. Cancelling an individual UI subscription detaches only
// that client; the backend sockets stay untouched.
func (h *WSHandler) Run(devices *store.DeviceStore, messages *store.MessageStore) {
	devCh, _ := devices.Subscribe()
	msgCh, _ := messages.Subscribe()
	go func() {
		for {
			select {
			case ev, ok := <-devCh:
				if !ok {
					return
				}
				h.push("dispositivo", ev)
			case ev, ok := <-msgCh:
				if !ok {
					return
				}
				h.push("chat", ev)
			}
		}
	}()
}

func (h *WSHandler) push(tipo string, data interface{}) {
	b, err := json.Marshal(uiEvent{Tipo: tipo, Data: data})
	if err != nil {
		return
	}
	h.mgr.Broadcast(b)
}

// HandleConsoleWS upgrades a UI client and keeps it attached until it
// hangs up. GET /ws
func (h *WSHandler) HandleConsoleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	clientID := uuid.New().String()
	h.mgr.Register(clientID, conn)
	h.log.Info().Str("client", clientID).Msg("console client attached")

	defer func() {
		h.mgr.Unregister(clientID)
		h.log.Info().Str("client", clientID).Msg("console client detached")
	}()

	// UI sockets are push-only; the read loop just notices the hangup.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
