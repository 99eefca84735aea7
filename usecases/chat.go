package usecases

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"signage-console/entities"
	"signage-console/repositories"
	"signage-console/store"
)

// Publisher writes one frame to the chat channel.
type Publisher interface {
	Publish(payload []byte) error
}

// HistoryClient pages through persisted messages.
type HistoryClient interface {
	MessageHistory(ctx context.Context, chatID string, page, size int) ([]entities.ChatMessage, error)
}

// Outbound chat frames: a publish envelope addressed to a destination.
type publishFrame struct {
	Tipo    string                `json:"tipo"`
	Destino string                `json:"destino"`
	Message *entities.ChatMessage `json:"mensaje,omitempty"`
}

type subscribeFrame struct {
	Tipo    string `json:"tipo"`
	Destino string `json:"destino"`
}

// ChatGateway issues chat mutations over the socket. Sends are optimistic:
// the message lands in the store as "sending" before the frame leaves, and
// the server echo flips it to "sent" through the dispatcher.
type ChatGateway struct {
	channel    Publisher
	store      *store.MessageStore
	history    HistoryClient
	archive    repositories.MessageArchive // nil when no DB is configured
	pending    *PendingTable
	senderID   string
	senderName string
	pageSize   int
	log        zerolog.Logger
}

func NewChatGateway(channel Publisher, st *store.MessageStore, history HistoryClient, archive repositories.MessageArchive, pending *PendingTable, senderID, senderName string, log zerolog.Logger) *ChatGateway {
	return &ChatGateway{
		channel:    channel,
		store:      st,
		history:    history,
		archive:    archive,
		pending:    pending,
		senderID:   senderID,
		senderName: senderName,
		pageSize:   50,
		log:        log.With().Str("component", "chat").Logger(),
	}
}

// Open subscribes to a conversation's chat and presence topics and merges
// the persisted history into the store. Subscription happens first so no
// live frame is missed; the id-keyed merge makes the interleave safe.
func (g *ChatGateway) Open(ctx context.Context, conversationID string) error {
	for _, destino := range []string{
		"/tema/chat/" + conversationID,
		"/tema/presencia/" + conversationID,
	} {
		b, _ := json.Marshal(subscribeFrame{Tipo: "suscribir", Destino: destino})
		if err := g.channel.Publish(b); err != nil {
			return err
		}
	}
	return g.loadHistory(ctx, conversationID)
}

func (g *ChatGateway) loadHistory(ctx context.Context, conversationID string) error {
	for page := 0; ; page++ {
		msgs, err := g.history.MessageHistory(ctx, conversationID, page, g.pageSize)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			m.Delivery = entities.DeliverySent
			g.store.Upsert(m)
			if g.archive != nil {
				if err := g.archive.Save(&m); err != nil {
					g.log.Warn().Err(err).Str("message", m.ID).Msg("history page not archived")
				}
			}
		}
		if len(msgs) < g.pageSize {
			return nil
		}
	}
}

// Send creates a local ChatMessage in state "sending" and publishes it.
// Whitespace-only content is rejected before any frame is built. No
// acknowledgment moves the message out of "sending"; only the server echo
// carrying the same id does, via the dispatcher.
func (g *ChatGateway) Send(conversationID, content string) (entities.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return entities.ChatMessage{}, ErrEmptyMessage
	}
	if g.store.Closed(conversationID) {
		return entities.ChatMessage{}, ErrConversationClosed
	}

	msg := entities.ChatMessage{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       g.senderID,
		SenderName:     g.senderName,
		Content:        content,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Delivery:       entities.DeliverySending,
	}
	g.store.Upsert(msg)
	g.pending.Add(msg.ID)

	b, _ := json.Marshal(publishFrame{
		Tipo:    "publicar",
		Destino: "/aplicacion/chat/" + conversationID + "/mensaje",
		Message: &msg,
	})
	if err := g.channel.Publish(b); err != nil {
		g.store.SetDelivery(conversationID, msg.ID, entities.DeliveryError)
		g.pending.Fail(msg.ID)
		return msg, err
	}
	return msg, nil
}

// SignalTyping publishes a presence signal for the local user. The
// presence tracker drives this through its typing timer.
func (g *ChatGateway) SignalTyping(conversationID string, kind entities.PresenceKind) error {
	destino := "/aplicacion/chat/" + conversationID + "/escribiendo"
	if kind == entities.PresenceStopped {
		destino = "/aplicacion/chat/" + conversationID + "/dejo-de-escribir"
	}
	b, _ := json.Marshal(publishFrame{Tipo: "publicar", Destino: destino})
	return g.channel.Publish(b)
}

// MarkRead flags messages up to messageID as read locally and tells the
// server.
func (g *ChatGateway) MarkRead(conversationID, messageID string) error {
	g.store.MarkRead(conversationID, messageID)
	b, _ := json.Marshal(publishFrame{
		Tipo:    "publicar",
		Destino: "/aplicacion/chat/" + conversationID + "/marcar-leido",
		Message: &entities.ChatMessage{ID: messageID, ConversationID: conversationID},
	})
	return g.channel.Publish(b)
}

// Close asks the server to close the conversation. The store is only
// marked closed when the conversacion_cerrada frame comes back.
func (g *ChatGateway) Close(conversationID string) error {
	b, _ := json.Marshal(publishFrame{
		Tipo:    "publicar",
		Destino: "/aplicacion/chat/" + conversationID + "/cerrar",
	})
	return g.channel.Publish(b)
}
