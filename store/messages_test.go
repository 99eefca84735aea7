package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signage-console/entities"
)

func TestUpsertAppendsInArrivalOrder(t *testing.T) {
	s := NewMessageStore()
	s.Upsert(entities.ChatMessage{ID: "m1", ConversationID: "c1", Content: "hola"})
	s.Upsert(entities.ChatMessage{ID: "m2", ConversationID: "c1", Content: "que tal"})

	msgs := s.Messages("c1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
}

// The round-trip of an optimistic send: the local entry is created in
// "sending", the server echo arrives with the same id, and the result is
// exactly one entry, in state "sent".
func TestEchoMergesIntoOptimisticEntry(t *testing.T) {
	s := NewMessageStore()
	s.Upsert(entities.ChatMessage{
		ID:             "m1",
		ConversationID: "c1",
		Content:        "hola",
		Delivery:       entities.DeliverySending,
	})

	s.Upsert(entities.ChatMessage{
		ID:             "m1",
		ConversationID: "c1",
		Content:        "hola",
		SenderName:     "Console",
		Timestamp:      "2026-08-29T10:00:00Z",
		Delivery:       entities.DeliverySent,
	})

	msgs := s.Messages("c1")
	require.Len(t, msgs, 1)
	assert.Equal(t, entities.DeliverySent, msgs[0].Delivery)
	assert.Equal(t, "Console", msgs[0].SenderName)
	assert.Equal(t, "2026-08-29T10:00:00Z", msgs[0].Timestamp)
}

func TestUpsertIsIdempotentForHistoryReplay(t *testing.T) {
	s := NewMessageStore()
	msg := entities.ChatMessage{ID: "m1", ConversationID: "c1", Content: "hola", Delivery: entities.DeliverySent}

	s.Upsert(msg)
	s.Upsert(msg)
	s.Upsert(msg)

	assert.Len(t, s.Messages("c1"), 1)
}

func TestSetDelivery(t *testing.T) {
	s := NewMessageStore()
	s.Upsert(entities.ChatMessage{ID: "m1", ConversationID: "c1", Delivery: entities.DeliverySending})

	s.SetDelivery("c1", "m1", entities.DeliveryError)
	m, ok := s.Get("c1", "m1")
	require.True(t, ok)
	assert.Equal(t, entities.DeliveryError, m.Delivery)

	// unknown ids are ignored
	s.SetDelivery("c1", "missing", entities.DeliverySent)
}

func TestMarkReadFlagsUpToMessage(t *testing.T) {
	s := NewMessageStore()
	s.Upsert(entities.ChatMessage{ID: "m1", ConversationID: "c1"})
	s.Upsert(entities.ChatMessage{ID: "m2", ConversationID: "c1"})
	s.Upsert(entities.ChatMessage{ID: "m3", ConversationID: "c1"})

	events, cancel := s.Subscribe()
	defer cancel()

	s.MarkRead("c1", "m2")

	msgs := s.Messages("c1")
	assert.True(t, msgs[0].Read)
	assert.True(t, msgs[1].Read)
	assert.False(t, msgs[2].Read)

	// read receipts are pushed, not poll-only
	ev := <-events
	assert.Equal(t, "read", ev.Type)
	assert.Equal(t, "c1", ev.ConversationID)
	assert.Equal(t, "m2", ev.Message.ID)
}

// The same message id living in two conversations must stay addressable
// in both; the index is scoped per conversation.
func TestSameMessageIDAcrossConversations(t *testing.T) {
	s := NewMessageStore()
	s.Upsert(entities.ChatMessage{ID: "m1", ConversationID: "c1", Content: "uno", Delivery: entities.DeliverySending})
	s.Upsert(entities.ChatMessage{ID: "m1", ConversationID: "c2", Content: "dos", Delivery: entities.DeliverySending})

	s.SetDelivery("c1", "m1", entities.DeliverySent)
	a, ok := s.Get("c1", "m1")
	require.True(t, ok)
	assert.Equal(t, "uno", a.Content)
	assert.Equal(t, entities.DeliverySent, a.Delivery)

	b, ok := s.Get("c2", "m1")
	require.True(t, ok)
	assert.Equal(t, "dos", b.Content)
	assert.Equal(t, entities.DeliverySending, b.Delivery)

	s.MarkRead("c1", "m1")
	a, _ = s.Get("c1", "m1")
	b, _ = s.Get("c2", "m1")
	assert.True(t, a.Read)
	assert.False(t, b.Read)
}

func TestCloseMarksConversation(t *testing.T) {
	s := NewMessageStore()
	events, cancel := s.Subscribe()
	defer cancel()

	assert.False(t, s.Closed("c1"))
	s.Close("c1")
	assert.True(t, s.Closed("c1"))

	ev := <-events
	assert.Equal(t, "closed", ev.Type)
	assert.Equal(t, "c1", ev.ConversationID)
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := NewMessageStore()
	s.Upsert(entities.ChatMessage{ID: "m1", ConversationID: "c1", Content: "hola"})

	msgs := s.Messages("c1")
	msgs[0].Content = "mutated"

	again := s.Messages("c1")
	assert.Equal(t, "hola", again[0].Content)
}
