package store

import (
	"sync"

	"signage-console/entities"
)

// MessageEvent notifies subscribers of a conversation change.
type MessageEvent struct {
	Type           string // "message" | "read" | "closed"
	ConversationID string
	Message        entities.ChatMessage
}

// MessageStore holds the per-conversation message lists. Entries are
// deduplicated by message id: an optimistic local entry and its server
// echo collapse into a single record, and replaying a history page over
// live traffic is harmless.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[string][]entities.ChatMessage // conversationID -> ordered
	index    map[string]map[string]int         // conversationID -> messageID -> position
	closed   map[string]bool

	subMu   sync.Mutex
	subs    map[int]chan MessageEvent
	nextSub int
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[string][]entities.ChatMessage),
		index:    make(map[string]map[string]int),
		closed:   make(map[string]bool),
		subs:     make(map[int]chan MessageEvent),
	}
}

// Upsert merges a message into its conversation by id. A new id is
// appended in arrival order; a known id is merged in place, with the
// incoming delivery state winning. This is what turns a server echo of an
// optimistic send into one "sent" entry instead of a duplicate.
func (s *MessageStore) Upsert(msg entities.ChatMessage) {
	if msg.ID == "" || msg.ConversationID == "" {
		return
	}
	s.mu.Lock()
	list := s.messages[msg.ConversationID]
	idx := s.index[msg.ConversationID]
	if idx == nil {
		idx = make(map[string]int)
		s.index[msg.ConversationID] = idx
	}
	if pos, ok := idx[msg.ID]; ok {
		cur := list[pos]
		if msg.Content != "" {
			cur.Content = msg.Content
		}
		if msg.Timestamp != "" {
			cur.Timestamp = msg.Timestamp
		}
		if msg.SenderName != "" {
			cur.SenderName = msg.SenderName
		}
		if msg.Delivery != "" {
			cur.Delivery = msg.Delivery
		}
		cur.Read = cur.Read || msg.Read
		list[pos] = cur
		msg = cur
	} else {
		idx[msg.ID] = len(list)
		list = append(list, msg)
		s.messages[msg.ConversationID] = list
	}
	s.mu.Unlock()
	s.notify(MessageEvent{Type: "message", ConversationID: msg.ConversationID, Message: msg})
}

// SetDelivery updates the delivery state of one message, if present.
func (s *MessageStore) SetDelivery(conversationID, messageID string, state entities.DeliveryState) {
	s.mu.Lock()
	list := s.messages[conversationID]
	pos, ok := s.index[conversationID][messageID]
	if !ok {
		s.mu.Unlock()
		return
	}
	list[pos].Delivery = state
	msg := list[pos]
	s.mu.Unlock()
	s.notify(MessageEvent{Type: "message", ConversationID: conversationID, Message: msg})
}

// MarkRead flags every message up to and including messageID as read and
// notifies subscribers, so pushed UI views see receipts without polling.
func (s *MessageStore) MarkRead(conversationID, messageID string) {
	s.mu.Lock()
	list := s.messages[conversationID]
	pos, ok := s.index[conversationID][messageID]
	if !ok {
		s.mu.Unlock()
		return
	}
	for i := 0; i <= pos; i++ {
		list[i].Read = true
	}
	boundary := list[pos]
	s.mu.Unlock()
	s.notify(MessageEvent{Type: "read", ConversationID: conversationID, Message: boundary})
}

// Close marks a conversation as closed by the server.
func (s *MessageStore) Close(conversationID string) {
	s.mu.Lock()
	s.closed[conversationID] = true
	s.mu.Unlock()
	s.notify(MessageEvent{Type: "closed", ConversationID: conversationID})
}

// Closed reports whether the server has closed the conversation.
func (s *MessageStore) Closed(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed[conversationID]
}

// Messages returns a copy of a conversation's message list in order.
func (s *MessageStore) Messages(conversationID string) []entities.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.messages[conversationID]
	out := make([]entities.ChatMessage, len(list))
	copy(out, list)
	return out
}

// Get returns one message by id within a conversation.
func (s *MessageStore) Get(conversationID, messageID string) (entities.ChatMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.messages[conversationID]
	pos, ok := s.index[conversationID][messageID]
	if !ok {
		return entities.ChatMessage{}, false
	}
	return list[pos], true
}

// Subscribe returns a stream of conversation events. Slow consumers lose
// events rather than blocking the dispatcher.
func (s *MessageStore) Subscribe() (<-chan MessageEvent, func()) {
	ch := make(chan MessageEvent, 64)
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *MessageStore) notify(ev MessageEvent) {
	s.subMu.Lock()
	for _, sub := range s.subs {
		select {
		case sub <- ev:
		default:
		}
	}
	s.subMu.Unlock()
}
