package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"signage-console/entities"
)

// DefaultWindow is how long a typing signal stays valid without a refresh.
const DefaultWindow = 2 * time.Second

// SignalFunc publishes a local typing signal for a conversation.
type SignalFunc func(conversationID string, kind entities.PresenceKind) error

// Tracker keeps the ephemeral per-conversation set of currently-typing
// users. Remote signals land in a time-indexed expiring map so a lost
// dejo_de_escribir still clears locally; local typing re-arms a timer that
// publishes the stop signal when the user goes quiet.
type Tracker struct {
	signal SignalFunc
	window time.Duration
	now    func() time.Time
	log    zerolog.Logger

	mu     sync.Mutex
	typers map[string]map[string]time.Time // conversationID -> userID -> expiry
	timers map[string]*time.Timer          // conversationID -> local stop timer
}

func NewTracker(signal SignalFunc, window time.Duration, log zerolog.Logger) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{
		signal: signal,
		window: window,
		now:    time.Now,
		log:    log,
		typers: make(map[string]map[string]time.Time),
		timers: make(map[string]*time.Timer),
	}
}

// NotifyTyping publishes escribiendo and arms the local stop timer. Each
// call pushes the timer out by the full window.
func (t *Tracker) NotifyTyping(conversationID string) {
	if err := t.signal(conversationID, entities.PresenceTyping); err != nil {
		t.log.Warn().Err(err).Str("conversation", conversationID).
			Msg("typing signal not delivered")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[conversationID]; ok {
		timer.Reset(t.window)
		return
	}
	t.timers[conversationID] = time.AfterFunc(t.window, func() {
		t.mu.Lock()
		delete(t.timers, conversationID)
		t.mu.Unlock()
		if err := t.signal(conversationID, entities.PresenceStopped); err != nil {
			t.log.Warn().Err(err).Str("conversation", conversationID).
				Msg("stop-typing signal not delivered")
		}
	})
}

// HandleRemote folds an inbound presence frame into the typing set.
func (t *Tracker) HandleRemote(sig entities.PresenceSignal) {
	if sig.ConversationID == "" || sig.UserID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	switch sig.Kind {
	case entities.PresenceTyping:
		conv := t.typers[sig.ConversationID]
		if conv == nil {
			conv = make(map[string]time.Time)
			t.typers[sig.ConversationID] = conv
		}
		conv[sig.UserID] = t.now().Add(t.window)
	case entities.PresenceStopped:
		delete(t.typers[sig.ConversationID], sig.UserID)
	}
}

// Typers returns the user ids currently typing in a conversation. Expired
// entries are swept on the way out.
func (t *Tracker) Typers(conversationID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	conv := t.typers[conversationID]
	if len(conv) == 0 {
		return nil
	}
	now := t.now()
	out := make([]string, 0, len(conv))
	for userID, expiry := range conv {
		if now.After(expiry) {
			delete(conv, userID)
			continue
		}
		out = append(out, userID)
	}
	sort.Strings(out)
	return out
}

// Sweep drops every expired entry. Typers already sweeps lazily; this
// keeps idle conversations from holding stale ids.
func (t *Tracker) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for convID, conv := range t.typers {
		for userID, expiry := range conv {
			if now.After(expiry) {
				delete(conv, userID)
			}
		}
		if len(conv) == 0 {
			delete(t.typers, convID)
		}
	}
}

// StartSweeper sweeps on a fixed interval until stop is called.
func (t *Tracker) StartSweeper(interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				t.Sweep()
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

// SetNow overrides the clock, for tests.
func (t *Tracker) SetNow(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}
