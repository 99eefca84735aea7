package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signage-console/entities"
)

type signalRecorder struct {
	mu      sync.Mutex
	signals []entities.PresenceSignal
}

func (r *signalRecorder) record(conversationID string, kind entities.PresenceKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, entities.PresenceSignal{ConversationID: conversationID, Kind: kind})
	return nil
}

func (r *signalRecorder) all() []entities.PresenceSignal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.PresenceSignal, len(r.signals))
	copy(out, r.signals)
	return out
}

func TestRemoteTypingTracked(t *testing.T) {
	tr := NewTracker((&signalRecorder{}).record, 2*time.Second, zerolog.Nop())

	tr.HandleRemote(entities.PresenceSignal{ConversationID: "c1", UserID: "u1", Kind: entities.PresenceTyping})
	tr.HandleRemote(entities.PresenceSignal{ConversationID: "c1", UserID: "u2", Kind: entities.PresenceTyping})
	tr.HandleRemote(entities.PresenceSignal{ConversationID: "c2", UserID: "u3", Kind: entities.PresenceTyping})

	assert.Equal(t, []string{"u1", "u2"}, tr.Typers("c1"))
	assert.Equal(t, []string{"u3"}, tr.Typers("c2"))

	tr.HandleRemote(entities.PresenceSignal{ConversationID: "c1", UserID: "u1", Kind: entities.PresenceStopped})
	assert.Equal(t, []string{"u2"}, tr.Typers("c1"))
}

// A typing signal whose stop frame never arrives must expire on its own
// once the window passes.
func TestRemoteTypingExpiresWithoutStopSignal(t *testing.T) {
	tr := NewTracker((&signalRecorder{}).record, 2*time.Second, zerolog.Nop())

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	tr.SetNow(func() time.Time { return now })

	tr.HandleRemote(entities.PresenceSignal{ConversationID: "c1", UserID: "u1", Kind: entities.PresenceTyping})
	assert.Equal(t, []string{"u1"}, tr.Typers("c1"))

	now = now.Add(2*time.Second + time.Millisecond)
	assert.Empty(t, tr.Typers("c1"))
}

func TestRefreshExtendsExpiry(t *testing.T) {
	tr := NewTracker((&signalRecorder{}).record, 2*time.Second, zerolog.Nop())

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	tr.SetNow(func() time.Time { return now })

	tr.HandleRemote(entities.PresenceSignal{ConversationID: "c1", UserID: "u1", Kind: entities.PresenceTyping})
	now = now.Add(1500 * time.Millisecond)
	tr.HandleRemote(entities.PresenceSignal{ConversationID: "c1", UserID: "u1", Kind: entities.PresenceTyping})

	now = now.Add(1500 * time.Millisecond)
	assert.Equal(t, []string{"u1"}, tr.Typers("c1"), "refreshed signal is still live")

	now = now.Add(time.Second)
	assert.Empty(t, tr.Typers("c1"))
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	tr := NewTracker((&signalRecorder{}).record, 2*time.Second, zerolog.Nop())

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	tr.SetNow(func() time.Time { return now })

	tr.HandleRemote(entities.PresenceSignal{ConversationID: "c1", UserID: "u1", Kind: entities.PresenceTyping})
	now = now.Add(time.Minute)
	tr.Sweep()

	assert.Empty(t, tr.Typers("c1"))
}

// NotifyTyping publishes escribiendo immediately and dejo_de_escribir once
// the user goes quiet for the window.
func TestNotifyTypingPublishesStopAfterWindow(t *testing.T) {
	rec := &signalRecorder{}
	tr := NewTracker(rec.record, 30*time.Millisecond, zerolog.Nop())

	tr.NotifyTyping("c1")

	require.Eventually(t, func() bool {
		return len(rec.all()) == 2
	}, time.Second, 5*time.Millisecond)

	signals := rec.all()
	assert.Equal(t, entities.PresenceTyping, signals[0].Kind)
	assert.Equal(t, entities.PresenceStopped, signals[1].Kind)
	assert.Equal(t, "c1", signals[1].ConversationID)
}

func TestNotifyTypingRefreshHoldsStopBack(t *testing.T) {
	rec := &signalRecorder{}
	tr := NewTracker(rec.record, 50*time.Millisecond, zerolog.Nop())

	tr.NotifyTyping("c1")
	time.Sleep(30 * time.Millisecond)
	tr.NotifyTyping("c1") // re-arms the timer

	time.Sleep(30 * time.Millisecond)
	for _, sig := range rec.all() {
		assert.NotEqual(t, entities.PresenceStopped, sig.Kind,
			"stop must not fire while typing keeps refreshing")
	}

	require.Eventually(t, func() bool {
		signals := rec.all()
		return len(signals) > 0 && signals[len(signals)-1].Kind == entities.PresenceStopped
	}, time.Second, 5*time.Millisecond)
}
