package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsServer accepts websocket clients and hands the server side of each
// connection to the test.
type wsServer struct {
	*httptest.Server
	conns chan *websocket.Conn
	dials atomic.Int32
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	upgrader := websocket.Upgrader{}
	s := &wsServer{conns: make(chan *websocket.Conn, 8)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.dials.Add(1)
		s.conns <- conn
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *wsServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-s.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no client connected")
		return nil
	}
}

func waitForState(t *testing.T, ch *Channel, want ConnectionState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ch.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, have %s", want, ch.State())
}

func newTestChannel(url string, policy ReconnectPolicy, d *Dispatcher) *Channel {
	if d == nil {
		d = NewDispatcher(zerolog.Nop())
	}
	return NewChannel(ChannelConfig{
		Name:       "test",
		URL:        url,
		Policy:     policy,
		Dispatcher: d,
		Logger:     zerolog.Nop(),
	})
}

func TestChannelConnectsAndDispatchesFrames(t *testing.T) {
	s := newWSServer(t)

	dispatcher := NewDispatcher(zerolog.Nop())
	frames := make(chan string, 1)
	dispatcher.Register("alerta", func(raw json.RawMessage) {
		frames <- string(raw)
	})

	ch := newTestChannel(s.wsURL(), FixedPolicy{Interval: 10 * time.Millisecond}, dispatcher)
	defer ch.Disconnect()

	ch.Connect()
	waitForState(t, ch, StateConnected)

	server := s.accept(t)
	require.NoError(t, server.WriteMessage(websocket.TextMessage,
		[]byte(`{"tipo":"alerta","nivel":"critico"}`)))

	select {
	case frame := <-frames:
		assert.Contains(t, frame, "critico")
	case <-time.After(2 * time.Second):
		t.Fatal("frame never dispatched")
	}
}

func TestChannelReconnectsAfterServerDrop(t *testing.T) {
	s := newWSServer(t)

	ch := newTestChannel(s.wsURL(), FixedPolicy{Interval: 10 * time.Millisecond}, nil)
	defer ch.Disconnect()

	ch.Connect()
	waitForState(t, ch, StateConnected)
	first := s.accept(t)

	states, cancel := ch.States()
	defer cancel()

	first.Close()

	// reconnecting must be observed before the channel comes back
	sawReconnecting := false
	deadline := time.After(2 * time.Second)
	for !sawReconnecting {
		select {
		case st := <-states:
			if st == StateReconnecting {
				sawReconnecting = true
			}
		case <-deadline:
			t.Fatal("never saw reconnecting state")
		}
	}

	s.accept(t)
	waitForState(t, ch, StateConnected)
	assert.GreaterOrEqual(t, s.dials.Load(), int32(2))
}

func TestDisconnectCancelsScheduledRetry(t *testing.T) {
	s := newWSServer(t)

	// An hour-long retry interval: if cancellation fails, the test cannot
	// catch it by timing, so we count dials instead.
	ch := newTestChannel(s.wsURL(), FixedPolicy{Interval: time.Hour}, nil)

	ch.Connect()
	waitForState(t, ch, StateConnected)
	server := s.accept(t)

	server.Close()
	waitForState(t, ch, StateReconnecting)

	ch.Disconnect()
	assert.Equal(t, StateDisconnected, ch.State())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateDisconnected, ch.State())
	assert.Equal(t, int32(1), s.dials.Load(), "cancelled retry must not dial")
}

func TestBoundedPolicyReachesTerminalDisconnected(t *testing.T) {
	// Nothing listens here; every dial fails fast.
	ch := newTestChannel("ws://127.0.0.1:1", BackoffPolicy{
		Base:        time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		MaxAttempts: 2,
	}, nil)

	states, cancel := ch.States()
	defer cancel()
	<-states // initial disconnected

	ch.Connect()

	var seen []ConnectionState
	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-states:
			seen = append(seen, st)
			if st == StateDisconnected {
				assert.Contains(t, seen, StateConnecting)
				assert.Contains(t, seen, StateReconnecting)
				return
			}
		case <-deadline:
			t.Fatalf("never reached terminal disconnected, saw %v", seen)
		}
	}
}

func TestPublishRequiresConnection(t *testing.T) {
	ch := newTestChannel("ws://127.0.0.1:1", FixedPolicy{Interval: time.Hour}, nil)
	err := ch.Publish([]byte(`{"tipo":"publicar"}`))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestPublishReachesServer(t *testing.T) {
	s := newWSServer(t)

	ch := newTestChannel(s.wsURL(), FixedPolicy{Interval: 10 * time.Millisecond}, nil)
	defer ch.Disconnect()

	ch.Connect()
	waitForState(t, ch, StateConnected)
	server := s.accept(t)

	require.NoError(t, ch.Publish([]byte(`{"tipo":"publicar","destino":"/tema/chat/c1"}`)))

	server.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := server.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), "/tema/chat/c1")
}

// Publish writes happen on the event loop, so each one carries a write
// deadline: a peer that stops draining fails the publish instead of
// wedging state handling. An already-expired deadline forces the error
// path deterministically.
func TestPublishFailsOnExpiredWriteDeadline(t *testing.T) {
	s := newWSServer(t)

	ch := NewChannel(ChannelConfig{
		Name:         "test",
		URL:          s.wsURL(),
		Policy:       FixedPolicy{Interval: time.Hour},
		Dispatcher:   NewDispatcher(zerolog.Nop()),
		Logger:       zerolog.Nop(),
		WriteTimeout: -time.Second,
	})
	defer ch.Disconnect()

	ch.Connect()
	waitForState(t, ch, StateConnected)
	s.accept(t)

	err := ch.Publish([]byte(`{"tipo":"publicar"}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotConnected)

	// the loop keeps serving state queries afterwards
	assert.Equal(t, StateConnected, ch.State())
}

func TestConnectIsIdempotentWhileConnected(t *testing.T) {
	s := newWSServer(t)

	ch := newTestChannel(s.wsURL(), FixedPolicy{Interval: 10 * time.Millisecond}, nil)
	defer ch.Disconnect()

	ch.Connect()
	waitForState(t, ch, StateConnected)
	s.accept(t)

	ch.Connect()
	ch.Connect()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, StateConnected, ch.State())
	assert.Equal(t, int32(1), s.dials.Load())
}
