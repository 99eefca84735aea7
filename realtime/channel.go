package realtime

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrNotConnected is returned by Publish when the socket is down. Callers
// decide whether to surface or queue; the channel never retries a publish.
var ErrNotConnected = errors.New("realtime: channel not connected")

// Channel owns one persistent websocket to the backend and drives it
// through an explicit state machine: all socket lifecycle decisions happen
// on a single event loop, fed by the dialer, the reader goroutine, the
// retry timer and the public API. Inbound frames are handed to the
// dispatcher from the same loop, so handlers see frames in wire order.
type Channel struct {
	name         string
	url          string
	header       http.Header
	policy       ReconnectPolicy
	dispatcher   *Dispatcher
	log          zerolog.Logger
	dialer       *websocket.Dialer
	writeTimeout time.Duration

	events chan event

	mu        sync.RWMutex
	state     ConnectionState
	stateSubs map[int]chan ConnectionState
	nextSub   int
}

// ChannelConfig wires a Channel. Dialer defaults to the gorilla default.
// WriteTimeout bounds each outbound write so a stalled peer cannot wedge
// the event loop; it defaults to 10s.
type ChannelConfig struct {
	Name         string
	URL          string
	Header       http.Header
	Policy       ReconnectPolicy
	Dispatcher   *Dispatcher
	Logger       zerolog.Logger
	Dialer       *websocket.Dialer
	WriteTimeout time.Duration
}

type event interface{}

type connectEv struct{}
type disconnectEv struct{ done chan struct{} }
type retryEv struct{ gen int }
type openedEv struct {
	gen  int
	conn *websocket.Conn
}
type closedEv struct {
	gen int
	err error
}
type frameEv struct {
	gen  int
	data []byte
}
type publishEv struct {
	payload []byte
	reply   chan error
}

func NewChannel(cfg ChannelConfig) *Channel {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 10 * time.Second
	}
	c := &Channel{
		name:         cfg.Name,
		url:          cfg.URL,
		header:       cfg.Header,
		policy:       cfg.Policy,
		dispatcher:   cfg.Dispatcher,
		log:          cfg.Logger.With().Str("channel", cfg.Name).Logger(),
		dialer:       dialer,
		writeTimeout: writeTimeout,
		events:       make(chan event, 64),
		state:        StateDisconnected,
		stateSubs:    make(map[int]chan ConnectionState),
	}
	go c.run()
	return c
}

// Connect opens the socket. A no-op while already connected or connecting.
func (c *Channel) Connect() {
	c.events <- connectEv{}
}

// Disconnect closes the socket and cancels any scheduled reconnection.
// It blocks until the event loop has processed the request, so a retry
// scheduled before the call is guaranteed not to fire after it returns.
func (c *Channel) Disconnect() {
	done := make(chan struct{})
	c.events <- disconnectEv{done: done}
	<-done
}

// Publish writes one frame to the socket. Fails with ErrNotConnected when
// the channel is not in the connected state.
func (c *Channel) Publish(payload []byte) error {
	reply := make(chan error, 1)
	c.events <- publishEv{payload: payload, reply: reply}
	return <-reply
}

// State returns the current connection state.
func (c *Channel) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// States subscribes to connection-state transitions. The current state is
// delivered first. Cancelling the subscription never touches the socket;
// only Disconnect closes it.
func (c *Channel) States() (<-chan ConnectionState, func()) {
	ch := make(chan ConnectionState, 16)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.stateSubs[id] = ch
	ch <- c.state
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if sub, ok := c.stateSubs[id]; ok {
			delete(c.stateSubs, id)
			close(sub)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Channel) setState(s ConnectionState) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	for _, sub := range c.stateSubs {
		select {
		case sub <- s:
		default:
		}
	}
	c.mu.Unlock()
	c.log.Info().Str("state", s.String()).Msg("connection state changed")
}

// run is the single event-dispatch loop. conn, gen, attempts and the retry
// timer are loop-local: nothing else reads or writes them.
func (c *Channel) run() {
	var (
		conn     *websocket.Conn
		gen      int
		attempts int
		retry    *time.Timer
	)

	stopRetry := func() {
		if retry != nil {
			retry.Stop()
			retry = nil
		}
	}

	dial := func() {
		gen++
		cur := gen
		go func() {
			ws, resp, err := c.dialer.Dial(c.url, c.header)
			if resp != nil && resp.Body != nil {
				resp.Body.Close()
			}
			if err != nil {
				c.events <- closedEv{gen: cur, err: err}
				return
			}
			c.events <- openedEv{gen: cur, conn: ws}
		}()
	}

	for ev := range c.events {
		switch ev := ev.(type) {
		case connectEv:
			if c.State() == StateConnected || c.State() == StateConnecting {
				continue
			}
			stopRetry()
			attempts = 0
			c.setState(StateConnecting)
			dial()

		case disconnectEv:
			stopRetry()
			if conn != nil {
				_ = conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				_ = conn.Close()
				conn = nil
			}
			gen++ // events from the old socket are now stale
			c.setState(StateDisconnected)
			close(ev.done)

		case openedEv:
			if ev.gen != gen {
				_ = ev.conn.Close()
				continue
			}
			conn = ev.conn
			attempts = 0
			c.setState(StateConnected)
			go c.readLoop(ev.gen, ev.conn)

		case closedEv:
			if ev.gen != gen {
				continue
			}
			if conn != nil {
				_ = conn.Close()
				conn = nil
			}
			c.log.Warn().Err(ev.err).Int("attempt", attempts).Msg("socket lost")
			delay, ok := c.policy.NextDelay(attempts)
			if !ok {
				c.setState(StateDisconnected)
				c.log.Error().Msg("reconnection attempts exhausted")
				continue
			}
			attempts++
			c.setState(StateReconnecting)
			cur := gen
			retry = time.AfterFunc(delay, func() {
				c.events <- retryEv{gen: cur}
			})

		case retryEv:
			if ev.gen != gen || c.State() != StateReconnecting {
				continue
			}
			retry = nil
			dial()

		case frameEv:
			if ev.gen != gen {
				continue
			}
			c.dispatcher.Dispatch(ev.data)

		case publishEv:
			if conn == nil {
				ev.reply <- ErrNotConnected
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			ev.reply <- conn.WriteMessage(websocket.TextMessage, ev.payload)
		}
	}
}

func (c *Channel) readLoop(gen int, conn *websocket.Conn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			c.events <- closedEv{gen: gen, err: err}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		c.events <- frameEv{gen: gen, data: data}
	}
}
