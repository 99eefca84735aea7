package realtime

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// envelope is the minimal shape every frame must carry.
type envelope struct {
	Tipo string `json:"tipo"`
}

// HandlerFunc consumes the raw body of a frame whose tipo matched.
type HandlerFunc func(raw json.RawMessage)

// Dispatcher routes inbound frames by their tipo discriminant. Frames that
// fail to parse or carry an unregistered tipo are logged and dropped;
// Dispatch never lets a handler failure escape the dispatch boundary.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	log      zerolog.Logger
}

func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		log:      log,
	}
}

// Register binds a handler to a frame tipo, replacing any previous one.
// Registration happens at wiring time, before the channel starts reading.
func (d *Dispatcher) Register(tipo string, h HandlerFunc) {
	d.handlers[tipo] = h
}

// Dispatch parses a raw frame and invokes the matching handler.
func (d *Dispatcher) Dispatch(frame []byte) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		d.log.Warn().Err(err).Msg("dropping unparseable frame")
		return
	}
	if env.Tipo == "" {
		d.log.Warn().Msg("dropping frame without tipo")
		return
	}

	h, ok := d.handlers[env.Tipo]
	if !ok {
		d.log.Warn().Str("tipo", env.Tipo).Msg("dropping frame with unknown tipo")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Str("tipo", env.Tipo).Interface("panic", r).
				Msg("frame handler panicked")
		}
	}()
	h(frame)
}
