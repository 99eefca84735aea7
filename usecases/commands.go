package usecases

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"signage-console/entities"
	"signage-console/repositories"
)

// CommandClient is the slice of the backend client the gateway needs.
type CommandClient interface {
	DispatchCommand(ctx context.Context, deviceID string, kind entities.CommandKind, params map[string]interface{}) (entities.Command, error)
}

// Gate reports whether command issuance is currently allowed. Wired to
// the device channel's state so dispatch is suspended mid-reconnect.
type Gate func() bool

// CommandGateway issues device commands over REST. It enforces one
// in-flight command per device and bounds every dispatch with a timeout,
// so a silent backend can never leave a device stuck "in process".
// Failures are returned to the caller; there is no automatic retry.
type CommandGateway struct {
	client  CommandClient
	archive repositories.CommandArchive // nil when no DB is configured
	gate    Gate                        // nil allows always
	timeout time.Duration
	log     zerolog.Logger

	mu        sync.Mutex
	inProcess map[string]bool
}

func NewCommandGateway(client CommandClient, archive repositories.CommandArchive, timeout time.Duration, log zerolog.Logger) *CommandGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CommandGateway{
		client:    client,
		archive:   archive,
		timeout:   timeout,
		log:       log.With().Str("component", "commands").Logger(),
		inProcess: make(map[string]bool),
	}
}

// SetGate installs the issuance gate. Called once at wiring time.
func (g *CommandGateway) SetGate(gate Gate) {
	g.gate = gate
}

// Execute dispatches one command and waits for its resolution. A device
// with a command already pending rejects the call before any REST traffic.
func (g *CommandGateway) Execute(ctx context.Context, deviceID string, kind entities.CommandKind, params map[string]interface{}) (entities.Command, error) {
	if g.gate != nil && !g.gate() {
		return entities.Command{}, &CommandError{DeviceID: deviceID, Kind: kind, Err: ErrSyncSuspended}
	}

	g.mu.Lock()
	if g.inProcess[deviceID] {
		g.mu.Unlock()
		return entities.Command{}, &CommandError{DeviceID: deviceID, Kind: kind, Err: ErrDeviceBusy}
	}
	g.inProcess[deviceID] = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.inProcess, deviceID)
		g.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd, err := g.client.DispatchCommand(ctx, deviceID, kind, params)
	if err != nil {
		cerr := &CommandError{DeviceID: deviceID, Kind: kind, Err: err}
		if errors.Is(err, context.DeadlineExceeded) {
			cerr.Timeout = true
		}
		g.log.Warn().Err(err).Str("device", deviceID).Str("kind", string(kind)).
			Msg("command dispatch failed")
		return entities.Command{}, cerr
	}

	g.log.Info().Str("device", deviceID).Str("kind", string(kind)).
		Str("status", string(cmd.Status)).Msg("command resolved")
	if g.archive != nil {
		if err := g.archive.Save(&cmd); err != nil {
			g.log.Warn().Err(err).Str("command", cmd.ID).Msg("command not archived")
		}
	}
	return cmd, nil
}

// InProcess reports whether the device has a command in flight.
func (g *CommandGateway) InProcess(deviceID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inProcess[deviceID]
}
