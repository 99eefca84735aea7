package usecases

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signage-console/entities"
)

// fakeCommandClient blocks until released, counting dispatches.
type fakeCommandClient struct {
	calls   atomic.Int32
	release chan struct{}
	result  entities.Command
	err     error
}

func (f *fakeCommandClient) DispatchCommand(ctx context.Context, deviceID string, kind entities.CommandKind, params map[string]interface{}) (entities.Command, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return entities.Command{}, ctx.Err()
		}
	}
	return f.result, f.err
}

func TestExecuteResolvesCommand(t *testing.T) {
	client := &fakeCommandClient{result: entities.Command{
		ID:       "cmd1",
		DeviceID: "d1",
		Kind:     entities.CommandPlay,
		Status:   entities.CommandStatusExecuted,
	}}
	g := NewCommandGateway(client, nil, time.Second, zerolog.Nop())

	cmd, err := g.Execute(context.Background(), "d1", entities.CommandPlay, nil)
	require.NoError(t, err)
	assert.Equal(t, entities.CommandStatusExecuted, cmd.Status)
	assert.False(t, g.InProcess("d1"))
}

// A second command for a busy device is rejected before any REST call.
func TestExecuteRejectsBusyDevice(t *testing.T) {
	client := &fakeCommandClient{
		release: make(chan struct{}),
		result:  entities.Command{ID: "cmd1", Status: entities.CommandStatusExecuted},
	}
	g := NewCommandGateway(client, nil, time.Second, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := g.Execute(context.Background(), "d1", entities.CommandReboot, nil)
		done <- err
	}()

	require.Eventually(t, func() bool { return g.InProcess("d1") },
		time.Second, time.Millisecond)

	_, err := g.Execute(context.Background(), "d1", entities.CommandPlay, nil)
	assert.ErrorIs(t, err, ErrDeviceBusy)
	var cerr *CommandError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "d1", cerr.DeviceID)
	assert.Equal(t, int32(1), client.calls.Load(), "busy rejection must not hit the backend")

	// A different device is not blocked.
	other := &fakeCommandClient{result: entities.Command{Status: entities.CommandStatusExecuted}}
	g2 := NewCommandGateway(other, nil, time.Second, zerolog.Nop())
	_, err = g2.Execute(context.Background(), "d2", entities.CommandPlay, nil)
	assert.NoError(t, err)

	close(client.release)
	require.NoError(t, <-done)
	assert.False(t, g.InProcess("d1"))
}

// A backend that never answers must not leave the device stuck in
// process: the timeout fires, the flag clears, a timeout error surfaces.
func TestExecuteTimesOutAndClearsInProcess(t *testing.T) {
	client := &fakeCommandClient{release: make(chan struct{})} // never released
	g := NewCommandGateway(client, nil, 20*time.Millisecond, zerolog.Nop())

	_, err := g.Execute(context.Background(), "d1", entities.CommandUpdateSoftware, nil)
	var cerr *CommandError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, cerr.Timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, g.InProcess("d1"))

	// The device accepts commands again afterwards.
	client2 := &fakeCommandClient{result: entities.Command{Status: entities.CommandStatusExecuted}}
	g2 := NewCommandGateway(client2, nil, time.Second, zerolog.Nop())
	_, err = g2.Execute(context.Background(), "d1", entities.CommandPlay, nil)
	assert.NoError(t, err)
}

func TestExecuteSuspendedWhileReconnecting(t *testing.T) {
	client := &fakeCommandClient{result: entities.Command{Status: entities.CommandStatusExecuted}}
	g := NewCommandGateway(client, nil, time.Second, zerolog.Nop())

	reconnecting := true
	g.SetGate(func() bool { return !reconnecting })

	_, err := g.Execute(context.Background(), "d1", entities.CommandPlay, nil)
	assert.ErrorIs(t, err, ErrSyncSuspended)
	assert.Equal(t, int32(0), client.calls.Load())

	reconnecting = false
	_, err = g.Execute(context.Background(), "d1", entities.CommandPlay, nil)
	assert.NoError(t, err)
}

func TestExecuteSurfacesBackendFailure(t *testing.T) {
	client := &fakeCommandClient{err: errors.New("backend rejected")}
	g := NewCommandGateway(client, nil, time.Second, zerolog.Nop())

	_, err := g.Execute(context.Background(), "d1", entities.CommandStop, nil)
	var cerr *CommandError
	require.ErrorAs(t, err, &cerr)
	assert.False(t, cerr.Timeout)
	assert.False(t, g.InProcess("d1"))
}
