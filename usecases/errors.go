package usecases

import (
	"errors"
	"fmt"

	"signage-console/entities"
)

// ErrDeviceBusy rejects a command while another is pending for the device.
var ErrDeviceBusy = errors.New("device has a command in process")

// ErrEmptyMessage rejects a whitespace-only chat message before any frame
// is built. Purely local.
var ErrEmptyMessage = errors.New("message content is empty")

// ErrConversationClosed rejects sends into a server-closed conversation.
var ErrConversationClosed = errors.New("conversation is closed")

// ErrSyncSuspended rejects commands while the device channel is trying to
// come back: dispatching against a view that may be stale invites
// conflicting state.
var ErrSyncSuspended = errors.New("device synchronization suspended, retry once reconnected")

// CommandError is a per-call command failure. It is always returned to the
// immediate caller and never retried.
type CommandError struct {
	DeviceID string
	Kind     entities.CommandKind
	Timeout  bool
	Err      error
}

func (e *CommandError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("command %s on device %s timed out", e.Kind, e.DeviceID)
	}
	return fmt.Sprintf("command %s on device %s failed: %v", e.Kind, e.DeviceID, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }
