package usecases

import (
	"sync"
	"time"
)

// OpState is the tri-state result of an optimistic operation.
type OpState string

const (
	OpPending   OpState = "pending"
	OpConfirmed OpState = "confirmed"
	OpFailed    OpState = "failed"
)

// PendingOp tracks one optimistic operation awaiting server confirmation.
type PendingOp struct {
	ID        string
	State     OpState
	CreatedAt time.Time
}

// PendingTable indexes optimistic operations by their client-generated
// correlation id. The dispatcher resolves entries when the matching echo
// arrives; resolution is independent of any dedup-by-content heuristics.
type PendingTable struct {
	mu  sync.Mutex
	ops map[string]*PendingOp
}

func NewPendingTable() *PendingTable {
	return &PendingTable{ops: make(map[string]*PendingOp)}
}

// Add registers a new pending operation under the given correlation id.
func (t *PendingTable) Add(id string) {
	t.mu.Lock()
	t.ops[id] = &PendingOp{ID: id, State: OpPending, CreatedAt: time.Now()}
	t.mu.Unlock()
}

// Confirm marks an operation confirmed. Unknown ids are ignored, since an
// echo can describe a message sent by another client.
func (t *PendingTable) Confirm(id string) bool {
	return t.resolve(id, OpConfirmed)
}

// Fail marks an operation failed.
func (t *PendingTable) Fail(id string) bool {
	return t.resolve(id, OpFailed)
}

func (t *PendingTable) resolve(id string, state OpState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	op, ok := t.ops[id]
	if !ok || op.State != OpPending {
		return false
	}
	op.State = state
	return true
}

// Get returns a copy of the operation, if tracked.
func (t *PendingTable) Get(id string) (PendingOp, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	op, ok := t.ops[id]
	if !ok {
		return PendingOp{}, false
	}
	return *op, true
}

// Prune drops resolved entries older than age.
func (t *PendingTable) Prune(age time.Duration) {
	cutoff := time.Now().Add(-age)
	t.mu.Lock()
	for id, op := range t.ops {
		if op.State != OpPending && op.CreatedAt.Before(cutoff) {
			delete(t.ops, id)
		}
	}
	t.mu.Unlock()
}
