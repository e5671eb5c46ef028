// Package registry tracks the single in-flight operation per session and
// propagates cooperative cancellation to the executor. Cancellation is a
// flag checked at step boundaries only, never mid-unit, so an in-progress
// side effect is always allowed to finish.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/creatorops/outreach/core"
	"github.com/google/uuid"
)

// Operation is the handle for one live long-running step sequence. It is
// created by Begin and must always be released with End on completion,
// failure or observed cancellation.
type Operation struct {
	ID        string
	SessionID string
	Kind      core.WorkflowKind

	cancelled atomic.Bool
}

// Cancelled reports whether a cancellation request was delivered. The
// executor checks this between units of work.
func (o *Operation) Cancelled() bool { return o.cancelled.Load() }

// Registry is the process-wide operation table, keyed by session id. Safe
// for concurrent use.
type Registry struct {
	mu  sync.Mutex
	ops map[string]*Operation
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{ops: make(map[string]*Operation)}
}

// Begin registers a new operation for the session. A second Begin on the
// same session while the first is live returns ErrBusy regardless of kind;
// steps on one session never run concurrently.
func (r *Registry) Begin(sessionID string, kind core.WorkflowKind) (*Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, live := r.ops[sessionID]; live {
		return nil, core.ErrBusy
	}
	op := &Operation{ID: uuid.NewString(), SessionID: sessionID, Kind: kind}
	r.ops[sessionID] = op
	return op, nil
}

// Cancel sets the cancel flag on the session's live operation if its kind
// matches. Cancelling an operation that already finished (or never existed)
// is a harmless no-op; the returned bool only reports whether a live
// operation was flagged.
func (r *Registry) Cancel(sessionID string, kind core.WorkflowKind) bool {
	r.mu.Lock()
	op, live := r.ops[sessionID]
	r.mu.Unlock()
	if !live || op.Kind != kind {
		return false
	}
	op.cancelled.Store(true)
	return true
}

// End releases the operation so a later call can start fresh. Ending an
// already-released handle is a no-op.
func (r *Registry) End(op *Operation) {
	if op == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, live := r.ops[op.SessionID]; live && cur.ID == op.ID {
		delete(r.ops, op.SessionID)
	}
}

// Active returns the kind of the session's live operation, if any. Used by
// the status endpoint.
func (r *Registry) Active(sessionID string) []core.WorkflowKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	if op, live := r.ops[sessionID]; live {
		return []core.WorkflowKind{op.Kind}
	}
	return nil
}
