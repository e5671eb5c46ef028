package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session binds a dashboard client to one resumable workflow run. It is the
// unit of persistence and concurrency control: all mutation goes through
// SessionStore.Update, which linearizes read-modify-write per session id.
type Session struct {
	ID         string         `json:"id"`
	Workflow   *WorkflowState `json:"workflow_state,omitempty"`
	Created    time.Time      `json:"created_at"`
	LastActive time.Time      `json:"last_active_at"`
}

// NewSession allocates a session with a fresh id and no workflow.
func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{ID: uuid.NewString(), Created: now, LastActive: now}
}

// Status returns the session's workflow status, StatusIdle when no workflow
// has started yet.
func (s *Session) Status() Status {
	if s.Workflow == nil {
		return StatusIdle
	}
	return s.Workflow.Status
}

// Touch records activity for expiry bookkeeping.
func (s *Session) Touch() { s.LastActive = time.Now().UTC() }

// Clone returns a deep copy safe for independent mutation.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Workflow = s.Workflow.Clone()
	return &clone
}

// SessionStore persists sessions. Implementations must linearize access per
// session id: two near-simultaneous Update calls on the same session must
// not both observe the same prior snapshot. Expired sessions behave exactly
// like unknown ones (ErrSessionNotFound).
type SessionStore interface {
	// Create allocates and persists a new empty session.
	Create(ctx context.Context) (*Session, error)
	// Get returns a snapshot of the session or ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// Update applies fn to the current session under the per-session
	// write lock and persists the result atomically. fn returning an
	// error aborts the update without persisting.
	Update(ctx context.Context, id string, fn func(*Session) error) error
	// Delete removes the session. Deleting an unknown session returns
	// ErrSessionNotFound.
	Delete(ctx context.Context, id string) error
}
