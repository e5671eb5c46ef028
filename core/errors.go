package core

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a client-presented session id is
	// unknown or expired. It is never silently treated as a fresh session;
	// the caller must explicitly create a new one.
	ErrSessionNotFound = errors.New("session not found")

	// ErrBusy is returned when an operation of the same kind is already in
	// flight for the session. The existing workflow state is not mutated.
	ErrBusy = errors.New("operation already in flight")

	// ErrInvalidReply is returned when an interrupt reply matches none of
	// the allowed options and the field is not free text. The original
	// interrupt is re-served unchanged.
	ErrInvalidReply = errors.New("reply does not match any allowed option")

	// ErrUnknownWorkflow is returned for an unrecognized workflow type.
	ErrUnknownWorkflow = errors.New("unknown workflow type")

	// ErrNoProfiles is returned when a messaging run starts without an
	// uploaded CSV or with no actionable rows.
	ErrNoProfiles = errors.New("no profiles to process")
)

// CollaboratorError wraps a failure from an external collaborator (scraper,
// generator, sender). Retryable marks transient conditions (timeout, rate
// limit) the executor may retry with backoff before surfacing.
type CollaboratorError struct {
	Collaborator string
	Retryable    bool
	Err          error
}

// Error implements the error interface.
func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Collaborator, e.Err)
}

// Unwrap returns the underlying error.
func (e *CollaboratorError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable collaborator failure.
func Transient(collaborator string, err error) error {
	return &CollaboratorError{Collaborator: collaborator, Retryable: true, Err: err}
}

// Permanent wraps err as a non-retryable collaborator failure.
func Permanent(collaborator string, err error) error {
	return &CollaboratorError{Collaborator: collaborator, Retryable: false, Err: err}
}

// IsRetryable reports whether err is a transient collaborator failure.
func IsRetryable(err error) bool {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}
