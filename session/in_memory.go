// Package session provides SessionStore implementations: a process-local
// in-memory store for tests and single-node deployments, and a Redis-backed
// store for deployments that must survive process restarts.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/creatorops/outreach/core"
)

// InMemoryOptions tune the in-memory store.
type InMemoryOptions struct {
	// MaxIdle is the inactivity window after which a session is lazily
	// expired; 0 disables expiry.
	MaxIdle time.Duration
}

// InMemoryStore is a volatile SessionStore keeping sessions in a process
// local map. It is safe for concurrent access; snapshots are cloned on the
// way out so callers cannot mutate internal state, and Update holds the
// store lock for the duration of the read-modify-write, which linearizes
// mutation per session.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
	maxIdle  time.Duration
	now      func() time.Time
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore(optFns ...func(o *InMemoryOptions)) *InMemoryStore {
	opts := InMemoryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{
		sessions: make(map[string]*core.Session),
		maxIdle:  opts.MaxIdle,
		now:      time.Now,
	}
}

// Create allocates and stores a new empty session.
func (s *InMemoryStore) Create(_ context.Context) (*core.Session, error) {
	sess := core.NewSession()
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess.Clone(), nil
}

// Get returns a snapshot of an existing session. Expired and unknown ids
// both yield ErrSessionNotFound; an expired session is never resurrected.
func (s *InMemoryStore) Get(_ context.Context, id string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}

// Update applies fn under the store lock and persists the result.
func (s *InMemoryStore) Update(_ context.Context, id string, fn func(*core.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookupLocked(id)
	if err != nil {
		return err
	}
	working := sess.Clone()
	if err := fn(working); err != nil {
		return err
	}
	working.Touch()
	s.sessions[id] = working
	return nil
}

// Delete removes the session.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookupLocked(id); err != nil {
		return err
	}
	delete(s.sessions, id)
	return nil
}

// lookupLocked resolves id, lazily removing expired entries. Caller must
// hold the write lock.
func (s *InMemoryStore) lookupLocked(id string) (*core.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	if s.maxIdle > 0 && s.now().Sub(sess.LastActive) > s.maxIdle {
		delete(s.sessions, id)
		return nil, core.ErrSessionNotFound
	}
	return sess, nil
}
