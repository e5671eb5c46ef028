// Package uploads stores the CSV documents the dashboard uploads for the
// messaging workflow. Documents are kept whole; the workflow reads the
// newest one and the save endpoint overwrites by name. Bytes are copied on
// the way in and out so callers cannot mutate stored buffers.
package uploads

import (
	"context"
	"sync"
	"time"

	"github.com/creatorops/outreach/core"
)

// InMemoryStore is a process-local UploadStore.
type InMemoryStore struct {
	mu      sync.RWMutex
	uploads map[string]*core.Upload
}

// NewInMemoryStore returns an empty upload store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{uploads: make(map[string]*core.Upload)}
}

// Put stores (or overwrites) a named document.
func (s *InMemoryStore) Put(_ context.Context, name string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	s.uploads[name] = &core.Upload{Name: name, Data: cp, Uploaded: time.Now().UTC()}
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the named document.
func (s *InMemoryStore) Get(_ context.Context, name string) (*core.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	up, ok := s.uploads[name]
	if !ok {
		return nil, core.ErrNoProfiles
	}
	return cloneUpload(up), nil
}

// Latest returns the most recently uploaded document.
func (s *InMemoryStore) Latest(_ context.Context) (*core.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *core.Upload
	for _, up := range s.uploads {
		if latest == nil || up.Uploaded.After(latest.Uploaded) {
			latest = up
		}
	}
	if latest == nil {
		return nil, core.ErrNoProfiles
	}
	return cloneUpload(latest), nil
}

// List returns the stored document names.
func (s *InMemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.uploads))
	for name := range s.uploads {
		names = append(names, name)
	}
	return names, nil
}

func cloneUpload(up *core.Upload) *core.Upload {
	cp := make([]byte, len(up.Data))
	copy(cp, up.Data)
	return &core.Upload{Name: up.Name, Data: cp, Uploaded: up.Uploaded}
}
