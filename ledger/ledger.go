// Package ledger records delivered messages so that resumes, replays and
// restarts never send the same profile a second message. The ledger is the
// engine's idempotence guard: cursors advance only after Record succeeds.
package ledger

import (
	"context"
	"strings"
	"sync"

	"github.com/creatorops/outreach/core"
)

// InMemoryLedger is a process-local SentLedger keyed by profile URL and
// username. Safe for concurrent use.
type InMemoryLedger struct {
	mu     sync.RWMutex
	byURL  map[string]core.SentRecord
	byUser map[string]core.SentRecord
}

// NewInMemoryLedger returns an empty ledger.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{
		byURL:  make(map[string]core.SentRecord),
		byUser: make(map[string]core.SentRecord),
	}
}

// Sent reports whether the profile (by URL or derived username) already
// received a message.
func (l *InMemoryLedger) Sent(_ context.Context, profileURL string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.byURL[profileURL]; ok {
		return true, nil
	}
	if user := UsernameFromURL(profileURL); user != "" {
		if _, ok := l.byUser[user]; ok {
			return true, nil
		}
	}
	return false, nil
}

// Record stores one delivery. Recording the same profile twice overwrites
// the previous entry; Sent stays true either way.
func (l *InMemoryLedger) Record(_ context.Context, rec core.SentRecord) error {
	if rec.Username == "" {
		rec.Username = UsernameFromURL(rec.ProfileURL)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byURL[rec.ProfileURL] = rec
	if rec.Username != "" {
		l.byUser[rec.Username] = rec
	}
	return nil
}

// All returns a snapshot of every recorded delivery.
func (l *InMemoryLedger) All() []core.SentRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	records := make([]core.SentRecord, 0, len(l.byURL))
	for _, rec := range l.byURL {
		records = append(records, rec)
	}
	return records
}

// UsernameFromURL extracts the account name from a profile URL, tolerating
// trailing slashes and query strings.
func UsernameFromURL(profileURL string) string {
	trimmed := strings.TrimSuffix(profileURL, "/")
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
