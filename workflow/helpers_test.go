package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creatorops/outreach/config"
	"github.com/creatorops/outreach/core"
	"github.com/creatorops/outreach/interrupt"
	"github.com/creatorops/outreach/ledger"
	"github.com/creatorops/outreach/retry"
	"github.com/creatorops/outreach/uploads"
)

// fakeGenerator returns a deterministic draft per prompt.
type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (g *fakeGenerator) Generate(_ context.Context, p core.Prompt) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fail != nil {
		return "", g.fail
	}
	name := p.Variables["username"]
	if name == "" {
		name = p.Variables["video"]
	}
	return "draft for " + name, nil
}

// fakeScraper serves canned profiles and search pages, optionally failing
// the first N calls to exercise the retry policy.
type fakeScraper struct {
	mu        sync.Mutex
	profiles  map[string]*core.Profile
	pages     []*core.SearchPage
	failFirst int
	calls     int
}

func (s *fakeScraper) maybeFail() error {
	s.calls++
	if s.calls <= s.failFirst {
		return core.Transient("scraper", fmt.Errorf("rate limited"))
	}
	return nil
}

func (s *fakeScraper) FetchProfile(_ context.Context, username string) (*core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.maybeFail(); err != nil {
		return nil, err
	}
	if p, ok := s.profiles[username]; ok {
		return p, nil
	}
	return &core.Profile{Username: username, URL: "https://instagram.com/" + username}, nil
}

func (s *fakeScraper) SearchProfiles(_ context.Context, _ string, page, _ int) (*core.SearchPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.maybeFail(); err != nil {
		return nil, err
	}
	if page < 1 || page > len(s.pages) {
		return &core.SearchPage{Page: page}, nil
	}
	return s.pages[page-1], nil
}

// fakeSender records deliveries.
type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	texts map[string]string
	fail  error
}

func (s *fakeSender) Send(_ context.Context, profileURL, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if s.texts == nil {
		s.texts = map[string]string{}
	}
	s.sent = append(s.sent, profileURL)
	s.texts[profileURL] = text
	return nil
}

const testCSV = "profile_url,username,skip\n" +
	"https://instagram.com/maker,maker,\n" +
	"https://instagram.com/crafts,crafts,true\n" +
	"https://instagram.com/artist,artist,\n" +
	"https://instagram.com/potter,potter,\n"

func testDeps(t *testing.T) (Deps, *fakeScraper, *fakeSender, *fakeGenerator) {
	t.Helper()

	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	scraper := &fakeScraper{profiles: map[string]*core.Profile{}}
	sender := &fakeSender{}
	gen := &fakeGenerator{}

	ups := uploads.NewInMemoryStore()
	require.NoError(t, ups.Put(context.Background(), "profiles.csv", []byte(testCSV)))

	deps := Deps{
		Config:    cfg,
		Generator: gen,
		Scraper:   scraper,
		Sender:    sender,
		Ledger:    ledger.NewInMemoryLedger(),
		Uploads:   ups,
		Broker:    interrupt.NewBroker(),
	}
	return deps, scraper, sender, gen
}

// freshUploads returns an upload store with nothing in it.
func freshUploads(t *testing.T) core.UploadStore {
	t.Helper()
	return uploads.NewInMemoryStore()
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialBackoff: 1, MaxBackoff: 1, Multiplier: 1}
}

// applyOutcome mirrors the manager's state bookkeeping so runner tests can
// step through a workflow.
func applyOutcome(t *testing.T, state *core.WorkflowState, outcome core.StepOutcome) {
	t.Helper()
	state.Append(outcome.Results...)
	switch outcome.Kind {
	case core.OutcomeContinue:
		state.Cursor = outcome.Cursor
		state.Status = core.StatusRunning
		state.Pending = nil
	case core.OutcomeNeedsInput:
		state.Cursor = outcome.Cursor
		state.Status = core.StatusAwaitingInput
		state.Pending = outcome.Interrupt
	case core.OutcomeDone:
		state.Status = core.StatusCompleted
		state.Pending = nil
	case core.OutcomeFailed:
		state.Status = core.StatusFailed
		state.Pending = nil
		state.Error = outcome.Err.Error()
	}
	require.NoError(t, state.Validate())
}
