package core

import (
	"fmt"
	"time"
)

// WorkflowKind identifies one of the automated outreach workflows.
type WorkflowKind string

const (
	// KindCollaborationSearch discovers collaboration candidates through
	// paginated profile search.
	KindCollaborationSearch WorkflowKind = "collaboration-search"
	// KindScraping collects structured profile/post data for a set of
	// usernames, one profile per step.
	KindScraping WorkflowKind = "scraping"
	// KindMessaging drafts and sends one personalized message per CSV
	// profile row, pausing for human approval before every send.
	KindMessaging WorkflowKind = "messaging"
	// KindCaptionAnalysis generates captions/hashtags for videos, one
	// video per step.
	KindCaptionAnalysis WorkflowKind = "caption-analysis"
)

// ParseWorkflowKind validates a client supplied workflow type string.
// A few legacy aliases from the dashboard are accepted.
func ParseWorkflowKind(s string) (WorkflowKind, error) {
	switch s {
	case string(KindCollaborationSearch), "collaboration", "search":
		return KindCollaborationSearch, nil
	case string(KindScraping):
		return KindScraping, nil
	case string(KindMessaging), "message":
		return KindMessaging, nil
	case string(KindCaptionAnalysis), "video-analysis":
		return KindCaptionAnalysis, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWorkflow, s)
}

// Status is the lifecycle state of a workflow run. See the state machine in
// WorkflowState: idle -> running -> {awaiting_human_input <-> running} ->
// {completed | failed | cancelled}.
type Status string

const (
	// StatusIdle means no workflow has started on the session.
	StatusIdle Status = "idle"
	// StatusRunning means a step is executing; a second Generate call in
	// this state is rejected with ErrBusy.
	StatusRunning Status = "running"
	// StatusAwaitingInput means execution is paused on a pending interrupt
	// and resumes when the human's reply is resolved.
	StatusAwaitingInput Status = "awaiting_human_input"
	// StatusCompleted is terminal: the run finished all its units.
	StatusCompleted Status = "completed"
	// StatusFailed is terminal: a step exhausted its retries or hit a
	// non-retryable failure.
	StatusFailed Status = "failed"
	// StatusCancelled is terminal: cancellation was observed at a step
	// boundary, or the human declined to proceed.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status ends the current run. A new Generate
// call on a terminal run replaces the workflow state with a fresh run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Cursor identifies the next unit of work. Phase distinguishes pipeline
// stages within a workflow (e.g. login vs. profile processing); Index is the
// position within the phase (profile row, search page, video).
//
// Within one run the cursor only moves forward; it is advanced by the
// executor only after a unit's side effect is confirmed.
type Cursor struct {
	Phase string `json:"phase"`
	Index int    `json:"index"`
}

// Before reports whether c precedes o in execution order. Phases are
// compared by the order they were entered, which within one workflow kind is
// encoded by phase rank, so comparing Index is sufficient once phases match.
func (c Cursor) Before(o Cursor) bool {
	if c.Phase == o.Phase {
		return c.Index < o.Index
	}
	return false
}

// ResultItem is one produced item appended to a run's accumulated results:
// a discovered profile, a sent message, a scraped post, a generated caption.
type ResultItem struct {
	Kind      string         `json:"kind"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewResultItem builds a timestamped result item.
func NewResultItem(kind string, data map[string]any) ResultItem {
	return ResultItem{Kind: kind, Data: data, Timestamp: time.Now().UTC()}
}

// WorkflowState is the resumable execution snapshot persisted per session.
// The executor takes a snapshot and produces a new snapshot; it never
// mutates shared state in place outside the session store's single-writer
// discipline.
//
// Invariant: Pending is non-nil iff Status == StatusAwaitingInput.
// Invariant: Results is append-only for the duration of one run.
type WorkflowState struct {
	Kind    WorkflowKind   `json:"kind"`
	Status  Status         `json:"status"`
	Cursor  Cursor         `json:"cursor"`
	Results []ResultItem   `json:"results,omitempty"`
	Pending *Interrupt     `json:"pending_interrupt,omitempty"`
	Input   string         `json:"input,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
	Error   string         `json:"error,omitempty"`
	Started time.Time      `json:"started"`
}

// NewWorkflowState creates the snapshot for a fresh run.
func NewWorkflowState(kind WorkflowKind, input string, params map[string]any) *WorkflowState {
	return &WorkflowState{
		Kind:    kind,
		Status:  StatusRunning,
		Input:   input,
		Params:  params,
		Started: time.Now().UTC(),
	}
}

// Validate checks the pending-interrupt invariant. It is cheap and called
// after every transition before the state is persisted.
func (w *WorkflowState) Validate() error {
	if w == nil {
		return nil
	}
	awaiting := w.Status == StatusAwaitingInput
	if awaiting && w.Pending == nil {
		return fmt.Errorf("workflow state invalid: awaiting input without pending interrupt")
	}
	if !awaiting && w.Pending != nil {
		return fmt.Errorf("workflow state invalid: pending interrupt with status %s", w.Status)
	}
	return nil
}

// Append extends the accumulated results. Results are never truncated
// mid-run, only extended.
func (w *WorkflowState) Append(items ...ResultItem) {
	w.Results = append(w.Results, items...)
}

// Clone returns a deep copy safe for independent mutation.
func (w *WorkflowState) Clone() *WorkflowState {
	if w == nil {
		return nil
	}
	clone := *w
	clone.Results = make([]ResultItem, len(w.Results))
	copy(clone.Results, w.Results)
	if w.Pending != nil {
		clone.Pending = w.Pending.Clone()
	}
	if w.Params != nil {
		clone.Params = make(map[string]any, len(w.Params))
		for k, v := range w.Params {
			clone.Params[k] = v
		}
	}
	return &clone
}

// Param returns a string parameter with a fallback default.
func (w *WorkflowState) Param(key, def string) string {
	if v, ok := w.Params[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// IntParam returns an integer parameter with a fallback default. JSON
// decoding delivers numbers as float64, so both forms are accepted.
func (w *WorkflowState) IntParam(key string, def int) int {
	switch v := w.Params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}
