// Package manager is the session-scoped façade over the engine: it owns
// session lifecycle, drives workflow steps against the persisted state, and
// arbitrates concurrent generate and cancel calls. The HTTP layer calls
// only this package.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creatorops/outreach/core"
	"github.com/creatorops/outreach/interrupt"
	"github.com/creatorops/outreach/logging"
	"github.com/creatorops/outreach/registry"
)

// Options configure the manager.
type Options struct {
	// Registry tracks live operations; defaults to a fresh one.
	Registry *registry.Registry
	// Broker resolves interrupt replies; defaults to the shared broker.
	Broker *interrupt.Broker
	// Logger receives run diagnostics.
	Logger logging.Logger
}

// Manager coordinates sessions, workflow execution and cancellation.
type Manager struct {
	store    core.SessionStore
	executor core.StepRunner
	registry *registry.Registry
	broker   *interrupt.Broker
	logger   logging.Logger
}

// New builds a manager over a session store and a step executor.
func New(store core.SessionStore, executor core.StepRunner, optFns ...func(o *Options)) *Manager {
	opts := Options{
		Registry: registry.New(),
		Broker:   interrupt.NewBroker(),
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		store:    store,
		executor: executor,
		registry: opts.Registry,
		broker:   opts.Broker,
		logger:   opts.Logger,
	}
}

// GenerateRequest starts a workflow on a session or answers its pending
// interrupt. Workflow is required only when starting a fresh run; a session
// paused on an interrupt resumes regardless of the requested kind.
type GenerateRequest struct {
	SessionID string
	Workflow  core.WorkflowKind
	Content   string
	Params    map[string]any
}

// GenerateResponse is the outcome of one generate call. Status always
// agrees with the state persisted for the session when the call returned.
type GenerateResponse struct {
	SessionID string
	Status    core.Status
	Reply     string
	Interrupt *core.Interrupt
	Results   []core.ResultItem
	Error     string
}

// CreateSession allocates a new session.
func (m *Manager) CreateSession(ctx context.Context) (*core.Session, error) {
	sess, err := m.store.Create(ctx)
	if err != nil {
		return nil, err
	}
	m.logger.Info("session created", "session_id", sess.ID)
	return sess, nil
}

// Session returns a snapshot of the session, or core.ErrSessionNotFound.
func (m *Manager) Session(ctx context.Context, id string) (*core.Session, error) {
	return m.store.Get(ctx, id)
}

// ActiveOperations returns the workflow kinds with a live operation on the
// session.
func (m *Manager) ActiveOperations(sessionID string) []core.WorkflowKind {
	return m.registry.Active(sessionID)
}

// DeleteSession removes the session and flags any live operations on it.
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	for _, kind := range m.registry.Active(id) {
		m.registry.Cancel(id, kind)
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info("session deleted", "session_id", id)
	return nil
}

// CancelOperation requests cooperative cancellation of the session's
// operation of the given kind. A live operation is flagged and observed at
// its next step boundary; a paused workflow is collapsed to cancelled
// directly. Cancelling when nothing matches is a harmless no-op.
func (m *Manager) CancelOperation(ctx context.Context, sessionID string, kind core.WorkflowKind) (bool, error) {
	if m.registry.Cancel(sessionID, kind) {
		m.logger.Info("operation cancel requested", "session_id", sessionID, "workflow", string(kind))
		return true, nil
	}

	// No live operation: the workflow may be parked on an interrupt.
	cancelled := false
	err := m.store.Update(ctx, sessionID, func(sess *core.Session) error {
		w := sess.Workflow
		if w == nil || w.Kind != kind || w.Status.Terminal() {
			return nil
		}
		w.Status = core.StatusCancelled
		w.Pending = nil
		cancelled = true
		return w.Validate()
	})
	if errors.Is(err, core.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if cancelled {
		m.logger.Info("paused workflow cancelled", "session_id", sessionID, "workflow", string(kind))
	}
	return cancelled, nil
}

// Generate drives the session's workflow until it pauses, finishes or
// fails. On a fresh (or terminal) session it starts a new run of
// req.Workflow; on a session awaiting input it resolves req.Content against
// the pending interrupt and resumes.
func (m *Manager) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	sess, err := m.store.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Workflow
	var input *core.StepInput

	switch sess.Status() {
	case core.StatusRunning:
		if m.live(sess.ID) {
			return nil, core.ErrBusy
		}
		// Stale running snapshot from an interrupted process: treat the
		// old run as abandoned and start fresh.
		if req.Workflow == "" {
			return nil, fmt.Errorf("%w: workflow type required to start a run", core.ErrUnknownWorkflow)
		}
		state = core.NewWorkflowState(req.Workflow, req.Content, req.Params)

	case core.StatusAwaitingInput:
		resolved, rerr := m.broker.Resolve(state.Pending, req.Content)
		if errors.Is(rerr, core.ErrInvalidReply) {
			// Re-serve the pending interrupt unchanged; nothing persisted.
			return &GenerateResponse{
				SessionID: sess.ID,
				Status:    core.StatusAwaitingInput,
				Reply:     invalidReplyText(state.Pending),
				Interrupt: state.Pending,
				Results:   state.Results,
			}, nil
		}
		if rerr != nil {
			return nil, rerr
		}
		if resolved.Action == core.ActionCancel {
			state.Status = core.StatusCancelled
			state.Pending = nil
			if perr := m.persist(ctx, sess.ID, state); perr != nil {
				return nil, perr
			}
			return m.response(sess.ID, state), nil
		}
		state.Status = core.StatusRunning
		state.Pending = nil
		input = &resolved

	default:
		// Idle or terminal: start a fresh run.
		if req.Workflow == "" {
			return nil, fmt.Errorf("%w: workflow type required to start a run", core.ErrUnknownWorkflow)
		}
		state = core.NewWorkflowState(req.Workflow, req.Content, req.Params)
	}

	op, err := m.registry.Begin(sess.ID, state.Kind)
	if err != nil {
		return nil, err
	}
	defer m.registry.End(op)

	if err := m.persist(ctx, sess.ID, state); err != nil {
		return nil, err
	}

	return m.run(ctx, sess.ID, op, state, input)
}

// live reports whether the registry holds an operation for the session.
func (m *Manager) live(sessionID string) bool {
	return len(m.registry.Active(sessionID)) > 0
}

// run executes units of work until the workflow pauses or ends. The cancel
// flag is observed only here, between units, so an in-progress side effect
// always completes and its results are kept.
func (m *Manager) run(ctx context.Context, sessionID string, op *registry.Operation, state *core.WorkflowState, input *core.StepInput) (*GenerateResponse, error) {
	start := time.Now()
	steps := 0

	for {
		if op.Cancelled() {
			state.Status = core.StatusCancelled
			state.Pending = nil
			break
		}

		outcome := m.executor.RunStep(ctx, state, input)
		input = nil
		steps++
		state.Append(outcome.Results...)

		if outcome.Kind == core.OutcomeContinue {
			state.Cursor = outcome.Cursor
			if err := m.persist(ctx, sessionID, state); err != nil {
				return nil, err
			}
			continue
		}

		switch outcome.Kind {
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
			m.logger.Error("workflow step failed", "session_id", sessionID, "workflow", string(state.Kind), "error", outcome.Err)
		default:
			return nil, fmt.Errorf("unknown step outcome %d", outcome.Kind)
		}
		break
	}

	if err := m.persist(ctx, sessionID, state); err != nil {
		return nil, err
	}
	logging.WorkflowRun(m.logger, sessionID, string(state.Kind), string(state.Status), steps, time.Since(start))
	return m.response(sessionID, state), nil
}

// persist validates and writes the state snapshot under the session store's
// per-session write lock.
func (m *Manager) persist(ctx context.Context, sessionID string, state *core.WorkflowState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	snapshot := state.Clone()
	return m.store.Update(ctx, sessionID, func(sess *core.Session) error {
		sess.Workflow = snapshot
		return nil
	})
}

func (m *Manager) response(sessionID string, state *core.WorkflowState) *GenerateResponse {
	resp := &GenerateResponse{
		SessionID: sessionID,
		Status:    state.Status,
		Results:   state.Results,
		Error:     state.Error,
	}
	switch state.Status {
	case core.StatusAwaitingInput:
		resp.Interrupt = state.Pending
		resp.Reply = state.Pending.Message
	case core.StatusCompleted:
		resp.Reply = fmt.Sprintf("Workflow %s completed with %d results", state.Kind, len(state.Results))
	case core.StatusCancelled:
		resp.Reply = fmt.Sprintf("Workflow %s cancelled", state.Kind)
	case core.StatusFailed:
		resp.Reply = fmt.Sprintf("Workflow %s failed: %s", state.Kind, state.Error)
	}
	return resp
}

func invalidReplyText(it *core.Interrupt) string {
	if it == nil || len(it.Options) == 0 {
		return "Invalid reply."
	}
	return fmt.Sprintf("Invalid reply. Choose one of: %s", strings.Join(it.Options, ", "))
}
