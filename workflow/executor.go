// Package workflow implements the step runners for each outreach workflow
// and the executor that dispatches to them. A runner performs exactly one
// unit of work per invocation; anything longer-lived (loops, persistence,
// cancellation) belongs to the session manager driving it.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/creatorops/outreach/config"
	"github.com/creatorops/outreach/core"
	"github.com/creatorops/outreach/interrupt"
	"github.com/creatorops/outreach/logging"
	"github.com/creatorops/outreach/retry"
)

// Deps are the collaborators shared by all runners.
type Deps struct {
	Config    *config.Store
	Generator core.Generator
	Scraper   core.Scraper
	Sender    core.MessageSender
	Ledger    core.SentLedger
	Uploads   core.UploadStore
	Broker    *interrupt.Broker
}

// Options configure the executor.
type Options struct {
	// Logger receives step-level diagnostics.
	Logger logging.Logger
	// Retry bounds collaborator call retries inside a step.
	Retry retry.Config
}

// Executor dispatches one unit of work to the runner registered for the
// workflow kind.
type Executor struct {
	runners map[core.WorkflowKind]core.StepRunner
	logger  logging.Logger
}

// New builds an executor with the standard four runners registered.
func New(deps Deps, optFns ...func(o *Options)) *Executor {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Retry:  retry.DefaultConfig(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if deps.Broker == nil {
		deps.Broker = interrupt.NewBroker()
	}

	e := &Executor{
		runners: make(map[core.WorkflowKind]core.StepRunner),
		logger:  opts.Logger,
	}
	e.Register(core.KindMessaging, &messagingRunner{deps: deps, retry: opts.Retry, log: opts.Logger})
	e.Register(core.KindCollaborationSearch, &searchRunner{deps: deps, retry: opts.Retry, log: opts.Logger})
	e.Register(core.KindScraping, &scrapingRunner{deps: deps, retry: opts.Retry, log: opts.Logger})
	e.Register(core.KindCaptionAnalysis, &captionsRunner{deps: deps, retry: opts.Retry, log: opts.Logger})
	return e
}

// Register installs (or replaces) the runner for a workflow kind.
func (e *Executor) Register(kind core.WorkflowKind, runner core.StepRunner) {
	e.runners[kind] = runner
}

// Kinds returns the registered workflow kinds.
func (e *Executor) Kinds() []core.WorkflowKind {
	kinds := make([]core.WorkflowKind, 0, len(e.runners))
	for kind := range e.runners {
		kinds = append(kinds, kind)
	}
	return kinds
}

// RunStep executes one unit of work for the state's workflow kind.
func (e *Executor) RunStep(ctx context.Context, state *core.WorkflowState, input *core.StepInput) core.StepOutcome {
	runner, ok := e.runners[state.Kind]
	if !ok {
		return core.FailedOutcome(fmt.Errorf("%w: %q", core.ErrUnknownWorkflow, state.Kind))
	}

	start := time.Now()
	outcome := runner.RunStep(ctx, state, input)
	logging.StepExecution(e.logger, string(state.Kind), state.Cursor.Phase, state.Cursor.Index, outcome.Kind.String(), time.Since(start))
	return outcome
}

var _ core.StepRunner = (*Executor)(nil)

// stringListParam reads a list-valued workflow parameter, tolerating the
// []any form JSON decoding produces.
func stringListParam(state *core.WorkflowState, key string) []string {
	switch v := state.Params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
