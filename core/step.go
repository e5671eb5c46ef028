package core

import "context"

// Action is the canonical decision extracted from a human's interrupt reply.
type Action string

const (
	// ActionStart triggers the default (first) action of the pending
	// interrupt. It is an enumerated action matched exactly, never by
	// substring, so free-text replies beginning with "Start" are not
	// mistaken for it.
	ActionStart Action = "start"
	// ActionSend approves sending the drafted message.
	ActionSend Action = "send"
	// ActionSkip skips the current profile without sending.
	ActionSkip Action = "skip"
	// ActionEdit replaces the draft with the human's text and re-serves
	// the approval interrupt.
	ActionEdit Action = "edit"
	// ActionConfirm is a positive acknowledgement (login completed).
	ActionConfirm Action = "confirm"
	// ActionCancel aborts the run; the workflow transitions to cancelled.
	ActionCancel Action = "cancel"
	// ActionContinue fetches the next search page.
	ActionContinue Action = "continue"
	// ActionStop ends pagination and completes the run with the results
	// accumulated so far.
	ActionStop Action = "stop"
	// ActionSelect picks one candidate from a disambiguation set.
	ActionSelect Action = "select"
)

// StepInput is a resolved human decision fed into the step that raised the
// interrupt. Text carries the edited draft, selected candidate or free-form
// answer when the action needs one.
type StepInput struct {
	Action Action `json:"action"`
	Text   string `json:"text,omitempty"`
}

// OutcomeKind tags the StepOutcome variant.
type OutcomeKind int

const (
	// OutcomeContinue advances the cursor; more units remain.
	OutcomeContinue OutcomeKind = iota
	// OutcomeNeedsInput pauses the run on an interrupt.
	OutcomeNeedsInput
	// OutcomeDone completes the run.
	OutcomeDone
	// OutcomeFailed ends the run after retries were exhausted or a
	// non-retryable failure surfaced.
	OutcomeFailed
)

// String returns the outcome tag for logging.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeContinue:
		return "continue"
	case OutcomeNeedsInput:
		return "needs_input"
	case OutcomeDone:
		return "done"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StepOutcome is the tagged result of executing exactly one unit of work.
// Exactly one variant is populated; use the constructors.
type StepOutcome struct {
	Kind      OutcomeKind
	Cursor    Cursor       // next cursor, for OutcomeContinue and OutcomeNeedsInput
	Results   []ResultItem // items produced by this unit
	Interrupt *Interrupt   // for OutcomeNeedsInput
	Err       error        // for OutcomeFailed
}

// ContinueOutcome advances to next with the unit's produced results.
func ContinueOutcome(next Cursor, results ...ResultItem) StepOutcome {
	return StepOutcome{Kind: OutcomeContinue, Cursor: next, Results: results}
}

// NeedsInputOutcome pauses at cursor on the given interrupt.
func NeedsInputOutcome(at Cursor, it *Interrupt, results ...ResultItem) StepOutcome {
	return StepOutcome{Kind: OutcomeNeedsInput, Cursor: at, Interrupt: it, Results: results}
}

// DoneOutcome completes the run, appending any final results.
func DoneOutcome(results ...ResultItem) StepOutcome {
	return StepOutcome{Kind: OutcomeDone, Results: results}
}

// FailedOutcome ends the run with err.
func FailedOutcome(err error) StepOutcome {
	return StepOutcome{Kind: OutcomeFailed, Err: err}
}

// StepRunner executes exactly one unit of work for one workflow kind: one
// search page, one profile scrape, one drafted-and-sent message, one video
// analysis. Never more than one unit per invocation, which bounds how much
// work is lost or replayed on cancellation.
//
// state is a private snapshot the runner may read freely; input is non-nil
// only when the previous outcome was NeedsInput and carries the resolved
// human decision. Cancellation is observed by the caller between units, not
// by the runner mid-unit.
type StepRunner interface {
	RunStep(ctx context.Context, state *WorkflowState, input *StepInput) StepOutcome
}
