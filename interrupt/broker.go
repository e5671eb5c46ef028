// Package interrupt packages workflow pause points into uniform decision
// payloads and resolves the human replies that answer them. All workflows
// raise interrupts through the constructors here so the dashboard renders
// them the same way regardless of which workflow paused.
package interrupt

import (
	"fmt"
	"strings"

	"github.com/creatorops/outreach/core"
)

// Option labels offered to the human. The reply is matched against these
// (plus a few spoken synonyms) case-insensitively.
const (
	OptionSend     = "Send"
	OptionEdit     = "Edit"
	OptionSkip     = "Skip"
	OptionCancel   = "Cancel"
	OptionLoggedIn = "Yes, I've logged in"
	OptionContinue = "Continue"
	OptionStop     = "Stop"
)

// startTrigger is the conventional no-content reply meaning "proceed with
// the default action". It is matched as a whole enumerated token, never by
// substring, so a free-text reply that happens to begin with "Start" is not
// mis-read as the trigger.
const startTrigger = "start"

// Broker decides how step results pause a workflow and how human replies
// resume it. It is stateless; the pending interrupt itself carries all
// resolution context.
type Broker struct{}

// NewBroker returns the shared interrupt broker.
func NewBroker() *Broker { return &Broker{} }

// LoginConfirmation pauses a messaging run until the human confirms the
// manual login is complete.
func (b *Broker) LoginConfirmation() *core.Interrupt {
	return &core.Interrupt{
		Kind:         core.InterruptLoginConfirmation,
		Message:      "Please confirm Instagram login",
		Instructions: "Log in to Instagram in the browser window, then confirm when ready",
		Options:      []string{OptionLoggedIn, OptionCancel},
	}
}

// MessageApproval pauses a messaging run on a drafted message. The draft is
// the preview the human approves, edits or skips; FreeText allows an edited
// draft to be supplied directly as the reply.
func (b *Broker) MessageApproval(profileURL, username, draft string) *core.Interrupt {
	return &core.Interrupt{
		Kind:         core.InterruptMessageApproval,
		Message:      draft,
		Instructions: "Review the drafted message and send, edit or skip this profile",
		Options:      []string{OptionSend, OptionEdit, OptionSkip, OptionCancel},
		FreeText:     true,
		Data: map[string]any{
			"message_text": draft,
			"profile_url":  profileURL,
			"username":     username,
		},
	}
}

// PageConfirmation asks whether paginated search should continue after one
// fetched page.
func (b *Broker) PageConfirmation(page, found, total int) *core.Interrupt {
	return &core.Interrupt{
		Kind:         core.InterruptPageConfirmation,
		Message:      fmt.Sprintf("Page %d returned %d profiles (%d total). Continue searching?", page, found, total),
		Instructions: "Continue to fetch the next page or stop with the results so far",
		Options:      []string{OptionContinue, OptionStop},
		Data:         map[string]any{"page": page, "found": found, "total": total},
	}
}

// Disambiguation asks the human to pick one of several candidate matches an
// ambiguous profile lookup returned.
func (b *Broker) Disambiguation(username string, candidates []string) *core.Interrupt {
	return &core.Interrupt{
		Kind:         core.InterruptDisambiguation,
		Message:      fmt.Sprintf("Several accounts match %q. Which one should be scraped?", username),
		Instructions: "Select the account to scrape",
		Options:      append([]string{}, candidates...),
		Data:         map[string]any{"username": username, "candidates": candidates},
	}
}

// Resolve maps the human's reply to a StepInput for the paused step. A
// constrained reply that matches no option returns ErrInvalidReply and the
// caller re-serves the original interrupt unchanged.
func (b *Broker) Resolve(it *core.Interrupt, reply string) (core.StepInput, error) {
	if it == nil {
		return core.StepInput{}, fmt.Errorf("no pending interrupt to resolve")
	}
	trimmed := strings.TrimSpace(reply)
	lower := strings.ToLower(trimmed)

	// Whole-token match only: "Start sending tomorrow" is free text, not
	// the trigger.
	if lower == startTrigger {
		return b.defaultInput(it)
	}

	switch it.Kind {
	case core.InterruptLoginConfirmation:
		switch lower {
		case "yes", "y", strings.ToLower(OptionLoggedIn):
			return core.StepInput{Action: core.ActionConfirm}, nil
		case "no", "n", "cancel":
			return core.StepInput{Action: core.ActionCancel}, nil
		}
		return core.StepInput{}, core.ErrInvalidReply

	case core.InterruptMessageApproval:
		switch lower {
		case "send", "send message", "yes", "y":
			return core.StepInput{Action: core.ActionSend, Text: it.DataString("message_text")}, nil
		case "skip", "skip this profile", "no", "n":
			return core.StepInput{Action: core.ActionSkip}, nil
		case "edit":
			// A bare "Edit" re-serves the draft for modification.
			return core.StepInput{Action: core.ActionEdit, Text: it.DataString("message_text")}, nil
		case "cancel", "end", "quit", "exit":
			return core.StepInput{Action: core.ActionCancel}, nil
		}
		// Any other text is an edited draft needing re-approval.
		return core.StepInput{Action: core.ActionEdit, Text: trimmed}, nil

	case core.InterruptPageConfirmation:
		switch lower {
		case "continue", "yes", "y", "next":
			return core.StepInput{Action: core.ActionContinue}, nil
		case "stop", "no", "n", "done":
			return core.StepInput{Action: core.ActionStop}, nil
		}
		return core.StepInput{}, core.ErrInvalidReply

	case core.InterruptDisambiguation:
		for _, opt := range it.Options {
			if strings.EqualFold(opt, trimmed) {
				return core.StepInput{Action: core.ActionSelect, Text: opt}, nil
			}
		}
		return core.StepInput{}, core.ErrInvalidReply
	}

	if it.FreeText {
		return core.StepInput{Action: core.ActionEdit, Text: trimmed}, nil
	}
	return core.StepInput{}, core.ErrInvalidReply
}

// defaultInput resolves the Start trigger to the interrupt's first offered
// option.
func (b *Broker) defaultInput(it *core.Interrupt) (core.StepInput, error) {
	if len(it.Options) == 0 {
		return core.StepInput{}, core.ErrInvalidReply
	}
	return b.Resolve(it, it.Options[0])
}
