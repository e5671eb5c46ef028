package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/creatorops/outreach/core"
	"github.com/creatorops/outreach/ledger"
	"github.com/creatorops/outreach/logging"
	"github.com/creatorops/outreach/profiles"
	"github.com/creatorops/outreach/retry"
)

// Messaging phases. The login phase blocks on manual login confirmation
// before any profile is touched; the profiles phase processes one CSV row
// per step.
const (
	phaseLogin    = "login"
	phaseProfiles = "profiles"
)

const defaultMessagePrompt = "Write a short, friendly Instagram direct message to {username}. " +
	"Their profile says: {biography}. Propose a collaboration, mention something specific " +
	"from their profile, and keep it under 300 characters. Return only the message text."

// messagingRunner drafts and sends one personalized direct message per CSV
// profile row. Every send is gated on human approval, and the sent ledger is
// consulted before and after the pause so a replayed resume cannot deliver
// twice.
type messagingRunner struct {
	deps  Deps
	retry retry.Config
	log   logging.Logger
}

func (r *messagingRunner) RunStep(ctx context.Context, state *core.WorkflowState, input *core.StepInput) core.StepOutcome {
	if state.Cursor.Phase == "" || state.Cursor.Phase == phaseLogin {
		return r.loginStep(input)
	}
	return r.profileStep(ctx, state, input)
}

// loginStep raises the login confirmation on a fresh run and advances to
// profile processing once the human confirms.
func (r *messagingRunner) loginStep(input *core.StepInput) core.StepOutcome {
	if input == nil {
		return core.NeedsInputOutcome(core.Cursor{Phase: phaseLogin}, r.deps.Broker.LoginConfirmation())
	}
	if input.Action != core.ActionConfirm {
		return core.FailedOutcome(fmt.Errorf("unexpected login reply action %q", input.Action))
	}
	return core.ContinueOutcome(core.Cursor{Phase: phaseProfiles, Index: 0})
}

func (r *messagingRunner) profileStep(ctx context.Context, state *core.WorkflowState, input *core.StepInput) core.StepOutcome {
	rows, err := r.loadRows(ctx)
	if err != nil {
		return core.FailedOutcome(err)
	}

	bound := state.IntParam("max_profiles", r.deps.Config.Document().Messaging.MaxProfiles)
	if bound > len(rows) {
		bound = len(rows)
	}

	idx := state.Cursor.Index
	if idx >= bound {
		return core.DoneOutcome()
	}
	row := rows[idx]

	if input != nil {
		return r.resolveApproval(ctx, state, row, input, bound)
	}

	// Fresh unit: never draft for a profile that was already messaged in an
	// earlier run or an earlier replay of this one.
	sent, err := r.deps.Ledger.Sent(ctx, row.ProfileURL)
	if err != nil {
		return core.FailedOutcome(fmt.Errorf("check sent ledger: %w", err))
	}
	if sent {
		return r.advance(state, bound, core.NewResultItem("profile_skipped", map[string]any{
			"profile_url": row.ProfileURL,
			"username":    r.username(row),
			"reason":      "already_sent",
		}))
	}

	draft, err := r.draft(ctx, row)
	if err != nil {
		return core.FailedOutcome(err)
	}
	return core.NeedsInputOutcome(state.Cursor, r.deps.Broker.MessageApproval(row.ProfileURL, r.username(row), draft))
}

// resolveApproval applies the human's decision on the drafted message for
// the row the run paused on.
func (r *messagingRunner) resolveApproval(ctx context.Context, state *core.WorkflowState, row profiles.Record, input *core.StepInput, bound int) core.StepOutcome {
	switch input.Action {
	case core.ActionSend:
		return r.send(ctx, state, row, input.Text, bound)

	case core.ActionSkip:
		return r.advance(state, bound, core.NewResultItem("profile_skipped", map[string]any{
			"profile_url": row.ProfileURL,
			"username":    r.username(row),
			"reason":      "skipped_by_user",
		}))

	case core.ActionEdit:
		// Re-serve the approval with the edited draft; the cursor stays on
		// this row until the human sends or skips.
		return core.NeedsInputOutcome(state.Cursor, r.deps.Broker.MessageApproval(row.ProfileURL, r.username(row), input.Text))
	}
	return core.FailedOutcome(fmt.Errorf("unexpected approval reply action %q", input.Action))
}

// send delivers the approved draft. The ledger is re-checked first so a
// duplicated resume request is a no-op, and the delivery is recorded before
// the cursor advances. Send itself is never retried: the bridge may have
// delivered even when the response was lost.
func (r *messagingRunner) send(ctx context.Context, state *core.WorkflowState, row profiles.Record, text string, bound int) core.StepOutcome {
	sent, err := r.deps.Ledger.Sent(ctx, row.ProfileURL)
	if err != nil {
		return core.FailedOutcome(fmt.Errorf("check sent ledger: %w", err))
	}
	if sent {
		return r.advance(state, bound, core.NewResultItem("profile_skipped", map[string]any{
			"profile_url": row.ProfileURL,
			"username":    r.username(row),
			"reason":      "already_sent",
		}))
	}

	start := time.Now()
	err = r.deps.Sender.Send(ctx, row.ProfileURL, text)
	logging.CollaboratorCall(r.log, "sender", time.Since(start), err)
	if err != nil {
		return core.FailedOutcome(fmt.Errorf("send message to %s: %w", row.ProfileURL, err))
	}
	if err := r.deps.Ledger.Record(ctx, core.SentRecord{
		ProfileURL: row.ProfileURL,
		Username:   r.username(row),
		Message:    text,
		SentAt:     time.Now().UTC(),
	}); err != nil {
		return core.FailedOutcome(fmt.Errorf("record sent message: %w", err))
	}

	return r.advance(state, bound, core.NewResultItem("message_sent", map[string]any{
		"profile_url": row.ProfileURL,
		"username":    r.username(row),
		"message":     text,
	}))
}

func (r *messagingRunner) advance(state *core.WorkflowState, bound int, results ...core.ResultItem) core.StepOutcome {
	next := core.Cursor{Phase: phaseProfiles, Index: state.Cursor.Index + 1}
	if next.Index >= bound {
		return core.DoneOutcome(results...)
	}
	return core.ContinueOutcome(next, results...)
}

// draft produces the message preview for one row. Profile enrichment and
// generation are retried; a profile that cannot be fetched still gets a
// draft from the CSV attributes alone.
func (r *messagingRunner) draft(ctx context.Context, row profiles.Record) (string, error) {
	vars := map[string]string{
		"username":    r.username(row),
		"profile_url": row.ProfileURL,
		"full_name":   row.Attributes["full_name"],
		"biography":   row.Attributes["biography"],
	}

	var profile *core.Profile
	start := time.Now()
	err := retry.Do(ctx, r.retry, func(ctx context.Context) error {
		var ferr error
		profile, ferr = r.deps.Scraper.FetchProfile(ctx, vars["username"])
		return ferr
	})
	logging.CollaboratorCall(r.log, "scraper", time.Since(start), err)
	if err == nil && profile != nil && !profile.Ambiguous() {
		if profile.FullName != "" {
			vars["full_name"] = profile.FullName
		}
		if profile.Biography != "" {
			vars["biography"] = profile.Biography
		}
	}

	prompt := core.Prompt{
		Template:  r.deps.Config.Prompt("instagram_message", defaultMessagePrompt),
		Variables: vars,
	}

	var draft string
	start = time.Now()
	err = retry.Do(ctx, r.retry, func(ctx context.Context) error {
		var gerr error
		draft, gerr = r.deps.Generator.Generate(ctx, prompt)
		return gerr
	})
	logging.CollaboratorCall(r.log, "generator", time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("draft message for %s: %w", row.ProfileURL, err)
	}
	return draft, nil
}

// loadRows reads the newest uploaded CSV and returns its actionable rows.
func (r *messagingRunner) loadRows(ctx context.Context) ([]profiles.Record, error) {
	upload, err := r.deps.Uploads.Latest(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := profiles.Parse(upload.Data)
	if err != nil {
		return nil, err
	}
	rows := doc.Actionable()
	if len(rows) == 0 {
		return nil, core.ErrNoProfiles
	}
	return rows, nil
}

func (r *messagingRunner) username(row profiles.Record) string {
	if row.Username != "" {
		return row.Username
	}
	return ledger.UsernameFromURL(row.ProfileURL)
}

var _ core.StepRunner = (*messagingRunner)(nil)
