package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/creatorops/outreach/core"
	"github.com/creatorops/outreach/logging"
	"github.com/creatorops/outreach/retry"
)

const phaseScrape = "scrape"

// scrapingRunner collects structured profile and post data for a list of
// usernames, one profile per step. An ambiguous lookup pauses the run on a
// disambiguation interrupt instead of guessing.
type scrapingRunner struct {
	deps  Deps
	retry retry.Config
	log   logging.Logger
}

func (r *scrapingRunner) RunStep(ctx context.Context, state *core.WorkflowState, input *core.StepInput) core.StepOutcome {
	usernames := r.usernames(state)
	if len(usernames) == 0 {
		return core.FailedOutcome(fmt.Errorf("scraping needs at least one username"))
	}

	idx := state.Cursor.Index
	if idx >= len(usernames) {
		return core.DoneOutcome()
	}
	target := usernames[idx]

	// A disambiguation reply names the exact account to scrape.
	if input != nil {
		if input.Action != core.ActionSelect {
			return core.FailedOutcome(fmt.Errorf("unexpected disambiguation reply action %q", input.Action))
		}
		target = input.Text
	}

	var profile *core.Profile
	start := time.Now()
	err := retry.Do(ctx, r.retry, func(ctx context.Context) error {
		var ferr error
		profile, ferr = r.deps.Scraper.FetchProfile(ctx, target)
		return ferr
	})
	logging.CollaboratorCall(r.log, "scraper", time.Since(start), err)
	if err != nil {
		return core.FailedOutcome(fmt.Errorf("scrape %s: %w", target, err))
	}

	if profile.Ambiguous() {
		at := core.Cursor{Phase: phaseScrape, Index: idx}
		return core.NeedsInputOutcome(at, r.deps.Broker.Disambiguation(target, profile.Candidates))
	}

	data := profileData(profile)
	if len(profile.Posts) > 0 {
		posts := make([]map[string]any, 0, len(profile.Posts))
		for _, post := range profile.Posts {
			posts = append(posts, map[string]any{
				"url":     post.URL,
				"caption": post.Caption,
				"likes":   post.Likes,
			})
		}
		data["posts"] = posts
	}
	item := core.NewResultItem("profile_data", data)

	next := core.Cursor{Phase: phaseScrape, Index: idx + 1}
	if next.Index >= len(usernames) {
		return core.DoneOutcome(item)
	}
	return core.ContinueOutcome(next, item)
}

// usernames reads the target list from params, falling back to the
// comma-separated request content.
func (r *scrapingRunner) usernames(state *core.WorkflowState) []string {
	if names := stringListParam(state, "usernames"); len(names) > 0 {
		return names
	}
	var names []string
	for _, part := range strings.Split(state.Input, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

var _ core.StepRunner = (*scrapingRunner)(nil)
