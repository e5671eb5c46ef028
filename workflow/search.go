package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/creatorops/outreach/core"
	"github.com/creatorops/outreach/logging"
	"github.com/creatorops/outreach/retry"
)

const phaseSearch = "search"

// searchRunner discovers collaboration candidates through paginated profile
// search: one page per step, pausing between pages so the human decides
// whether the results so far are enough.
type searchRunner struct {
	deps  Deps
	retry retry.Config
	log   logging.Logger
}

func (r *searchRunner) RunStep(ctx context.Context, state *core.WorkflowState, input *core.StepInput) core.StepOutcome {
	if input != nil && input.Action == core.ActionStop {
		return core.DoneOutcome()
	}

	query := state.Param("query", state.Input)
	if query == "" {
		return core.FailedOutcome(fmt.Errorf("collaboration search needs a query"))
	}

	cfg := r.deps.Config.Document().Search
	perPage := state.IntParam("per_page", cfg.PerPage)
	maxPages := state.IntParam("max_pages", cfg.MaxPages)

	page := state.Cursor.Index + 1

	var result *core.SearchPage
	start := time.Now()
	err := retry.Do(ctx, r.retry, func(ctx context.Context) error {
		var serr error
		result, serr = r.deps.Scraper.SearchProfiles(ctx, query, page, perPage)
		return serr
	})
	logging.CollaboratorCall(r.log, "scraper", time.Since(start), err)
	if err != nil {
		return core.FailedOutcome(fmt.Errorf("search page %d for %q: %w", page, query, err))
	}

	items := make([]core.ResultItem, 0, len(result.Profiles))
	for _, p := range result.Profiles {
		items = append(items, core.NewResultItem("discovered_profile", profileData(&p)))
	}

	if !result.HasMore || page >= maxPages {
		return core.DoneOutcome(items...)
	}

	total := len(state.Results) + len(items)
	at := core.Cursor{Phase: phaseSearch, Index: page}
	return core.NeedsInputOutcome(at, r.deps.Broker.PageConfirmation(page, len(items), total), items...)
}

// profileData flattens a profile into a result payload.
func profileData(p *core.Profile) map[string]any {
	data := map[string]any{
		"username":    p.Username,
		"profile_url": p.URL,
	}
	if p.FullName != "" {
		data["full_name"] = p.FullName
	}
	if p.Biography != "" {
		data["biography"] = p.Biography
	}
	if p.Followers > 0 {
		data["followers"] = p.Followers
	}
	if p.IsBrand {
		data["is_brand"] = true
	}
	return data
}

var _ core.StepRunner = (*searchRunner)(nil)
