package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorops/outreach/core"
)

func searchPages() []*core.SearchPage {
	return []*core.SearchPage{
		{
			Page: 1,
			Profiles: []core.Profile{
				{Username: "maker", URL: "https://instagram.com/maker"},
				{Username: "crafts", URL: "https://instagram.com/crafts"},
			},
			HasMore: true,
		},
		{
			Page: 2,
			Profiles: []core.Profile{
				{Username: "artist", URL: "https://instagram.com/artist"},
			},
			HasMore: false,
		},
	}
}

func TestSearchRunner_PausesBetweenPages(t *testing.T) {
	deps, scraper, _, _ := testDeps(t)
	scraper.pages = searchPages()

	runner := &searchRunner{deps: deps, retry: fastRetry()}
	state := core.NewWorkflowState(core.KindCollaborationSearch, "ceramics", nil)

	outcome := runner.RunStep(context.Background(), state, nil)
	require.Equal(t, core.OutcomeNeedsInput, outcome.Kind)
	assert.Equal(t, core.InterruptPageConfirmation, outcome.Interrupt.Kind)
	assert.Len(t, outcome.Results, 2)
	assert.Equal(t, core.Cursor{Phase: phaseSearch, Index: 1}, outcome.Cursor)
	applyOutcome(t, state, outcome)

	outcome = runner.RunStep(context.Background(), state, &core.StepInput{Action: core.ActionContinue})
	require.Equal(t, core.OutcomeDone, outcome.Kind, "last page completes the run")
	assert.Len(t, outcome.Results, 1)
	applyOutcome(t, state, outcome)

	assert.Len(t, state.Results, 3)
}

func TestSearchRunner_StopKeepsResultsSoFar(t *testing.T) {
	deps, scraper, _, _ := testDeps(t)
	scraper.pages = searchPages()

	runner := &searchRunner{deps: deps, retry: fastRetry()}
	state := core.NewWorkflowState(core.KindCollaborationSearch, "ceramics", nil)

	outcome := runner.RunStep(context.Background(), state, nil)
	applyOutcome(t, state, outcome)

	outcome = runner.RunStep(context.Background(), state, &core.StepInput{Action: core.ActionStop})
	require.Equal(t, core.OutcomeDone, outcome.Kind)
	applyOutcome(t, state, outcome)

	assert.Equal(t, core.StatusCompleted, state.Status)
	assert.Len(t, state.Results, 2, "page one results survive the stop")
}

func TestSearchRunner_MaxPagesBound(t *testing.T) {
	deps, scraper, _, _ := testDeps(t)
	pages := searchPages()
	pages[1].HasMore = true // pretend there is always more
	scraper.pages = pages

	runner := &searchRunner{deps: deps, retry: fastRetry()}
	state := core.NewWorkflowState(core.KindCollaborationSearch, "ceramics", map[string]any{"max_pages": float64(2)})

	outcome := runner.RunStep(context.Background(), state, nil)
	require.Equal(t, core.OutcomeNeedsInput, outcome.Kind)
	applyOutcome(t, state, outcome)

	outcome = runner.RunStep(context.Background(), state, &core.StepInput{Action: core.ActionContinue})
	assert.Equal(t, core.OutcomeDone, outcome.Kind, "page bound reached")
}

func TestSearchRunner_MissingQueryFails(t *testing.T) {
	deps, _, _, _ := testDeps(t)
	runner := &searchRunner{deps: deps, retry: fastRetry()}
	state := core.NewWorkflowState(core.KindCollaborationSearch, "", nil)

	outcome := runner.RunStep(context.Background(), state, nil)
	assert.Equal(t, core.OutcomeFailed, outcome.Kind)
}

func TestSearchRunner_RetriesTransientFailures(t *testing.T) {
	deps, scraper, _, _ := testDeps(t)
	scraper.pages = searchPages()
	scraper.failFirst = 2

	runner := &searchRunner{deps: deps, retry: fastRetry()}
	state := core.NewWorkflowState(core.KindCollaborationSearch, "ceramics", nil)

	outcome := runner.RunStep(context.Background(), state, nil)
	assert.Equal(t, core.OutcomeNeedsInput, outcome.Kind, "two transient failures then success")
}

func TestSearchRunner_ExhaustedRetriesFailTheRun(t *testing.T) {
	deps, scraper, _, _ := testDeps(t)
	scraper.pages = searchPages()
	scraper.failFirst = 10

	runner := &searchRunner{deps: deps, retry: fastRetry()}
	state := core.NewWorkflowState(core.KindCollaborationSearch, "ceramics", nil)

	outcome := runner.RunStep(context.Background(), state, nil)
	require.Equal(t, core.OutcomeFailed, outcome.Kind)
	assert.Error(t, outcome.Err)
}
