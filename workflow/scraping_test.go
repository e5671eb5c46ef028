package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorops/outreach/core"
)

func TestScrapingRunner_OneProfilePerStep(t *testing.T) {
	deps, scraper, _, _ := testDeps(t)
	scraper.profiles["maker"] = &core.Profile{
		Username: "maker",
		URL:      "https://instagram.com/maker",
		Posts:    []core.Post{{URL: "https://instagram.com/p/1", Caption: "new glaze", Likes: 42}},
	}

	runner := &scrapingRunner{deps: deps, retry: fastRetry()}
	state := core.NewWorkflowState(core.KindScraping, "maker, artist", nil)

	outcome := runner.RunStep(context.Background(), state, nil)
	require.Equal(t, core.OutcomeContinue, outcome.Kind)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "profile_data", outcome.Results[0].Kind)
	assert.Equal(t, "maker", outcome.Results[0].Data["username"])
	assert.NotNil(t, outcome.Results[0].Data["posts"])
	applyOutcome(t, state, outcome)

	outcome = runner.RunStep(context.Background(), state, nil)
	require.Equal(t, core.OutcomeDone, outcome.Kind)
	applyOutcome(t, state, outcome)
	assert.Len(t, state.Results, 2)
}

func TestScrapingRunner_AmbiguousLookupPausesForDisambiguation(t *testing.T) {
	deps, scraper, _, _ := testDeps(t)
	scraper.profiles["maker"] = &core.Profile{
		Username:   "maker",
		Candidates: []string{"maker_ceramics", "maker.studio"},
	}
	scraper.profiles["maker_ceramics"] = &core.Profile{
		Username: "maker_ceramics",
		URL:      "https://instagram.com/maker_ceramics",
	}

	runner := &scrapingRunner{deps: deps, retry: fastRetry()}
	state := core.NewWorkflowState(core.KindScraping, "maker", nil)

	outcome := runner.RunStep(context.Background(), state, nil)
	require.Equal(t, core.OutcomeNeedsInput, outcome.Kind)
	require.Equal(t, core.InterruptDisambiguation, outcome.Interrupt.Kind)
	assert.Equal(t, []string{"maker_ceramics", "maker.studio"}, outcome.Interrupt.Options)
	applyOutcome(t, state, outcome)

	outcome = runner.RunStep(context.Background(), state, &core.StepInput{Action: core.ActionSelect, Text: "maker_ceramics"})
	require.Equal(t, core.OutcomeDone, outcome.Kind)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "maker_ceramics", outcome.Results[0].Data["username"])
}

func TestScrapingRunner_ParamsListWinsOverContent(t *testing.T) {
	deps, _, _, _ := testDeps(t)
	runner := &scrapingRunner{deps: deps, retry: fastRetry()}
	state := core.NewWorkflowState(core.KindScraping, "ignored", map[string]any{
		"usernames": []any{"solo"},
	})

	outcome := runner.RunStep(context.Background(), state, nil)
	require.Equal(t, core.OutcomeDone, outcome.Kind)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "solo", outcome.Results[0].Data["username"])
}

func TestScrapingRunner_NoTargetsFails(t *testing.T) {
	deps, _, _, _ := testDeps(t)
	runner := &scrapingRunner{deps: deps, retry: fastRetry()}
	state := core.NewWorkflowState(core.KindScraping, "", nil)

	outcome := runner.RunStep(context.Background(), state, nil)
	assert.Equal(t, core.OutcomeFailed, outcome.Kind)
}

func TestCaptionsRunner_OneVideoPerStep(t *testing.T) {
	deps, _, _, gen := testDeps(t)
	runner := &captionsRunner{deps: deps, retry: fastRetry()}
	state := core.NewWorkflowState(core.KindCaptionAnalysis, "video1.mp4\nvideo2.mp4", nil)

	outcome := runner.RunStep(context.Background(), state, nil)
	require.Equal(t, core.OutcomeContinue, outcome.Kind)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "caption", outcome.Results[0].Kind)
	assert.Equal(t, "draft for video1.mp4", outcome.Results[0].Data["caption"])
	applyOutcome(t, state, outcome)

	outcome = runner.RunStep(context.Background(), state, nil)
	require.Equal(t, core.OutcomeDone, outcome.Kind)
	assert.Equal(t, 2, gen.calls)
}

func TestCaptionsRunner_GeneratorFailureFailsRun(t *testing.T) {
	deps, _, _, gen := testDeps(t)
	gen.fail = core.Permanent("generator", assert.AnError)

	runner := &captionsRunner{deps: deps, retry: fastRetry()}
	state := core.NewWorkflowState(core.KindCaptionAnalysis, "video1.mp4", nil)

	outcome := runner.RunStep(context.Background(), state, nil)
	assert.Equal(t, core.OutcomeFailed, outcome.Kind)
}

func TestExecutor_DispatchesByKind(t *testing.T) {
	deps, _, _, _ := testDeps(t)
	exec := New(deps)

	assert.ElementsMatch(t, []core.WorkflowKind{
		core.KindMessaging,
		core.KindCollaborationSearch,
		core.KindScraping,
		core.KindCaptionAnalysis,
	}, exec.Kinds())

	state := core.NewWorkflowState(core.KindMessaging, "", nil)
	outcome := exec.RunStep(context.Background(), state, nil)
	assert.Equal(t, core.OutcomeNeedsInput, outcome.Kind)

	state.Kind = core.WorkflowKind("bogus")
	outcome = exec.RunStep(context.Background(), state, nil)
	require.Equal(t, core.OutcomeFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, core.ErrUnknownWorkflow)
}
