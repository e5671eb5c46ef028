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

const phaseVideos = "videos"

const defaultCaptionPrompt = "Write an engaging Instagram caption with 5-10 relevant hashtags " +
	"for this video: {video}. Return the caption followed by the hashtags."

// captionsRunner generates captions and hashtags for a list of videos, one
// video per step. It is the only workflow that never pauses on an
// interrupt, so it still cancels cleanly between videos.
type captionsRunner struct {
	deps  Deps
	retry retry.Config
	log   logging.Logger
}

func (r *captionsRunner) RunStep(ctx context.Context, state *core.WorkflowState, _ *core.StepInput) core.StepOutcome {
	videos := r.videos(state)
	if len(videos) == 0 {
		return core.FailedOutcome(fmt.Errorf("caption analysis needs at least one video"))
	}

	idx := state.Cursor.Index
	if idx >= len(videos) {
		return core.DoneOutcome()
	}
	video := videos[idx]

	prompt := core.Prompt{
		Template:  r.deps.Config.Prompt("caption_analysis", defaultCaptionPrompt),
		Variables: map[string]string{"video": video},
	}

	var caption string
	start := time.Now()
	err := retry.Do(ctx, r.retry, func(ctx context.Context) error {
		var gerr error
		caption, gerr = r.deps.Generator.Generate(ctx, prompt)
		return gerr
	})
	logging.CollaboratorCall(r.log, "generator", time.Since(start), err)
	if err != nil {
		return core.FailedOutcome(fmt.Errorf("caption video %s: %w", video, err))
	}

	item := core.NewResultItem("caption", map[string]any{
		"video":   video,
		"caption": caption,
	})

	next := core.Cursor{Phase: phaseVideos, Index: idx + 1}
	if next.Index >= len(videos) {
		return core.DoneOutcome(item)
	}
	return core.ContinueOutcome(next, item)
}

// videos reads the target list from params, falling back to one video per
// request-content line.
func (r *captionsRunner) videos(state *core.WorkflowState) []string {
	if vids := stringListParam(state, "videos"); len(vids) > 0 {
		return vids
	}
	var vids []string
	for _, line := range strings.Split(state.Input, "\n") {
		if v := strings.TrimSpace(line); v != "" {
			vids = append(vids, v)
		}
	}
	return vids
}

var _ core.StepRunner = (*captionsRunner)(nil)
