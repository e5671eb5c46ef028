package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutreachLogger_EmitsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf}).
		WithComponent("workflow").
		WithContext("session_id", "sess-1")

	logger.Info("step executed", "outcome", "continue")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "step executed", entry["msg"])
	assert.Equal(t, "workflow", entry["component"])
	assert.Equal(t, "sess-1", entry["session_id"])
	assert.Equal(t, "continue", entry["outcome"])
}

func TestOutreachLogger_LevelGate(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "text", Output: &buf})

	logger.Info("quiet")
	assert.Empty(t, buf.String())

	logger.Warn("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestOutreachLogger_CloneDoesNotLeakContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf})
	scoped := base.WithContext("session_id", "sess-1")
	_ = scoped

	base.Info("bare")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, leaked := entry["session_id"]
	assert.False(t, leaked)
}

type recordingLogger struct {
	msgs []string
}

func (r *recordingLogger) Debug(msg string, _ ...any) { r.msgs = append(r.msgs, msg) }
func (r *recordingLogger) Info(msg string, _ ...any)  { r.msgs = append(r.msgs, msg) }
func (r *recordingLogger) Warn(msg string, _ ...any)  { r.msgs = append(r.msgs, msg) }
func (r *recordingLogger) Error(msg string, _ ...any) { r.msgs = append(r.msgs, msg) }

func TestDomainHelpers(t *testing.T) {
	rec := &recordingLogger{}

	StepExecution(rec, "messaging", "profiles", 2, "continue", time.Millisecond)
	CollaboratorCall(rec, "scraper", time.Millisecond, nil)
	CollaboratorCall(rec, "scraper", time.Millisecond, errors.New("rate limited"))
	WorkflowRun(rec, "sess-1", "messaging", "completed", 4, time.Second)

	require.Equal(t, []string{
		"step executed",
		"collaborator call completed",
		"collaborator call failed",
		"workflow run returned",
	}, rec.msgs)
}

func TestDomainHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		StepExecution(nil, "scraping", "profiles", 0, "done", 0)
		CollaboratorCall(nil, "sender", 0, nil)
		WorkflowRun(nil, "sess-1", "scraping", "completed", 1, 0)
	})
}
