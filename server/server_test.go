package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorops/outreach/config"
	"github.com/creatorops/outreach/core"
	"github.com/creatorops/outreach/interrupt"
	"github.com/creatorops/outreach/ledger"
	"github.com/creatorops/outreach/manager"
	"github.com/creatorops/outreach/session"
	"github.com/creatorops/outreach/uploads"
	"github.com/creatorops/outreach/workflow"
)

const testCSV = "profile_url,username,skip\n" +
	"https://instagram.com/maker,maker,\n" +
	"https://instagram.com/artist,artist,\n"

type fakeGenerator struct{}

func (fakeGenerator) Generate(_ context.Context, p core.Prompt) (string, error) {
	return "draft for " + p.Variables["username"], nil
}

type fakeScraper struct{}

func (fakeScraper) FetchProfile(_ context.Context, username string) (*core.Profile, error) {
	return &core.Profile{Username: username, URL: "https://instagram.com/" + username}, nil
}

func (fakeScraper) SearchProfiles(_ context.Context, _ string, page, _ int) (*core.SearchPage, error) {
	return &core.SearchPage{Page: page}, nil
}

type fakeSender struct{ sent []string }

func (s *fakeSender) Send(_ context.Context, profileURL, _ string) error {
	s.sent = append(s.sent, profileURL)
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeSender) {
	t.Helper()

	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	ups := uploads.NewInMemoryStore()
	sender := &fakeSender{}
	executor := workflow.New(workflow.Deps{
		Config:    cfg,
		Generator: fakeGenerator{},
		Scraper:   fakeScraper{},
		Sender:    sender,
		Ledger:    ledger.NewInMemoryLedger(),
		Uploads:   ups,
		Broker:    interrupt.NewBroker(),
	})
	mgr := manager.New(session.NewInMemoryStore(), executor)

	srv := httptest.NewServer(New(mgr, ups, cfg).Handler())
	t.Cleanup(srv.Close)
	return srv, sender
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func postJSON(t *testing.T, url string, body any, out any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	var body struct {
		SessionID string `json:"session_id"`
	}
	resp := getJSON(t, srv.URL+"/create_session", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body.SessionID)
	return body.SessionID
}

func uploadCSV(t *testing.T, srv *httptest.Server, csv string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "profiles.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/upload_csv", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_HealthAndWorkflows(t *testing.T) {
	srv, _ := newTestServer(t)

	var health map[string]string
	resp := getJSON(t, srv.URL+"/health", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])

	var wf struct {
		Workflows []string `json:"workflows"`
	}
	getJSON(t, srv.URL+"/workflows", &wf)
	assert.Contains(t, wf.Workflows, "messaging")
	assert.Contains(t, wf.Workflows, "collaboration-search")
}

func TestServer_SessionStatusAndDelete(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	var status map[string]any
	resp := getJSON(t, srv.URL+"/session/"+id+"/status", &status)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, status["session_id"])
	assert.Equal(t, "idle", status["status"])

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/delete_session?session_id="+id, nil)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	resp = getJSON(t, srv.URL+"/session/"+id+"/status", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_GenerateMessagingFlow(t *testing.T) {
	srv, sender := newTestServer(t)
	uploadCSV(t, srv, testCSV)
	id := createSession(t, srv)

	var body completionResponse
	resp := postJSON(t, srv.URL+"/generate", map[string]any{
		"session_id":    id,
		"workflow_type": "messaging",
	}, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "awaiting_human_input", body.WorkflowStatus)
	require.NotNil(t, body.InterruptData)
	assert.Equal(t, "login_confirmation", body.InterruptData.Data["type"])
	require.Len(t, body.Choices, 1)
	assert.Equal(t, "interrupt", body.Choices[0].FinishReason)
	assert.Equal(t, "assistant", body.Choices[0].Message.Role)

	// Reply via the messages form.
	postJSON(t, srv.URL+"/generate", map[string]any{
		"session_id": id,
		"messages":   []map[string]string{{"role": "user", "content": "Start"}},
	}, &body)
	require.NotNil(t, body.InterruptData)
	assert.Equal(t, "message_confirmation", body.InterruptData.Data["type"])
	assert.Equal(t, "draft for maker", body.InterruptData.Data["message_text"])

	postJSON(t, srv.URL+"/generate", map[string]any{"session_id": id, "content": "Send"}, &body)
	postJSON(t, srv.URL+"/generate", map[string]any{"session_id": id, "content": "Send"}, &body)
	assert.Equal(t, "completed", body.WorkflowStatus)
	assert.Equal(t, "stop", body.Choices[0].FinishReason)
	assert.Len(t, sender.sent, 2)
}

func TestServer_GenerateParametersReachWorkflow(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	var body completionResponse
	resp := postJSON(t, srv.URL+"/generate", map[string]any{
		"session_id":    id,
		"workflow_type": "scraping",
		"parameters":    map[string]any{"usernames": []string{"maker"}},
	}, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body.WorkflowStatus)
	assert.Equal(t, 1, body.ResultCount)
	assert.Empty(t, body.Error)
}

func TestServer_GenerateLegacyParamsAlias(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	var body completionResponse
	resp := postJSON(t, srv.URL+"/generate", map[string]any{
		"session_id":    id,
		"workflow_type": "scraping",
		"params":        map[string]any{"usernames": []string{"maker", "artist"}},
	}, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body.WorkflowStatus)
	assert.Equal(t, 2, body.ResultCount)
}

func TestServer_GenerateErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/generate", map[string]any{"workflow_type": "messaging"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "missing session_id")

	resp = postJSON(t, srv.URL+"/generate", map[string]any{"session_id": "nope", "workflow_type": "messaging"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	id := createSession(t, srv)
	resp = postJSON(t, srv.URL+"/generate", map[string]any{"session_id": id, "workflow_type": "interpretive-dance"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_CancelOperationIsNoOpWhenIdle(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	var body map[string]any
	resp := postJSON(t, srv.URL+"/cancel_operation", map[string]any{
		"session_id":     id,
		"operation_type": "message",
	}, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "messaging", body["operation_type"], "legacy alias is normalized")
	assert.Equal(t, false, body["cancelled"])
}

func TestServer_CancelPausedWorkflow(t *testing.T) {
	srv, _ := newTestServer(t)
	uploadCSV(t, srv, testCSV)
	id := createSession(t, srv)

	postJSON(t, srv.URL+"/generate", map[string]any{"session_id": id, "workflow_type": "messaging"}, nil)

	var body map[string]any
	resp := postJSON(t, srv.URL+"/cancel_operation", map[string]any{
		"session_id":     id,
		"operation_type": "messaging",
	}, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["cancelled"])

	var status map[string]any
	getJSON(t, srv.URL+"/session/"+id+"/status", &status)
	assert.Equal(t, "cancelled", status["status"])
}

func TestServer_UploadCSVRejectsMissingColumn(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "bad.csv")
	fmt.Fprint(fw, "username\nmaker\n")
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/upload_csv", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_SaveCSVRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]any
	resp := postJSON(t, srv.URL+"/save_csv", map[string]any{
		"filename": "profiles.csv",
		"columns":  []string{"profile_url", "username", "skip"},
		"rows": []map[string]string{
			{"profile_url": "https://instagram.com/maker", "username": "maker", "skip": ""},
			{"profile_url": "https://instagram.com/crafts", "username": "crafts", "skip": "true"},
		},
	}, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "saved", body["status"])
	assert.Equal(t, float64(2), body["rows"])
}

func TestServer_ConfigRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	var got map[string]string
	resp := getJSON(t, srv.URL+"/get_config", &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, got["config"])

	updated := "instagram_message_workflow:\n  default_delay: 3\n  default_max_profiles: 2\n"
	resp = postJSON(t, srv.URL+"/save_config", map[string]string{"config": updated}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getJSON(t, srv.URL+"/get_config", &got)
	assert.Equal(t, updated, got["config"])

	resp = postJSON(t, srv.URL+"/save_config", map[string]string{"config": "prompts: [broken"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	getJSON(t, srv.URL+"/get_config", &got)
	assert.Equal(t, updated, got["config"], "rejected config left the document untouched")
}

func TestServer_InvalidReplyKeepsInterrupt(t *testing.T) {
	srv, _ := newTestServer(t)
	uploadCSV(t, srv, testCSV)
	id := createSession(t, srv)

	postJSON(t, srv.URL+"/generate", map[string]any{"session_id": id, "workflow_type": "messaging"}, nil)

	var body completionResponse
	resp := postJSON(t, srv.URL+"/generate", map[string]any{"session_id": id, "content": "gibberish"}, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "awaiting_human_input", body.WorkflowStatus)
	require.NotNil(t, body.InterruptData)
	assert.True(t, strings.HasPrefix(body.Choices[0].Message.Content, "Invalid reply"))
}
