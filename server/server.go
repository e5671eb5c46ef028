// Package server exposes the session manager over HTTP for the dashboard.
// Route paths and response shapes are part of the dashboard contract and
// must not change.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/creatorops/outreach/config"
	"github.com/creatorops/outreach/core"
	"github.com/creatorops/outreach/logging"
	"github.com/creatorops/outreach/manager"
	"github.com/creatorops/outreach/profiles"
)

// Options configure the HTTP server.
type Options struct {
	// Logger receives request diagnostics.
	Logger logging.Logger
	// Workflows is the list reported by GET /workflows.
	Workflows []core.WorkflowKind
}

// Server wires the dashboard routes to the manager and its stores.
type Server struct {
	mgr       *manager.Manager
	uploads   core.UploadStore
	config    *config.Store
	workflows []core.WorkflowKind
	logger    logging.Logger
}

// New builds the HTTP server façade.
func New(mgr *manager.Manager, uploads core.UploadStore, cfg *config.Store, optFns ...func(o *Options)) *Server {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Workflows: []core.WorkflowKind{
			core.KindCollaborationSearch,
			core.KindScraping,
			core.KindMessaging,
			core.KindCaptionAnalysis,
		},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{
		mgr:       mgr,
		uploads:   uploads,
		config:    cfg,
		workflows: opts.Workflows,
		logger:    opts.Logger,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /create_session", s.handleCreateSession)
	mux.HandleFunc("GET /session/{id}/status", s.handleSessionStatus)
	mux.HandleFunc("DELETE /delete_session", s.handleDeleteSession)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("POST /cancel_operation", s.handleCancelOperation)
	mux.HandleFunc("POST /upload_csv", s.handleUploadCSV)
	mux.HandleFunc("POST /save_csv", s.handleSaveCSV)
	mux.HandleFunc("GET /get_config", s.handleGetConfig)
	mux.HandleFunc("POST /save_config", s.handleSaveConfig)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /workflows", s.handleWorkflows)
	return mux
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.mgr.CreateSession(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"session_id": sess.ID})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.mgr.Session(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	body := map[string]any{
		"session_id":        sess.ID,
		"status":            string(sess.Status()),
		"active_operations": kindsToStrings(s.mgr.ActiveOperations(id)),
		"created_at":        sess.Created.Format(time.RFC3339),
		"last_active_at":    sess.LastActive.Format(time.RFC3339),
	}
	if wf := sess.Workflow; wf != nil {
		body["workflow_type"] = string(wf.Kind)
		body["result_count"] = len(wf.Results)
		if wf.Error != "" {
			body["error"] = wf.Error
		}
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		s.writeStatus(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if err := s.mgr.DeleteSession(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "session_id": id})
}

// generateRequest accepts both a plain content field and an OpenAI-style
// messages list; the last user message wins. Workflow parameters arrive in
// "parameters"; "params" is kept as an alias for older dashboard builds.
type generateRequest struct {
	SessionID    string         `json:"session_id"`
	WorkflowType string         `json:"workflow_type"`
	Content      string         `json:"content"`
	Parameters   map[string]any `json:"parameters"`
	Params       map[string]any `json:"params"`
	Messages     []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func (req *generateRequest) content() string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" && req.Messages[i].Content != "" {
			return req.Messages[i].Content
		}
	}
	return req.Content
}

func (req *generateRequest) parameters() map[string]any {
	if req.Parameters != nil {
		return req.Parameters
	}
	return req.Params
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		s.writeStatus(w, http.StatusBadRequest, "session_id is required")
		return
	}

	var kind core.WorkflowKind
	if req.WorkflowType != "" {
		parsed, err := core.ParseWorkflowKind(req.WorkflowType)
		if err != nil {
			s.writeStatus(w, http.StatusBadRequest, err.Error())
			return
		}
		kind = parsed
	}

	resp, err := s.mgr.Generate(r.Context(), manager.GenerateRequest{
		SessionID: req.SessionID,
		Workflow:  kind,
		Content:   req.content(),
		Params:    req.parameters(),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, completionBody(resp))
}

type cancelRequest struct {
	SessionID     string `json:"session_id"`
	OperationType string `json:"operation_type"`
}

func (s *Server) handleCancelOperation(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		s.writeStatus(w, http.StatusBadRequest, "session_id is required")
		return
	}
	kind, err := core.ParseWorkflowKind(req.OperationType)
	if err != nil {
		s.writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	// Cancelling an operation that is not running is a harmless no-op; the
	// dashboard retries cancels freely.
	flagged, err := s.mgr.CancelOperation(r.Context(), req.SessionID, kind)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"session_id":     req.SessionID,
		"operation_type": string(kind),
		"cancelled":      flagged,
	})
}

func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeStatus(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeStatus(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}
	doc, err := profiles.Parse(data)
	if err != nil {
		s.writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.uploads.Put(r.Context(), header.Filename, data); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "uploaded",
		"filename":   header.Filename,
		"rows":       len(doc.Records),
		"actionable": len(doc.Actionable()),
	})
}

type saveCSVRequest struct {
	Filename string              `json:"filename"`
	Columns  []string            `json:"columns"`
	Rows     []map[string]string `json:"rows"`
}

func (s *Server) handleSaveCSV(w http.ResponseWriter, r *http.Request) {
	var req saveCSVRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Rows) == 0 {
		s.writeStatus(w, http.StatusBadRequest, "rows are required")
		return
	}
	if req.Filename == "" {
		req.Filename = "profiles.csv"
	}
	if len(req.Columns) == 0 {
		s.writeStatus(w, http.StatusBadRequest, "columns are required")
		return
	}

	doc := profiles.FromMaps(req.Rows, req.Columns)
	data, err := profiles.Marshal(doc)
	if err != nil {
		s.writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.uploads.Put(r.Context(), req.Filename, data); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "saved",
		"filename": req.Filename,
		"rows":     len(doc.Records),
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"config": s.config.Raw()})
}

type saveConfigRequest struct {
	Config string `json:"config"`
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var req saveConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.config.Save(req.Config); err != nil {
		s.writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "saved"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"workflows": kindsToStrings(s.workflows)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("write response", "error", err)
	}
}

func (s *Server) writeStatus(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]any{"detail": detail})
}

// writeError maps engine sentinels onto the status codes the dashboard
// expects.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrSessionNotFound):
		s.writeStatus(w, http.StatusNotFound, "session not found")
	case errors.Is(err, core.ErrBusy):
		s.writeStatus(w, http.StatusConflict, "operation already in progress")
	case errors.Is(err, core.ErrUnknownWorkflow):
		s.writeStatus(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNoProfiles):
		s.writeStatus(w, http.StatusBadRequest, "no profiles uploaded")
	default:
		s.logger.Error("request failed", "error", err)
		s.writeStatus(w, http.StatusInternalServerError, err.Error())
	}
}

func kindsToStrings(kinds []core.WorkflowKind) []string {
	out := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		out = append(out, string(kind))
	}
	return out
}
