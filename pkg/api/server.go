// Package api exposes the job execution core over HTTP. Every registered
// tool gets an invocation endpoint (POST /{tool}) and a status endpoint
// (GET /{tool}/status/{job_id}); job administration lives under /jobs.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmaia/remora/internal/core/domain"
	"github.com/dmaia/remora/internal/core/ports"
	"github.com/dmaia/remora/internal/core/services"
)

type Server struct {
	logger      *slog.Logger
	engine      *services.Engine
	store       *services.JobStore
	registry    *domain.ToolRegistry
	messages    *services.Messages
	bus         *services.EventBus
	journal     ports.Journal // optional
	validators  *RequestValidators
	openapiJSON []byte
	sweepMaxAge time.Duration
}

func NewServer(
	logger *slog.Logger,
	engine *services.Engine,
	store *services.JobStore,
	registry *domain.ToolRegistry,
	messages *services.Messages,
	bus *services.EventBus,
	journal ports.Journal,
	sweepMaxAge time.Duration,
) (*Server, error) {
	validators, err := NewRequestValidators(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to compile request validators: %w", err)
	}
	openapiJSON, err := BuildOpenAPIDocument(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to build openapi document: %w", err)
	}
	return &Server{
		logger:      logger,
		engine:      engine,
		store:       store,
		registry:    registry,
		messages:    messages,
		bus:         bus,
		journal:     journal,
		validators:  validators,
		openapiJSON: openapiJSON,
		sweepMaxAge: sweepMaxAge,
	}, nil
}

// Handler routes requests. Fixed administrative paths are matched first;
// anything else is treated as a tool invocation or tool status path.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case path == "/jobs" && r.Method == http.MethodGet:
			s.handleListJobs(w, r)
		case path == "/jobs" && r.Method == http.MethodDelete:
			s.handleDeleteAllJobs(w, r)
		case path == "/jobs/history" && r.Method == http.MethodGet:
			s.handleJobHistory(w, r)
		case path == "/jobs/sweep" && r.Method == http.MethodPost:
			s.handleSweep(w, r)
		case path == "/tools" && r.Method == http.MethodGet:
			s.handleListTools(w, r)
		case path == "/openapi.json" && r.Method == http.MethodGet:
			s.handleOpenAPI(w, r)
		case strings.HasPrefix(path, "/jobs/"):
			s.routeJob(w, r, strings.TrimPrefix(path, "/jobs/"))
		default:
			s.routeTool(w, r, strings.TrimPrefix(path, "/"))
		}
	})
}

// routeJob dispatches /jobs/{id}[...] paths.
func (s *Server) routeJob(w http.ResponseWriter, r *http.Request, rest string) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(rest, "/cancel"):
		s.handleCancelJob(w, r, domain.JobID(strings.TrimSuffix(rest, "/cancel")))
	case r.Method == http.MethodGet && strings.HasSuffix(rest, "/events"):
		s.handleJobEvents(w, r, domain.JobID(strings.TrimSuffix(rest, "/events")))
	case r.Method == http.MethodGet && !strings.Contains(rest, "/"):
		s.handleJobStatus(w, r, domain.JobID(rest))
	case r.Method == http.MethodDelete && !strings.Contains(rest, "/"):
		s.handleDeleteJob(w, r, domain.JobID(rest))
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// routeTool dispatches POST /{tool} and GET /{tool}/status/{job_id}.
func (s *Server) routeTool(w http.ResponseWriter, r *http.Request, rest string) {
	segments := strings.Split(rest, "/")
	switch {
	case r.Method == http.MethodPost && len(segments) == 1 && segments[0] != "":
		s.handleInvoke(w, r, segments[0])
	case r.Method == http.MethodGet && len(segments) == 3 && segments[1] == "status":
		s.handleToolStatus(w, r, segments[0], domain.JobID(segments[2]))
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleInvoke runs a registered tool. The request body is validated
// against the tool's declared parameter schema before any job is created;
// engine-level outcomes (pending, failed) still answer 200 inside the
// envelope.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request, toolName string) {
	if _, ok := s.registry.Lookup(toolName); !ok {
		writeError(w, http.StatusNotFound, "tool not found: "+toolName)
		return
	}

	params, err := decodeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.validators.Validate(toolName, params); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	envelope, err := s.engine.Invoke(r.Context(), toolName, params)
	if err != nil {
		if errors.Is(err, domain.ErrToolNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("invocation failed", "tool", toolName, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, envelope)
}

// handleToolStatus serves GET /{tool}/status/{job_id} with the same
// envelope shape as the invocation response.
func (s *Server) handleToolStatus(w http.ResponseWriter, _ *http.Request, toolName string, id domain.JobID) {
	envelope, err := s.engine.Status(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if envelope.ToolName != toolName {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, envelope)
}

// jobRow is one entry of the jobs listing.
type jobRow struct {
	JobID         domain.JobID     `json:"job_id"`
	ToolName      string           `json:"tool_name"`
	Status        domain.JobStatus `json:"status"`
	StatusMessage string           `json:"status_message"`
	CreatedAt     string           `json:"created_at"`
	UpdatedAt     string           `json:"updated_at"`
}

func (s *Server) jobRowFor(job domain.Job) jobRow {
	return jobRow{
		JobID:         job.ID,
		ToolName:      job.ToolName,
		Status:        job.Status,
		StatusMessage: s.messages.Render(job),
		CreatedAt:     job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     job.UpdatedAt.Format(time.RFC3339),
	}
}

// handleListJobs returns all jobs with human-readable status lines.
// Optional query filters: owner, status, tool_name, conversation_id
// (combined with AND).
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	jobs := s.store.List(services.ListFilter{
		Owner:          q.Get("owner"),
		Status:         domain.JobStatus(q.Get("status")),
		ToolName:       q.Get("tool_name"),
		ConversationID: q.Get("conversation_id"),
	})
	rows := make([]jobRow, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, s.jobRowFor(job))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": rows})
}

// handleJobStatus serves GET /jobs/{id}, the tool-agnostic status poll.
func (s *Server) handleJobStatus(w http.ResponseWriter, _ *http.Request, id domain.JobID) {
	job, err := s.store.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, s.jobRowFor(job))
}

// handleCancelJob cancels a job. Unknown ids, non-cancelable jobs and jobs
// already terminal share one failure class.
func (s *Server) handleCancelJob(w http.ResponseWriter, _ *http.Request, id domain.JobID) {
	envelope, ok := s.engine.Cancel(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found or not cancelable")
		return
	}
	writeJSON(w, http.StatusOK, envelope)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, _ *http.Request, id domain.JobID) {
	if err := s.store.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": fmt.Sprintf("Job %s deleted successfully", id)})
}

func (s *Server) handleDeleteAllJobs(w http.ResponseWriter, _ *http.Request) {
	count := s.store.DeleteAll()
	writeJSON(w, http.StatusOK, map[string]any{"message": fmt.Sprintf("Deleted %d jobs", count)})
}

// handleSweep removes jobs older than max_age_seconds (default: the
// configured sweep age). Job history is gone for the removed records.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	maxAge := s.sweepMaxAge
	if v := r.URL.Query().Get("max_age_seconds"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds < 0 {
			writeError(w, http.StatusBadRequest, "max_age_seconds must be a non-negative integer")
			return
		}
		maxAge = time.Duration(seconds) * time.Second
	}
	removed := s.engine.Sweep(maxAge)
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// handleJobHistory returns journaled terminal jobs, newest first.
func (s *Server) handleJobHistory(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSON(w, http.StatusOK, map[string]any{"jobs": []jobRow{}, "count": 0})
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	jobs, err := s.journal.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list job history", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	rows := make([]jobRow, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, s.jobRowFor(job))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": rows, "count": len(rows)})
}

// toolDTO is the JSON representation of a tool (the callable is excluded).
type toolDTO struct {
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Parameters    []domain.Parameter `json:"parameters"`
	SyncThreshold string             `json:"sync_threshold"`
	Cancelable    bool               `json:"cancelable"`
}

// handleListTools returns all registered tools with their schemas.
func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	tools := s.registry.List()
	dtos := make([]toolDTO, 0, len(tools))
	for _, t := range tools {
		params := t.Parameters
		if params == nil {
			params = []domain.Parameter{}
		}
		dtos = append(dtos, toolDTO{
			Name:          t.Name,
			Description:   t.Description,
			Parameters:    params,
			SyncThreshold: syncThresholdLabel(t.Policy.SyncThreshold),
			Cancelable:    t.Policy.Cancelable,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": dtos, "count": len(dtos)})
}

func syncThresholdLabel(threshold time.Duration) string {
	switch {
	case threshold < 0:
		return "block"
	case threshold == 0:
		return "none"
	default:
		return threshold.String()
	}
}

// handleOpenAPI serves the machine-readable tool catalog built at startup.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(s.openapiJSON)
}

// decodeParams reads the request body as a JSON object; an empty body is
// an empty parameter set.
func decodeParams(r *http.Request) (map[string]any, error) {
	params := map[string]any{}
	if r.Body == nil {
		return params, nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&params); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	return params, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
