package analysisd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/calibration-core/internal/pipeline"
	"github.com/GoSim-25-26J-441/calibration-core/internal/report"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/logger"
)

// maxSubmitBytes bounds the size of a submission body.
const maxSubmitBytes = 64 << 20

type HTTPServer struct {
	mux      *http.ServeMux
	store    *Store
	Executor *Executor
}

func NewHTTPServer(store *Store, executor *Executor) *HTTPServer {
	s := &HTTPServer{
		mux:      http.NewServeMux(),
		store:    store,
		Executor: executor,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/analyses", s.handleAnalyses)
	s.mux.HandleFunc("/v1/analyses/", s.handleAnalysisByID)

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleAnalyses handles /v1/analyses
func (s *HTTPServer) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmit(w, r)
	case http.MethodGet:
		s.handleList(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleAnalysisByID handles /v1/analyses/{id}, /{id}/report, /{id}/export
// and /{id}:cancel
func (s *HTTPServer) handleAnalysisByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/analyses/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "analysis ID is required")
		return
	}

	route := func(suffix, method string, h func(http.ResponseWriter, *http.Request, string)) bool {
		if !strings.HasSuffix(path, suffix) {
			return false
		}
		if r.Method != method {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return true
		}
		h(w, r, strings.TrimSuffix(path, suffix))
		return true
	}

	switch {
	case route(":cancel", http.MethodPost, s.handleCancel):
	case route("/report", http.MethodGet, s.handleReport):
	case route("/export", http.MethodGet, s.handleExport):
	case r.Method == http.MethodGet:
		s.handleGet(w, r, path)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSubmit handles POST /v1/analyses
func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rec, err := s.Executor.Submit(req)
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}

	logger.Info("analysis submitted (HTTP)", "analysis_id", rec.Analysis.ID)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"analysis": rec.Analysis,
	})
}

// handleList handles GET /v1/analyses with pagination and status filtering
func (s *HTTPServer) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = min(parsed, 1000)
		}
	}
	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	var status Status
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		if status = ParseStatus(statusStr); status == "" {
			s.writeError(w, http.StatusBadRequest, "unknown status: "+statusStr)
			return
		}
	}

	analyses := s.store.List(limit, offset, status)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"analyses": analyses,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(analyses),
		},
	})
}

// handleGet handles GET /v1/analyses/{id}
func (s *HTTPServer) handleGet(w http.ResponseWriter, _ *http.Request, id string) {
	rec, ok := s.store.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "analysis not found")
		return
	}

	resp := map[string]any{"analysis": rec.Analysis}
	if rec.Bundle != nil {
		resp["result"] = rec.Bundle
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleReport handles GET /v1/analyses/{id}/report
func (s *HTTPServer) handleReport(w http.ResponseWriter, _ *http.Request, id string) {
	rec, ok := s.store.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if rec.Report == nil {
		s.writeError(w, http.StatusPreconditionFailed, "report not available")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(rec.Report); err != nil {
		logger.Error("failed to write report", "analysis_id", id, "error", err)
	}
}

// handleExport handles GET /v1/analyses/{id}/export[?compress=zstd]
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, id string) {
	rec, ok := s.store.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if rec.Bundle == nil {
		s.writeError(w, http.StatusPreconditionFailed, "results not available")
		return
	}

	compress := false
	switch c := r.URL.Query().Get("compress"); c {
	case "":
	case "zstd":
		compress = true
	default:
		s.writeError(w, http.StatusBadRequest, "unsupported compression: "+c)
		return
	}

	if compress {
		w.Header().Set("Content-Type", "application/zstd")
		w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.json.zst"`)
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	if err := report.WriteBundle(w, rec.Bundle, compress); err != nil {
		logger.Error("failed to write export", "analysis_id", id, "error", err)
	}
}

// handleCancel handles POST /v1/analyses/{id}:cancel
func (s *HTTPServer) handleCancel(w http.ResponseWriter, _ *http.Request, id string) {
	updated, err := s.Executor.Cancel(id)
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}

	logger.Info("analysis cancelled (HTTP)", "analysis_id", id)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"analysis": updated.Analysis,
	})
}

// statusForError maps executor and pipeline errors to HTTP status codes.
func statusForError(err error) int {
	var (
		inputErr      *pipeline.InputError
		degenerateErr *pipeline.DegenerateInputError
	)
	switch {
	case errors.Is(err, ErrAnalysisNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAnalysisExists):
		return http.StatusConflict
	case errors.Is(err, ErrAnalysisIDMissing), errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, ErrAnalysisTerminal):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrInvalidConfig), errors.As(err, &inputErr), errors.As(err, &degenerateErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
