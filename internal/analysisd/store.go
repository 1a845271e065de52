package analysisd

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/calibration-core/internal/pipeline"
	"github.com/GoSim-25-26J-441/calibration-core/internal/report"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/config"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/utils"
)

// Status is the lifecycle state of an analysis.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ParseStatus maps a status name to a Status; unknown names give "".
func ParseStatus(s string) Status {
	switch st := Status(strings.ToLower(s)); st {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return st
	default:
		return ""
	}
}

// Analysis is the externally visible state of one submitted analysis.
type Analysis struct {
	ID              string `json:"id"`
	Status          Status `json:"status"`
	DiagnosticsOnly bool   `json:"diagnostics_only,omitempty"`
	CreatedAtUnixMs int64  `json:"created_at_unix_ms"`
	StartedAtUnixMs int64  `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64  `json:"ended_at_unix_ms,omitempty"`
	Error           string `json:"error,omitempty"`
	// ErrorKind classifies Error: input, degenerate, computation or internal.
	ErrorKind string `json:"error_kind,omitempty"`
}

// Input is a parsed submission.
type Input struct {
	Config          *config.Config
	Dataset         *models.Dataset
	DiagnosticsOnly bool
	CallbackURL     string
	CallbackSecret  string
}

// Record is a stored analysis with its input and, once completed, its outputs.
type Record struct {
	Analysis Analysis
	Input    *Input
	Result   *pipeline.Result
	Bundle   *report.Bundle
	Report   []byte
}

var (
	ErrAnalysisExists = errors.New("analysis already exists")
	ErrInvalidID      = errors.New("invalid analysis id")
)

// Store is an in-memory analysis registry. Get and List return copies, so
// callers never observe a record mid-update.
type Store struct {
	mu       sync.RWMutex
	analyses map[string]*Record
}

func NewStore() *Store {
	return &Store{
		analyses: make(map[string]*Record),
	}
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

// Create registers a pending analysis. An empty id is generated.
func (s *Store) Create(id string, input *Input) (Record, error) {
	if id == "" {
		id = utils.GenerateAnalysisID()
	}
	if strings.ContainsAny(id, "/: ") {
		return Record{}, fmt.Errorf("%w: %q cannot contain '/', ':' or spaces", ErrInvalidID, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.analyses[id]; exists {
		return Record{}, fmt.Errorf("%w: %s", ErrAnalysisExists, id)
	}

	rec := &Record{
		Analysis: Analysis{
			ID:              id,
			Status:          StatusPending,
			DiagnosticsOnly: input != nil && input.DiagnosticsOnly,
			CreatedAtUnixMs: nowUnixMs(),
		},
		Input: input,
	}
	s.analyses[id] = rec
	return *rec, nil
}

func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.analyses[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// List returns analyses ordered by creation time, optionally filtered by
// status. limit <= 0 means 50.
func (s *Store) List(limit, offset int, status Status) []Analysis {
	s.mu.RLock()
	out := make([]Analysis, 0, len(s.analyses))
	for _, rec := range s.analyses {
		if status != "" && rec.Analysis.Status != status {
			continue
		}
		out = append(out, rec.Analysis)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUnixMs != out[j].CreatedAtUnixMs {
			return out[i].CreatedAtUnixMs < out[j].CreatedAtUnixMs
		}
		return out[i].ID < out[j].ID
	})

	if limit <= 0 {
		limit = 50
	}
	if offset >= len(out) {
		return []Analysis{}
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SetStatus moves an analysis to status. Terminal states are final: a
// transition out of one is ignored and the current state returned.
func (s *Store) SetStatus(id string, status Status, errMsg, errKind string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.analyses[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrAnalysisNotFound, id)
	}
	if rec.Analysis.Status.Terminal() {
		return *rec, nil
	}

	rec.Analysis.Status = status
	if errMsg != "" {
		rec.Analysis.Error = errMsg
		rec.Analysis.ErrorKind = errKind
	}

	switch status {
	case StatusRunning:
		if rec.Analysis.StartedAtUnixMs == 0 {
			rec.Analysis.StartedAtUnixMs = nowUnixMs()
		}
	case StatusCompleted, StatusFailed, StatusCancelled:
		rec.Analysis.EndedAtUnixMs = nowUnixMs()
	}
	return *rec, nil
}

// SetOutputs attaches the results of a finished pipeline run.
func (s *Store) SetOutputs(id string, res *pipeline.Result, bundle *report.Bundle, markdown []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.analyses[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAnalysisNotFound, id)
	}
	rec.Result = res
	rec.Bundle = bundle
	rec.Report = markdown
	return nil
}
