package analysisd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/calibration-core/internal/dataio"
	"github.com/GoSim-25-26J-441/calibration-core/internal/pipeline"
	"github.com/GoSim-25-26J-441/calibration-core/internal/report"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/config"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/logger"
)

var (
	ErrAnalysisNotFound  = errors.New("analysis not found")
	ErrAnalysisTerminal  = errors.New("analysis is terminal")
	ErrAnalysisIDMissing = errors.New("analysis_id is required")
	ErrInvalidConfig     = errors.New("invalid config")
)

// SubmitRequest is a raw analysis submission as received over HTTP or gRPC.
type SubmitRequest struct {
	AnalysisID      string `json:"analysis_id,omitempty"`
	ConfigYAML      string `json:"config_yaml,omitempty"`
	CSV             string `json:"csv"`
	DiagnosticsOnly bool   `json:"diagnostics_only,omitempty"`
	CallbackURL     string `json:"callback_url,omitempty"`
	CallbackSecret  string `json:"callback_secret,omitempty"`
}

// Executor parses submissions and runs the pipeline for each one in its own
// goroutine, with per-analysis cancellation.
type Executor struct {
	store    *Store
	notifier *Notifier

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	done    map[string]chan struct{}
}

func NewExecutor(store *Store, notifier *Notifier) *Executor {
	return &Executor{
		store:    store,
		notifier: notifier,
		cancels:  make(map[string]context.CancelFunc),
		done:     make(map[string]chan struct{}),
	}
}

// Parse validates a submission without storing it. Config problems wrap
// ErrInvalidConfig; table problems are *pipeline.InputError.
func Parse(req SubmitRequest) (*Input, error) {
	cfg := config.Default()
	if strings.TrimSpace(req.ConfigYAML) != "" {
		var err error
		if cfg, err = config.ParseConfigYAMLString(req.ConfigYAML); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if strings.TrimSpace(req.CSV) == "" {
		return nil, &pipeline.InputError{Stage: pipeline.StageLoad, Reason: "csv is required"}
	}

	ds, err := dataio.ParseCSV(strings.NewReader(req.CSV), dataio.OptionsFromConfig(cfg.Input))
	if err != nil {
		return nil, err
	}
	return &Input{
		Config:          cfg,
		Dataset:         ds,
		DiagnosticsOnly: req.DiagnosticsOnly,
		CallbackURL:     req.CallbackURL,
		CallbackSecret:  req.CallbackSecret,
	}, nil
}

// Submit parses, stores and starts an analysis.
func (e *Executor) Submit(req SubmitRequest) (Record, error) {
	input, err := Parse(req)
	if err != nil {
		return Record{}, err
	}
	rec, err := e.store.Create(req.AnalysisID, input)
	if err != nil {
		return Record{}, err
	}
	logger.Info("analysis created", "analysis_id", rec.Analysis.ID, "runs", input.Dataset.Len())
	return e.Start(rec.Analysis.ID)
}

// Start begins executing a pending analysis asynchronously.
func (e *Executor) Start(id string) (Record, error) {
	if id == "" {
		return Record{}, ErrAnalysisIDMissing
	}
	rec, ok := e.store.Get(id)
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrAnalysisNotFound, id)
	}
	switch {
	case rec.Analysis.Status == StatusRunning:
		return rec, nil
	case rec.Analysis.Status.Terminal():
		return Record{}, fmt.Errorf("%w: %s", ErrAnalysisTerminal, id)
	}

	updated, err := e.store.SetStatus(id, StatusRunning, "", "")
	if err != nil {
		return Record{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.mu.Lock()
	if old, exists := e.cancels[id]; exists {
		old()
	}
	e.cancels[id] = cancel
	e.done[id] = done
	e.mu.Unlock()

	go e.runAnalysis(ctx, id, done)
	return updated, nil
}

// Cancel stops a running analysis and marks it cancelled. Cancelling a
// finished analysis returns its final state unchanged.
func (e *Executor) Cancel(id string) (Record, error) {
	if id == "" {
		return Record{}, ErrAnalysisIDMissing
	}

	e.mu.Lock()
	cancel, ok := e.cancels[id]
	e.mu.Unlock()
	if ok {
		cancel()
	}

	updated, err := e.store.SetStatus(id, StatusCancelled, "", "")
	if err != nil {
		return Record{}, err
	}
	return updated, nil
}

// Wait blocks until the analysis goroutine for id has finished or ctx ends.
// It returns immediately for unknown or never-started analyses.
func (e *Executor) Wait(ctx context.Context, id string) error {
	e.mu.Lock()
	done, ok := e.done[id]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) cleanup(id string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[id]; ok {
		cancel()
		delete(e.cancels, id)
	}
	e.mu.Unlock()
}

// errorKind classifies pipeline errors for API consumers.
func errorKind(err error) string {
	var (
		inputErr      *pipeline.InputError
		degenerateErr *pipeline.DegenerateInputError
		computeErr    *pipeline.ComputationError
	)
	switch {
	case errors.As(err, &inputErr):
		return "input"
	case errors.As(err, &degenerateErr):
		return "degenerate"
	case errors.As(err, &computeErr):
		return "computation"
	default:
		return "internal"
	}
}

func (e *Executor) runAnalysis(ctx context.Context, id string, done chan struct{}) {
	defer close(done)
	defer e.cleanup(id)

	rec, ok := e.store.Get(id)
	if !ok {
		logger.Error("analysis not found", "analysis_id", id)
		return
	}
	in := rec.Input
	start := time.Now()

	run := pipeline.Run
	if in.DiagnosticsOnly {
		run = pipeline.RunDiagnostics
	}
	res, err := run(ctx, in.Dataset, pipeline.OptionsFromConfig(in.Config.Analysis))
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("analysis cancelled", "analysis_id", id)
			e.finish(id, StatusCancelled, "", "")
			return
		}
		logger.Error("analysis failed", "analysis_id", id, "error", err)
		e.finish(id, StatusFailed, err.Error(), errorKind(err))
		return
	}

	bundle := report.NewBundle(id, "", res)
	var md bytes.Buffer
	if err := report.WriteMarkdown(&md, report.Input{GeneratedAt: time.Now(), Result: res}); err != nil {
		logger.Error("failed to render report", "analysis_id", id, "error", err)
		e.finish(id, StatusFailed, err.Error(), "internal")
		return
	}
	if err := e.store.SetOutputs(id, res, bundle, md.Bytes()); err != nil {
		logger.Error("failed to store outputs", "analysis_id", id, "error", err)
		return
	}

	logger.Info("analysis completed", "analysis_id", id,
		"selected", res.Best.Len(),
		"duration", time.Since(start))
	e.finish(id, StatusCompleted, "", "")
}

// finish records a terminal status unless one is already set, then notifies
// the callback URL of the analysis, if any.
func (e *Executor) finish(id string, status Status, errMsg, errKind string) {
	rec, err := e.store.SetStatus(id, status, errMsg, errKind)
	if err != nil {
		logger.Error("failed to set status", "analysis_id", id, "status", status, "error", err)
		return
	}
	if e.notifier != nil && rec.Input != nil {
		e.notifier.Notify(rec.Input.CallbackURL, rec.Input.CallbackSecret, rec)
	}
}
