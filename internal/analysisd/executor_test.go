package analysisd

import (
	"errors"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/calibration-core/internal/pipeline"
)

func TestExecutorSubmitCompletes(t *testing.T) {
	store, executor := newTestExecutor()

	rec, err := executor.Submit(SubmitRequest{AnalysisID: "a1", ConfigYAML: testConfigYAML, CSV: sampleCSV(40)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Analysis.Status != StatusRunning {
		t.Fatalf("expected running, got %s", rec.Analysis.Status)
	}

	final := waitTerminal(t, store, executor, "a1")
	if final.Analysis.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", final.Analysis.Status, final.Analysis.Error)
	}
	if final.Bundle == nil || final.Bundle.K != 3 || final.Bundle.Selected != 20 {
		t.Fatalf("unexpected bundle: %+v", final.Bundle)
	}
	if !strings.Contains(string(final.Report), "# Calibration Analysis Report") {
		t.Fatalf("expected markdown report")
	}
}

func TestExecutorDiagnosticsOnly(t *testing.T) {
	store, executor := newTestExecutor()

	if _, err := executor.Submit(SubmitRequest{AnalysisID: "d1", ConfigYAML: testConfigYAML, CSV: sampleCSV(30), DiagnosticsOnly: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	final := waitTerminal(t, store, executor, "d1")
	if final.Analysis.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", final.Analysis.Status, final.Analysis.Error)
	}
	if final.Bundle.K != 0 || len(final.Bundle.Diagnostics.Inertia) != 3 {
		t.Fatalf("expected diagnostics only, got k=%d with %d points", final.Bundle.K, len(final.Bundle.Diagnostics.Inertia))
	}
}

func TestExecutorFailureKind(t *testing.T) {
	store, executor := newTestExecutor()
	cfg := "analysis:\n  optimal_k: 50\n  k_range: {min: 2, max: 3}\n"

	if _, err := executor.Submit(SubmitRequest{AnalysisID: "f1", ConfigYAML: cfg, CSV: sampleCSV(20)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	final := waitTerminal(t, store, executor, "f1")
	if final.Analysis.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", final.Analysis.Status)
	}
	if final.Analysis.ErrorKind != "degenerate" {
		t.Fatalf("expected degenerate error kind, got %q (%s)", final.Analysis.ErrorKind, final.Analysis.Error)
	}
}

func TestExecutorSubmitRejectsBadInput(t *testing.T) {
	_, executor := newTestExecutor()

	_, err := executor.Submit(SubmitRequest{ConfigYAML: "analysis: {best_model_percentile: 2}", CSV: sampleCSV(5)})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	_, err = executor.Submit(SubmitRequest{CSV: "Simulation,A\n1,2\n"})
	var inputErr *pipeline.InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected *pipeline.InputError, got %v", err)
	}

	_, err = executor.Submit(SubmitRequest{})
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected *pipeline.InputError for empty csv, got %v", err)
	}
}

func TestExecutorCancel(t *testing.T) {
	store, executor := newTestExecutor()

	if _, err := executor.Submit(SubmitRequest{AnalysisID: "c1", ConfigYAML: testConfigYAML, CSV: sampleCSV(40)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, err := executor.Cancel("c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The run may already have finished; either way the state is terminal.
	if !rec.Analysis.Status.Terminal() {
		t.Fatalf("expected terminal status after cancel, got %s", rec.Analysis.Status)
	}
	waitTerminal(t, store, executor, "c1")

	if _, err := executor.Start("c1"); !errors.Is(err, ErrAnalysisTerminal) {
		t.Fatalf("expected ErrAnalysisTerminal, got %v", err)
	}
	if _, err := executor.Cancel("missing"); !errors.Is(err, ErrAnalysisNotFound) {
		t.Fatalf("expected ErrAnalysisNotFound, got %v", err)
	}
	if _, err := executor.Cancel(""); !errors.Is(err, ErrAnalysisIDMissing) {
		t.Fatalf("expected ErrAnalysisIDMissing, got %v", err)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&pipeline.InputError{Stage: pipeline.StageFilter}, "input"},
		{&pipeline.DegenerateInputError{Stage: pipeline.StageCluster}, "degenerate"},
		{&pipeline.ComputationError{Stage: pipeline.StageReduce, Err: errors.New("svd")}, "computation"},
		{errors.New("other"), "internal"},
	}
	for _, tt := range tests {
		if got := errorKind(tt.err); got != tt.want {
			t.Errorf("errorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
