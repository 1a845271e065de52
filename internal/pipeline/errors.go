package pipeline

import "fmt"

// Stage names a pipeline step in errors and logs.
type Stage string

const (
	StageLoad        Stage = "load"
	StageFilter      Stage = "filter"
	StageSelect      Stage = "select"
	StageStandardize Stage = "standardize"
	StageReduce      Stage = "reduce"
	StageDiagnostics Stage = "diagnostics"
	StageCluster     Stage = "cluster"
	StageAnalyze     Stage = "analyze"
)

// InputError reports missing or empty input: no runs, a missing column, an
// empty filter result, or no parameter columns.
type InputError struct {
	Stage  Stage
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("pipeline: %s: invalid input: %s", e.Stage, e.Reason)
}

// DegenerateInputError reports input that is well-formed but cannot support
// the requested computation, e.g. k >= sample count.
type DegenerateInputError struct {
	Stage  Stage
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("pipeline: %s: degenerate input: %s", e.Stage, e.Reason)
}

// ComputationError wraps a numerical failure inside a fitting routine.
// K is the cluster count involved, or 0 when not applicable.
type ComputationError struct {
	Stage Stage
	K     int
	Err   error
}

func (e *ComputationError) Error() string {
	if e.K > 0 {
		return fmt.Sprintf("pipeline: %s (k=%d): computation failed: %v", e.Stage, e.K, e.Err)
	}
	return fmt.Sprintf("pipeline: %s: computation failed: %v", e.Stage, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

func inputErrorf(stage Stage, format string, args ...any) error {
	return &InputError{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}

func degenerateErrorf(stage Stage, format string, args ...any) error {
	return &DegenerateInputError{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}
