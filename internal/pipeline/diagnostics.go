package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// CurvePoint is one k of a diagnostics curve. Value is meaningful only when
// Missing is false.
type CurvePoint struct {
	K       int     `json:"k"`
	Value   float64 `json:"value"`
	Missing bool    `json:"missing"`
	Reason  string  `json:"reason,omitempty"`
}

// Diagnostics holds the inertia (elbow) and silhouette curves, both in
// ascending k.
type Diagnostics struct {
	Inertia    []CurvePoint `json:"inertia"`
	Silhouette []CurvePoint `json:"silhouette"`
}

// DiagnosticsOptions controls Diagnose. Cluster.K is ignored.
type DiagnosticsOptions struct {
	KMin, KMax int
	Cluster    ClusterOptions
	// Workers bounds the number of k values fitted concurrently.
	// 0 means runtime.NumCPU().
	Workers int
}

// Diagnose fits one clustering per k in [KMin, KMax] and records its inertia
// and mean silhouette. A failure at one k only marks that k missing.
func Diagnose(ctx context.Context, x [][]float64, opts DiagnosticsOptions) (*Diagnostics, error) {
	if len(x) == 0 {
		return nil, inputErrorf(StageDiagnostics, "no samples")
	}
	if opts.KMin < 1 || opts.KMax < opts.KMin {
		return nil, inputErrorf(StageDiagnostics, "invalid k range [%d, %d]", opts.KMin, opts.KMax)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	count := opts.KMax - opts.KMin + 1
	diag := &Diagnostics{
		Inertia:    make([]CurvePoint, count),
		Silhouette: make([]CurvePoint, count),
	}

	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for idx := 0; idx < count; idx++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			k := opts.KMin + idx
			if err := ctx.Err(); err != nil {
				diag.Inertia[idx] = missing(k, err.Error())
				diag.Silhouette[idx] = missing(k, err.Error())
				return
			}
			diag.Inertia[idx], diag.Silhouette[idx] = evaluateK(x, k, opts.Cluster)
		}(idx)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return diag, nil
}

func missing(k int, reason string) CurvePoint {
	return CurvePoint{K: k, Missing: true, Reason: reason}
}

// evaluateK never panics; numeric panics become missing points.
func evaluateK(x [][]float64, k int, cluster ClusterOptions) (inertia, silhouette CurvePoint) {
	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("panic: %v", r)
			inertia, silhouette = missing(k, reason), missing(k, reason)
		}
	}()

	cluster.K = k
	fit, err := FitCluster(x, cluster)
	if err != nil {
		inertia = missing(k, err.Error())
	} else {
		inertia = CurvePoint{K: k, Value: fit.Inertia}
	}

	switch {
	case k >= len(x):
		silhouette = missing(k, fmt.Sprintf("k=%d is not below the sample count %d", k, len(x)))
	case err != nil:
		silhouette = missing(k, err.Error())
	case fit.Populated() < 2:
		silhouette = missing(k, fmt.Sprintf("only %d populated cluster(s)", fit.Populated()))
	default:
		score, serr := SilhouetteScore(x, fit.Labels)
		if serr != nil {
			silhouette = missing(k, serr.Error())
		} else {
			silhouette = CurvePoint{K: k, Value: score}
		}
	}
	return inertia, silhouette
}
