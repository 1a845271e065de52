package pipeline

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/GoSim-25-26J-441/calibration-core/pkg/config"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/logger"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
)

// Options are the numeric settings of one pipeline run.
type Options struct {
	Percentile        float64 `json:"best_model_percentile"`
	VarianceThreshold float64 `json:"pca_variance_threshold"`
	KMin              int     `json:"k_min"`
	KMax              int     `json:"k_max"`
	K                 int     `json:"k"`
	Seed              int64   `json:"seed"`
	NInit             int     `json:"n_init"`
	MaxIterations     int     `json:"max_iterations"`
	Tolerance         float64 `json:"tolerance"`
	Workers           int     `json:"workers"`
}

// OptionsFromConfig maps the analysis section of a config onto Options.
func OptionsFromConfig(a config.Analysis) Options {
	return Options{
		Percentile:        a.BestModelPercentile,
		VarianceThreshold: a.PCAVarianceThreshold,
		KMin:              a.KRange.Min,
		KMax:              a.KRange.Max,
		K:                 a.OptimalK,
		Seed:              a.Seed,
		NInit:             a.NInit,
		MaxIterations:     a.MaxIterations,
		Tolerance:         a.Tolerance,
		Workers:           a.Workers,
	}
}

func (o Options) cluster(k int) ClusterOptions {
	return ClusterOptions{
		K:             k,
		Seed:          o.Seed,
		NInit:         o.NInit,
		MaxIterations: o.MaxIterations,
		Tolerance:     o.Tolerance,
	}
}

// Result is everything a pipeline run produces. Fields after Diagnostics are
// nil when only diagnostics were requested.
type Result struct {
	Options   Options
	Total     int
	Threshold float64
	Best      *models.Dataset

	Parameters *ParameterMatrix
	Scaled     *mat.Dense
	Reduced    *mat.Dense
	State      *State

	Diagnostics *Diagnostics

	// Labeled holds the best runs with their cluster, sorted by
	// (cluster, objective).
	Labeled        []models.LabeledRun
	BestPerCluster []models.LabeledRun
	Summaries      []models.ClusterSummary

	Duration time.Duration
}

// Run executes filter, selection, standardization, reduction, diagnostics,
// clustering and analysis in order, stopping at the first failing stage.
func Run(ctx context.Context, ds *models.Dataset, opts Options) (*Result, error) {
	return run(ctx, ds, opts, true)
}

// RunDiagnostics runs the pipeline through the diagnostics stage only, for
// choosing k before a full run.
func RunDiagnostics(ctx context.Context, ds *models.Dataset, opts Options) (*Result, error) {
	return run(ctx, ds, opts, false)
}

func run(ctx context.Context, ds *models.Dataset, opts Options, full bool) (*Result, error) {
	start := time.Now()
	res := &Result{Options: opts}

	filtered, err := FilterBest(ds, opts.Percentile)
	if err != nil {
		return nil, err
	}
	if filtered.Empty() {
		return nil, inputErrorf(StageFilter, "no run has %s at or below %v", ds.Schema.ObjectiveColumn, filtered.Threshold)
	}
	res.Total, res.Threshold, res.Best = filtered.Total, filtered.Threshold, filtered.Dataset
	logger.ForStage(string(StageFilter)).Info("selected best runs",
		"total", filtered.Total,
		"selected", filtered.Dataset.Len(),
		"percentile", opts.Percentile,
		"threshold", filtered.Threshold)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params, err := SelectParameters(res.Best)
	if err != nil {
		return nil, err
	}
	res.Parameters = params
	logger.ForStage(string(StageSelect)).Debug("selected parameter columns", "count", len(params.Names))

	scaled, std, err := FitStandardize(params.Data)
	if err != nil {
		return nil, err
	}
	res.Scaled = scaled
	for _, j := range std.ConstantColumns() {
		logger.ForStage(string(StageStandardize)).Warn("parameter has zero variance in the best subset",
			"parameter", params.Names[j], "value", std.Means[j])
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reduced, proj, err := FitReduce(scaled, opts.VarianceThreshold)
	if err != nil {
		return nil, err
	}
	res.Reduced = reduced
	logger.ForStage(string(StageReduce)).Info("reduced dimensionality",
		"parameters", std.Dims(),
		"components", proj.NumComponents(),
		"cumulative_variance", proj.Cumulative)

	points := rowsOf(reduced)
	diag, err := Diagnose(ctx, points, DiagnosticsOptions{
		KMin:    opts.KMin,
		KMax:    opts.KMax,
		Cluster: opts.cluster(0),
		Workers: opts.Workers,
	})
	if err != nil {
		return nil, err
	}
	res.Diagnostics = diag
	for i := range diag.Inertia {
		if diag.Inertia[i].Missing || diag.Silhouette[i].Missing {
			logger.ForStage(string(StageDiagnostics)).Debug("diagnostic point missing",
				"k", diag.Inertia[i].K,
				"inertia_reason", diag.Inertia[i].Reason,
				"silhouette_reason", diag.Silhouette[i].Reason)
		}
	}

	res.State = &State{ParameterNames: params.Names, Standardization: std, Projection: proj}
	if !full {
		res.Duration = time.Since(start)
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clustering, err := FitCluster(points, opts.cluster(opts.K))
	if err != nil {
		return nil, err
	}
	res.State.Clustering = clustering
	logger.ForStage(string(StageCluster)).Info("clustered best runs",
		"k", clustering.K,
		"inertia", clustering.Inertia,
		"iterations", clustering.Iterations,
		"sizes", clustering.Sizes())

	summaries, err := Analyze(res.Best, clustering.Labels, res.State)
	if err != nil {
		return nil, err
	}
	res.Summaries = summaries

	labeled, err := models.AttachLabels(res.Best, clustering.Labels)
	if err != nil {
		return nil, inputErrorf(StageAnalyze, "%v", err)
	}
	models.SortByClusterObjective(labeled)
	res.Labeled = labeled
	res.BestPerCluster = make([]models.LabeledRun, len(summaries))
	for i, s := range summaries {
		res.BestPerCluster[i] = s.Best
	}

	res.Duration = time.Since(start)
	logger.ForStage(string(StageAnalyze)).Info("analysis complete",
		"clusters", len(summaries), "duration", res.Duration)
	return res, nil
}
