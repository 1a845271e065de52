// Package batch runs one file-to-report analysis: load the table, run the
// pipeline and write every configured artifact to the output directory.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/GoSim-25-26J-441/calibration-core/internal/dataio"
	"github.com/GoSim-25-26J-441/calibration-core/internal/pipeline"
	"github.com/GoSim-25-26J-441/calibration-core/internal/report"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/config"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/logger"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/utils"
)

// Outcome lists what a batch run produced. Paths are empty for artifacts
// that were not written.
type Outcome struct {
	AnalysisID     string
	Result         *pipeline.Result
	ClusterResults string
	BestPerCluster string
	Report         string
	Bundle         string
	Charts         report.ChartSet
}

// Execute loads cfg.Input.Path and writes the outputs named in cfg.Output.
// With diagnosticsOnly set it stops after the k diagnostics and skips the
// cluster tables.
func Execute(ctx context.Context, cfg *config.Config, diagnosticsOnly bool) (*Outcome, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Input.Path == "" {
		return nil, fmt.Errorf("input path is required")
	}

	ds, err := dataio.Load(cfg.Input.Path, dataio.OptionsFromConfig(cfg.Input))
	if err != nil {
		return nil, err
	}
	logger.Info("calibration table loaded",
		"path", cfg.Input.Path,
		"runs", ds.Len(),
		"parameters", len(ds.Schema.Parameters))

	run := pipeline.Run
	if diagnosticsOnly {
		run = pipeline.RunDiagnostics
	}
	res, err := run(ctx, ds, pipeline.OptionsFromConfig(cfg.Analysis))
	if err != nil {
		return nil, err
	}

	out := &Outcome{AnalysisID: utils.GenerateAnalysisID(), Result: res}
	dir := cfg.Output.Dir

	if !diagnosticsOnly {
		out.ClusterResults = filepath.Join(dir, cfg.Output.ClusterResults)
		if err := writeRuns(out.ClusterResults, "Clusters", ds.Schema, res.Labeled); err != nil {
			return nil, err
		}
		out.BestPerCluster = filepath.Join(dir, cfg.Output.BestPerCluster)
		if err := writeRuns(out.BestPerCluster, "BestPerCluster", ds.Schema, res.BestPerCluster); err != nil {
			return nil, err
		}
	}

	out.Charts = report.RenderCharts(dir, cfg.Output.Charts, ds, res)

	out.Report = filepath.Join(dir, cfg.Output.Report)
	if err := report.SaveMarkdown(out.Report, report.Input{
		GeneratedAt: time.Now(),
		InputPath:   cfg.Input.Path,
		Result:      res,
		Charts:      out.Charts,
	}); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	logger.Info("report written", "path", out.Report)

	if cfg.Output.Bundle != "" {
		out.Bundle = filepath.Join(dir, cfg.Output.Bundle)
		b := report.NewBundle(out.AnalysisID, cfg.Input.Path, res)
		if err := report.SaveBundle(out.Bundle, b, cfg.Output.CompressBundle); err != nil {
			return nil, fmt.Errorf("failed to write bundle: %w", err)
		}
		logger.Info("bundle written", "path", out.Bundle, "compressed", cfg.Output.CompressBundle)
	}
	return out, nil
}

func writeRuns(path, sheet string, schema models.Schema, runs []models.LabeledRun) error {
	if err := dataio.WriteTable(path, dataio.RunsTable(sheet, schema, runs)); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	logger.Info("table written", "path", path, "rows", len(runs))
	return nil
}
