package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GoSim-25-26J-441/calibration-core/internal/batch"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/config"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/logger"
)

func main() {
	var configPath string
	var inputPath string
	var outDir string
	var logLevel string
	var logFormat string
	var diagnosticsOnly bool
	var k int

	flag.StringVar(&configPath, "config", "", "path to calibration YAML config (defaults are used when empty)")
	flag.StringVar(&inputPath, "input", "", "calibration table (.csv or .xlsx); overrides input.path")
	flag.StringVar(&outDir, "out", "", "output directory; overrides output.dir")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides log_level")
	flag.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	flag.BoolVar(&diagnosticsOnly, "diagnostics-only", false, "stop after the inertia/silhouette diagnostics")
	flag.IntVar(&k, "k", 0, "number of clusters; overrides analysis.optimal_k")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(2)
		}
		cfg = loaded
	}
	if inputPath != "" {
		cfg.Input.Path = inputPath
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if k > 0 {
		cfg.Analysis.OptimalK = k
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	logger.SetDefault(logger.NewWithFormat(logFormat, cfg.LogLevel, os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := batch.Execute(ctx, cfg, diagnosticsOnly)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		stop()
		os.Exit(1)
	}

	logger.Info("analysis finished",
		"analysis_id", out.AnalysisID,
		"selected", out.Result.Best.Len(),
		"duration", out.Result.Duration,
		"report", out.Report)
}
