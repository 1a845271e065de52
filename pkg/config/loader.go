package config

import (
	"fmt"
	"os"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	if err := validateInput(&cfg.Input); err != nil {
		return fmt.Errorf("input validation failed: %w", err)
	}
	if err := validateAnalysis(&cfg.Analysis); err != nil {
		return fmt.Errorf("analysis validation failed: %w", err)
	}
	if err := validateOutput(&cfg.Output); err != nil {
		return fmt.Errorf("output validation failed: %w", err)
	}
	return nil
}

// validateInput validates column naming; the path is checked when opened
func validateInput(in *Input) error {
	if in.ObjectiveColumn == "" {
		return fmt.Errorf("objective_column cannot be empty")
	}
	if in.SequenceColumn == "" {
		return fmt.Errorf("sequence_column cannot be empty")
	}
	if in.IDColumn == "" {
		return fmt.Errorf("id_column cannot be empty")
	}
	if in.ObjectiveColumn == in.SequenceColumn || in.ObjectiveColumn == in.IDColumn || in.SequenceColumn == in.IDColumn {
		return fmt.Errorf("objective_column, sequence_column and id_column must be distinct")
	}
	for _, c := range in.DropColumns {
		if c == in.ObjectiveColumn || c == in.SequenceColumn {
			return fmt.Errorf("drop_columns cannot contain required column %q", c)
		}
	}
	return nil
}

// validateAnalysis validates the numeric pipeline settings
func validateAnalysis(a *Analysis) error {
	if a.BestModelPercentile <= 0 || a.BestModelPercentile > 1 {
		return fmt.Errorf("best_model_percentile must be in (0, 1], got %v", a.BestModelPercentile)
	}
	if a.PCAVarianceThreshold <= 0 || a.PCAVarianceThreshold > 1 {
		return fmt.Errorf("pca_variance_threshold must be in (0, 1], got %v", a.PCAVarianceThreshold)
	}
	if a.KRange.Min < 1 {
		return fmt.Errorf("k_range.min must be at least 1, got %d", a.KRange.Min)
	}
	if a.KRange.Max < a.KRange.Min {
		return fmt.Errorf("k_range.max (%d) must not be below k_range.min (%d)", a.KRange.Max, a.KRange.Min)
	}
	if a.OptimalK < 1 {
		return fmt.Errorf("optimal_k must be positive, got %d", a.OptimalK)
	}
	if a.NInit < 1 {
		return fmt.Errorf("n_init must be positive, got %d", a.NInit)
	}
	if a.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be positive, got %d", a.MaxIterations)
	}
	if a.Tolerance < 0 {
		return fmt.Errorf("tolerance cannot be negative, got %v", a.Tolerance)
	}
	if a.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", a.Workers)
	}
	return nil
}

// validateOutput validates artifact names
func validateOutput(o *Output) error {
	if o.Dir == "" {
		return fmt.Errorf("dir cannot be empty")
	}
	if o.ClusterResults == "" || o.BestPerCluster == "" || o.Report == "" {
		return fmt.Errorf("cluster_results, best_per_cluster and report must be named")
	}
	if o.Charts.Enabled {
		if o.Charts.OFScatter == "" || o.Charts.Elbow == "" || o.Charts.Silhouette == "" || o.Charts.PCAClusters == "" {
			return fmt.Errorf("every chart must be named when charts are enabled")
		}
	}
	return nil
}
