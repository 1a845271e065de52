package config

import (
	"strings"
	"testing"
)

func TestParseConfigYAMLAppliesDefaults(t *testing.T) {
	cfg, err := ParseConfigYAMLString(`
analysis:
  optimal_k: 3
  k_range: {min: 1, max: 6}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Analysis.OptimalK != 3 {
		t.Errorf("expected optimal_k 3, got %d", cfg.Analysis.OptimalK)
	}
	if cfg.Analysis.KRange.Min != 1 || cfg.Analysis.KRange.Max != 6 {
		t.Errorf("unexpected k_range %+v", cfg.Analysis.KRange)
	}
	// Untouched keys keep their defaults.
	if cfg.Analysis.BestModelPercentile != 0.30 {
		t.Errorf("expected default percentile 0.30, got %v", cfg.Analysis.BestModelPercentile)
	}
	if cfg.Input.ObjectiveColumn != "OF Value" {
		t.Errorf("expected default objective column, got %q", cfg.Input.ObjectiveColumn)
	}
	if cfg.Analysis.Seed != 42 {
		t.Errorf("expected default seed 42, got %d", cfg.Analysis.Seed)
	}
}

func TestParseConfigYAMLEmpty(t *testing.T) {
	cfg, err := ParseConfigYAML(nil)
	if err != nil {
		t.Fatalf("empty yaml should yield the defaults: %v", err)
	}
	if cfg.Output.Report != "calibration_report.md" {
		t.Errorf("unexpected report name %q", cfg.Output.Report)
	}
}

func TestParseConfigYAMLErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"malformed", "analysis: [", "failed to parse config yaml"},
		{"wrong type", "analysis:\n  optimal_k: many\n", "failed to parse config yaml"},
		{"invalid percentile", "analysis:\n  best_model_percentile: 2\n", "invalid config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfigYAMLString(tt.yaml)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected %q in error, got: %v", tt.wantErr, err)
			}
		})
	}
}
