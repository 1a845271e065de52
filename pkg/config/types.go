package config

// Config represents the calibration analysis configuration
type Config struct {
	LogLevel string   `yaml:"log_level"`
	Input    Input    `yaml:"input"`
	Analysis Analysis `yaml:"analysis"`
	Output   Output   `yaml:"output"`
}

// Input describes the calibration table and how to read it
type Input struct {
	Path            string   `yaml:"path"`
	Sheet           string   `yaml:"sheet,omitempty"` // xlsx only; first sheet when empty
	ObjectiveColumn string   `yaml:"objective_column"`
	SequenceColumn  string   `yaml:"sequence_column"`
	IDColumn        string   `yaml:"id_column"`    // name given to an unnamed leading index column
	DropColumns     []string `yaml:"drop_columns"` // annotation columns removed before analysis
}

// Analysis holds the numeric settings of the pipeline
type Analysis struct {
	BestModelPercentile  float64 `yaml:"best_model_percentile"`  // (0, 1]
	PCAVarianceThreshold float64 `yaml:"pca_variance_threshold"` // (0, 1]
	KRange               KRange  `yaml:"k_range"`
	OptimalK             int     `yaml:"optimal_k"`
	Seed                 int64   `yaml:"seed"`
	NInit                int     `yaml:"n_init"`
	MaxIterations        int     `yaml:"max_iterations"`
	Tolerance            float64 `yaml:"tolerance"`
	Workers              int     `yaml:"workers"` // diagnostics parallelism; 0 = one per CPU
}

// KRange is the inclusive range of candidate cluster counts for diagnostics
type KRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Values lists every k in the range, ascending
func (r KRange) Values() []int {
	if r.Max < r.Min {
		return nil
	}
	out := make([]int, 0, r.Max-r.Min+1)
	for k := r.Min; k <= r.Max; k++ {
		out = append(out, k)
	}
	return out
}

// Output names the artifacts written by the batch driver
type Output struct {
	Dir            string `yaml:"dir"`
	ClusterResults string `yaml:"cluster_results"`
	BestPerCluster string `yaml:"best_per_cluster"`
	Report         string `yaml:"report"`
	Bundle         string `yaml:"bundle,omitempty"`
	CompressBundle bool   `yaml:"compress_bundle"`
	Charts         Charts `yaml:"charts"`
}

// Charts names the PNG charts; Enabled=false skips rendering
type Charts struct {
	Enabled     bool   `yaml:"enabled"`
	OFScatter   string `yaml:"of_scatter"`
	Elbow       string `yaml:"elbow"`
	Silhouette  string `yaml:"silhouette"`
	PCAClusters string `yaml:"pca_clusters"`
}

// Default returns the configuration used when a key is absent
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Input: Input{
			ObjectiveColumn: "OF Value",
			SequenceColumn:  "Simulation",
			IDColumn:        "Simulation_ID",
			DropColumns:     []string{"OutputPath", "Ambiguity"},
		},
		Analysis: Analysis{
			BestModelPercentile:  0.30,
			PCAVarianceThreshold: 0.95,
			KRange:               KRange{Min: 2, Max: 10},
			OptimalK:             10,
			Seed:                 42,
			NInit:                10,
			MaxIterations:        300,
			Tolerance:            1e-4,
		},
		Output: Output{
			Dir:            "out",
			ClusterResults: "runs_by_cluster.xlsx",
			BestPerCluster: "best_per_cluster.xlsx",
			Report:         "calibration_report.md",
			Charts: Charts{
				Enabled:     true,
				OFScatter:   "of_scatter.png",
				Elbow:       "elbow.png",
				Silhouette:  "silhouette.png",
				PCAClusters: "pca_clusters.png",
			},
		},
	}
}
