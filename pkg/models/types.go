package models

import (
	"fmt"
	"sort"
)

// Schema names the columns of a calibration table. Parameters holds the
// multiplier columns in file order; every other column is bookkeeping.
type Schema struct {
	IDColumn        string   `json:"id_column" yaml:"id_column"`
	SequenceColumn  string   `json:"sequence_column" yaml:"sequence_column"`
	ObjectiveColumn string   `json:"objective_column" yaml:"objective_column"`
	Parameters      []string `json:"parameters" yaml:"parameters"`
}

// Run is one simulation instance of a calibration study.
type Run struct {
	ID         string    `json:"id"`
	Sequence   float64   `json:"sequence"`
	Objective  float64   `json:"objective"` // lower is better
	Parameters []float64 `json:"parameters"`
}

// Dataset is an ordered collection of runs sharing one schema.
type Dataset struct {
	Schema Schema `json:"schema"`
	Runs   []Run  `json:"runs"`
}

// Len returns the number of runs
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Runs)
}

// Validate checks that the dataset is non-empty and that every run carries
// exactly one value per schema parameter.
func (d *Dataset) Validate() error {
	if d == nil || len(d.Runs) == 0 {
		return fmt.Errorf("dataset is empty")
	}
	if d.Schema.ObjectiveColumn == "" {
		return fmt.Errorf("objective column is not named")
	}
	want := len(d.Schema.Parameters)
	seen := make(map[string]bool, len(d.Schema.Parameters))
	for _, name := range d.Schema.Parameters {
		if seen[name] {
			return fmt.Errorf("duplicate parameter column: %s", name)
		}
		seen[name] = true
	}
	for i, r := range d.Runs {
		if len(r.Parameters) != want {
			return fmt.Errorf("run %d (%s): has %d parameters, schema has %d", i, r.ID, len(r.Parameters), want)
		}
	}
	return nil
}

// Objectives returns the objective values in run order
func (d *Dataset) Objectives() []float64 {
	out := make([]float64, len(d.Runs))
	for i, r := range d.Runs {
		out[i] = r.Objective
	}
	return out
}

// Subset returns a new dataset holding the runs at the given indices, in the
// order given. Runs are copied; parameter slices are shared.
func (d *Dataset) Subset(indices []int) *Dataset {
	out := &Dataset{
		Schema: d.Schema,
		Runs:   make([]Run, 0, len(indices)),
	}
	for _, i := range indices {
		out.Runs = append(out.Runs, d.Runs[i])
	}
	return out
}

// ParameterIndex returns the column position of a parameter, or -1.
func (s Schema) ParameterIndex(name string) int {
	for i, p := range s.Parameters {
		if p == name {
			return i
		}
	}
	return -1
}

// LabeledRun is a run annotated with its cluster label.
type LabeledRun struct {
	Run
	Cluster int `json:"cluster"`
}

// AttachLabels pairs each run of ds with the label at the same position.
func AttachLabels(ds *Dataset, labels []int) ([]LabeledRun, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset is nil")
	}
	if len(labels) != len(ds.Runs) {
		return nil, fmt.Errorf("label count %d does not match run count %d", len(labels), len(ds.Runs))
	}
	out := make([]LabeledRun, len(ds.Runs))
	for i, r := range ds.Runs {
		out[i] = LabeledRun{Run: r, Cluster: labels[i]}
	}
	return out, nil
}

// SortByClusterObjective orders runs by (cluster, objective ascending),
// keeping the original order among equal keys.
func SortByClusterObjective(runs []LabeledRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Cluster != runs[j].Cluster {
			return runs[i].Cluster < runs[j].Cluster
		}
		return runs[i].Objective < runs[j].Objective
	})
}

// Describe holds descriptive statistics of a sample, in the layout of a
// count/mean/std/min/quartiles/max summary.
type Describe struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	P25   float64 `json:"p25"`
	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
	Max   float64 `json:"max"`
}

// ClusterSummary describes one cluster of the final partition.
type ClusterSummary struct {
	Cluster int `json:"cluster"`
	Count   int `json:"count"`
	// Centroid is the cluster center in original parameter units, one value
	// per schema parameter.
	Centroid   []float64  `json:"centroid"`
	Objective  Describe   `json:"objective"`
	Parameters []Describe `json:"parameters"`
	Best       LabeledRun `json:"best"`
}
