package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/utils"
)

// State groups the models fitted during one pipeline run. It is built once
// by the fitting stages and only read afterwards.
type State struct {
	ParameterNames  []string
	Standardization *Standardization
	Projection      *Projection
	Clustering      *Clustering
}

// Centroids returns the cluster centers in original parameter units:
// reduced space back through the projection, then the standardization.
func (s *State) Centroids() *mat.Dense {
	c := s.Clustering
	flat := make([]float64, 0, c.K*s.Projection.NumComponents())
	for _, row := range c.Centroids {
		flat = append(flat, row...)
	}
	reduced := mat.NewDense(c.K, s.Projection.NumComponents(), flat)
	return s.Standardization.InverseMatrix(s.Projection.Inverse(reduced))
}

// Analyze summarizes each cluster of the labeled best subset: member count,
// centroid in original units, objective statistics, per-parameter
// statistics and the lowest-objective member.
func Analyze(ds *models.Dataset, labels []int, st *State) ([]models.ClusterSummary, error) {
	if ds.Len() == 0 {
		return nil, inputErrorf(StageAnalyze, "dataset is empty")
	}
	if st == nil || st.Standardization == nil || st.Projection == nil || st.Clustering == nil {
		return nil, inputErrorf(StageAnalyze, "fitted state is incomplete")
	}
	if len(labels) != ds.Len() {
		return nil, inputErrorf(StageAnalyze, "label count %d does not match run count %d", len(labels), ds.Len())
	}
	if len(st.ParameterNames) != st.Standardization.Dims() {
		return nil, inputErrorf(StageAnalyze, "%d parameter names for a %d-column standardization",
			len(st.ParameterNames), st.Standardization.Dims())
	}

	cols := make([]int, len(st.ParameterNames))
	for i, name := range st.ParameterNames {
		if cols[i] = ds.Schema.ParameterIndex(name); cols[i] < 0 {
			return nil, inputErrorf(StageAnalyze, "parameter %q is not in the dataset schema", name)
		}
	}

	k := st.Clustering.K
	members := make([][]int, k)
	for i, l := range labels {
		if l < 0 || l >= k {
			return nil, inputErrorf(StageAnalyze, "label %d of run %s is outside [0, %d)", l, ds.Runs[i].ID, k)
		}
		members[l] = append(members[l], i)
	}

	centroids := st.Centroids()
	out := make([]models.ClusterSummary, k)
	for c := 0; c < k; c++ {
		idx := members[c]
		if len(idx) == 0 {
			return nil, degenerateErrorf(StageAnalyze, "cluster %d has no members", c)
		}

		objectives := make([]float64, len(idx))
		for m, i := range idx {
			objectives[m] = ds.Runs[i].Objective
		}
		params := make([]models.Describe, len(cols))
		values := make([]float64, len(idx))
		for p, j := range cols {
			for m, i := range idx {
				values[m] = ds.Runs[i].Parameters[j]
			}
			params[p] = describe(values)
		}

		best := idx[utils.ArgMin(objectives)]
		out[c] = models.ClusterSummary{
			Cluster:    c,
			Count:      len(idx),
			Centroid:   mat.Row(nil, c, centroids),
			Objective:  describe(objectives),
			Parameters: params,
			Best:       models.LabeledRun{Run: ds.Runs[best], Cluster: c},
		}
	}
	return out, nil
}
