package pipeline

import (
	"math"

	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/utils"
)

// FilterResult is the outcome of best-subset selection.
type FilterResult struct {
	Dataset    *models.Dataset
	Threshold  float64
	Percentile float64
	Total      int
}

// Empty reports whether no run passed the threshold.
func (r *FilterResult) Empty() bool {
	return r == nil || r.Dataset.Len() == 0
}

// FilterBest keeps the runs whose objective is at or below the percentile
// threshold of the objective column. The threshold interpolates linearly
// between order statistics, and ties at the threshold are kept, so the
// retained fraction can exceed percentile. Runs keep their relative order.
//
// An empty result is not an error here; callers check Empty.
func FilterBest(ds *models.Dataset, percentile float64) (*FilterResult, error) {
	if ds.Len() == 0 {
		return nil, inputErrorf(StageFilter, "dataset is empty")
	}
	if ds.Schema.ObjectiveColumn == "" {
		return nil, inputErrorf(StageFilter, "objective column is not named")
	}
	if !(percentile > 0 && percentile <= 1) {
		return nil, inputErrorf(StageFilter, "percentile must be in (0, 1], got %v", percentile)
	}

	objectives := ds.Objectives()
	for i, v := range objectives {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, inputErrorf(StageFilter, "run %s has non-finite %s", ds.Runs[i].ID, ds.Schema.ObjectiveColumn)
		}
	}

	threshold := utils.Quantile(objectives, percentile)
	keep := make([]int, 0, len(objectives))
	for i, v := range objectives {
		if v <= threshold {
			keep = append(keep, i)
		}
	}

	return &FilterResult{
		Dataset:    ds.Subset(keep),
		Threshold:  threshold,
		Percentile: percentile,
		Total:      ds.Len(),
	}, nil
}
