package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
)

// ParameterMatrix is the parameter-only projection of a dataset.
// Row i of Data belongs to run IDs[i].
type ParameterMatrix struct {
	Names []string
	IDs   []string
	Data  *mat.Dense
}

// SelectParameters drops the bookkeeping columns (identifier, sequence,
// objective) and returns the parameter values as a dense matrix.
func SelectParameters(ds *models.Dataset) (*ParameterMatrix, error) {
	if ds.Len() == 0 {
		return nil, inputErrorf(StageSelect, "dataset is empty")
	}

	names := make([]string, 0, len(ds.Schema.Parameters))
	cols := make([]int, 0, len(ds.Schema.Parameters))
	for j, name := range ds.Schema.Parameters {
		switch name {
		case ds.Schema.ObjectiveColumn, ds.Schema.SequenceColumn, ds.Schema.IDColumn:
			continue
		}
		names = append(names, name)
		cols = append(cols, j)
	}
	if len(names) == 0 {
		return nil, inputErrorf(StageSelect, "no parameter columns remain after excluding %q, %q and %q",
			ds.Schema.ObjectiveColumn, ds.Schema.SequenceColumn, ds.Schema.IDColumn)
	}

	n := ds.Len()
	data := mat.NewDense(n, len(cols), nil)
	ids := make([]string, n)
	for i, r := range ds.Runs {
		if len(r.Parameters) != len(ds.Schema.Parameters) {
			return nil, inputErrorf(StageSelect, "run %s has %d parameters, schema has %d",
				r.ID, len(r.Parameters), len(ds.Schema.Parameters))
		}
		ids[i] = r.ID
		for c, j := range cols {
			data.Set(i, c, r.Parameters[j])
		}
	}

	return &ParameterMatrix{Names: names, IDs: ids, Data: data}, nil
}
