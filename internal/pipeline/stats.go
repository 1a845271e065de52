package pipeline

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/utils"
)

// describe summarizes values with the sample (n-1) standard deviation.
// A single value has standard deviation 0.
func describe(values []float64) models.Describe {
	if len(values) == 0 {
		return models.Describe{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	d := models.Describe{
		Count: len(values),
		Min:   sorted[0],
		P25:   utils.QuantileSorted(sorted, 0.25),
		P50:   utils.QuantileSorted(sorted, 0.50),
		P75:   utils.QuantileSorted(sorted, 0.75),
		Max:   sorted[len(sorted)-1],
	}
	if len(values) < 2 {
		d.Mean = values[0]
		return d
	}
	d.Mean, d.Std = stat.MeanStdDev(values, nil)
	if math.IsNaN(d.Std) {
		d.Std = 0
	}
	return d
}

func rowsOf(m *mat.Dense) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		mat.Row(out[i], i, m)
	}
	return out
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
