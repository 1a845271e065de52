package pipeline

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Standardization is a fitted per-column zero-mean/unit-variance transform.
// Columns with zero population standard deviation are flagged in Constant;
// they scale to 0 and invert back to their mean.
type Standardization struct {
	Means    []float64
	StdDevs  []float64
	Constant []bool
}

// FitStandardize fits a Standardization on the columns of m (population
// standard deviation) and returns the scaled copy of m.
func FitStandardize(m *mat.Dense) (*mat.Dense, *Standardization, error) {
	if m == nil || m.IsEmpty() {
		return nil, nil, inputErrorf(StageStandardize, "parameter matrix is empty")
	}
	n, d := m.Dims()

	s := &Standardization{
		Means:    make([]float64, d),
		StdDevs:  make([]float64, d),
		Constant: make([]bool, d),
	}
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, m)
		for _, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, nil, inputErrorf(StageStandardize, "column %d contains a non-finite value", j)
			}
		}
		if constantColumn(col) {
			s.Means[j] = col[0]
			s.Constant[j] = true
			continue
		}
		s.Means[j], s.StdDevs[j] = stat.PopMeanStdDev(col, nil)
	}

	scaled := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			scaled.Set(i, j, s.scale(j, m.At(i, j)))
		}
	}
	return scaled, s, nil
}

func constantColumn(col []float64) bool {
	for _, v := range col[1:] {
		if v != col[0] {
			return false
		}
	}
	return true
}

// Dims returns the number of columns the transform was fitted on.
func (s *Standardization) Dims() int { return len(s.Means) }

// ConstantColumns returns the indices of zero-variance columns.
func (s *Standardization) ConstantColumns() []int {
	var out []int
	for j, c := range s.Constant {
		if c {
			out = append(out, j)
		}
	}
	return out
}

func (s *Standardization) scale(j int, v float64) float64 {
	if s.Constant[j] {
		return 0
	}
	return (v - s.Means[j]) / s.StdDevs[j]
}

// Transform scales one row of original values.
func (s *Standardization) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = s.scale(j, v)
	}
	return out
}

// Inverse maps one scaled row back to original units: z*std + mean.
func (s *Standardization) Inverse(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, z := range row {
		out[j] = z*s.StdDevs[j] + s.Means[j]
	}
	return out
}

// InverseMatrix applies Inverse to every row of m.
func (s *Standardization) InverseMatrix(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, m)
		out.SetRow(i, s.Inverse(row))
	}
	return out
}
