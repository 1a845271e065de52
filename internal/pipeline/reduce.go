package pipeline

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Projection is a fitted PCA basis. Components is d×c with the retained
// principal directions as columns, ordered by descending variance.
type Projection struct {
	Mean       []float64
	Components *mat.Dense
	// ExplainedVarianceRatio covers every component found, not only the
	// retained ones.
	ExplainedVarianceRatio []float64
	Cumulative             float64
	Threshold              float64
}

// FitReduce projects scaled onto the smallest prefix of principal components
// whose cumulative explained-variance ratio reaches threshold.
func FitReduce(scaled *mat.Dense, threshold float64) (*mat.Dense, *Projection, error) {
	if scaled == nil || scaled.IsEmpty() {
		return nil, nil, inputErrorf(StageReduce, "scaled matrix is empty")
	}
	if !(threshold > 0 && threshold <= 1) {
		return nil, nil, inputErrorf(StageReduce, "variance threshold must be in (0, 1], got %v", threshold)
	}
	n, d := scaled.Dims()
	if n < 2 {
		return nil, nil, degenerateErrorf(StageReduce, "need at least 2 samples to compute components, got %d", n)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(scaled, nil); !ok {
		return nil, nil, &ComputationError{Stage: StageReduce, Err: errors.New("SVD factorization failed")}
	}
	vars := pc.VarsTo(nil)
	total := floats.Sum(vars)
	if !(total > 0) {
		return nil, nil, degenerateErrorf(StageReduce, "no component has positive variance")
	}

	ratios := make([]float64, len(vars))
	for i, v := range vars {
		ratios[i] = v / total
	}
	count, cumulative := selectComponents(ratios, threshold)

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	components := mat.DenseCopyOf(vecs.Slice(0, d, 0, count))

	mean := make([]float64, d)
	col := make([]float64, n)
	for j := range mean {
		mat.Col(col, j, scaled)
		mean[j] = stat.Mean(col, nil)
	}

	p := &Projection{
		Mean:                   mean,
		Components:             components,
		ExplainedVarianceRatio: ratios,
		Cumulative:             cumulative,
		Threshold:              threshold,
	}
	return p.TransformMatrix(scaled), p, nil
}

// selectComponents returns the smallest prefix length whose cumulative ratio
// is at least threshold. When rounding keeps the full sum below threshold,
// every component with positive variance is retained.
func selectComponents(ratios []float64, threshold float64) (int, float64) {
	cum := 0.0
	for i, r := range ratios {
		cum += r
		if cum >= threshold {
			return i + 1, cum
		}
	}
	count := 0
	for i, r := range ratios {
		if r > 0 {
			count = i + 1
		}
	}
	return count, floats.Sum(ratios[:count])
}

// NumComponents returns the number of retained components.
func (p *Projection) NumComponents() int {
	_, c := p.Components.Dims()
	return c
}

// RetainedRatios returns the explained-variance ratio of each retained
// component.
func (p *Projection) RetainedRatios() []float64 {
	return p.ExplainedVarianceRatio[:p.NumComponents()]
}

// TransformMatrix projects every row of m onto the retained components.
func (p *Projection) TransformMatrix(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	centered := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			centered.Set(i, j, m.At(i, j)-p.Mean[j])
		}
	}
	var out mat.Dense
	out.Mul(centered, p.Components)
	return &out
}

// Inverse maps reduced rows back to the scaled space. Variance carried by
// discarded components is not recovered.
func (p *Projection) Inverse(reduced mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(reduced, p.Components.T())
	r, c := out.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, out.At(i, j)+p.Mean[j])
		}
	}
	return &out
}
