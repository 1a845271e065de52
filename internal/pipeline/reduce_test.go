package pipeline

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func scaledMatrix(t *testing.T, n, d int, seed int64) *mat.Dense {
	t.Helper()
	m, err := SelectParameters(uniformDataset(n, d, seed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scaled, _, err := FitStandardize(m.Data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return scaled
}

func TestFitReduceThresholdIsMinimal(t *testing.T) {
	scaled := scaledMatrix(t, 30, 5, 11)

	for _, threshold := range []float64{0.3, 0.5, 0.8, 0.95} {
		reduced, p, err := FitReduce(scaled, threshold)
		if err != nil {
			t.Fatalf("threshold %v: unexpected error: %v", threshold, err)
		}
		c := p.NumComponents()
		if c < 1 || c > 5 {
			t.Fatalf("threshold %v: expected 1..5 components, got %d", threshold, c)
		}
		if r, cols := reduced.Dims(); r != 30 || cols != c {
			t.Fatalf("threshold %v: expected 30x%d reduced matrix, got %dx%d", threshold, c, r, cols)
		}
		if p.Cumulative < threshold {
			t.Fatalf("threshold %v: cumulative ratio %v below threshold", threshold, p.Cumulative)
		}
		prefix := 0.0
		for _, r := range p.ExplainedVarianceRatio[:c-1] {
			prefix += r
		}
		if prefix >= threshold {
			t.Fatalf("threshold %v: %d components already reach %v", threshold, c-1, prefix)
		}
	}
}

func TestFitReduceRatiosDescending(t *testing.T) {
	_, p, err := FitReduce(scaledMatrix(t, 25, 4, 5), 0.95)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ratios := p.ExplainedVarianceRatio
	for i := 1; i < len(ratios); i++ {
		if ratios[i] > ratios[i-1]+1e-12 {
			t.Fatalf("ratios not descending: %v", ratios)
		}
	}
	if len(p.RetainedRatios()) != p.NumComponents() {
		t.Fatalf("expected %d retained ratios, got %d", p.NumComponents(), len(p.RetainedRatios()))
	}
}

func TestProjectionInverseFullRank(t *testing.T) {
	scaled := scaledMatrix(t, 20, 3, 9)
	reduced, p, err := FitReduce(scaled, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.NumComponents() != 3 {
		t.Fatalf("expected every component retained, got %d", p.NumComponents())
	}
	if !mat.EqualApprox(p.Inverse(reduced), scaled, 1e-9) {
		t.Fatalf("inverse(project(x)) differs from x with all components kept")
	}
}

func TestFitReduceDegenerate(t *testing.T) {
	tests := []struct {
		name string
		m    *mat.Dense
	}{
		{"single sample", mat.NewDense(1, 2, []float64{0, 0})},
		{"zero variance", mat.NewDense(3, 2, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := FitReduce(tt.m, 0.95)
			var degenerate *DegenerateInputError
			if !errors.As(err, &degenerate) {
				t.Fatalf("expected *DegenerateInputError, got %v", err)
			}
		})
	}
}
