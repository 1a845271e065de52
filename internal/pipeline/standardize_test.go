package pipeline

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestFitStandardizeMoments(t *testing.T) {
	m, err := SelectParameters(uniformDataset(40, 4, 7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scaled, s, err := FitStandardize(m.Data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Dims() != 4 {
		t.Fatalf("expected 4 columns, got %d", s.Dims())
	}

	n, d := scaled.Dims()
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, scaled)
		mean, std := stat.PopMeanStdDev(col, nil)
		if math.Abs(mean) > 1e-9 {
			t.Errorf("column %d: expected mean 0, got %v", j, mean)
		}
		if math.Abs(std-1) > 1e-9 {
			t.Errorf("column %d: expected population std 1, got %v", j, std)
		}
	}
}

func TestStandardizationRoundTrip(t *testing.T) {
	m, err := SelectParameters(blobDataset(30, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scaled, s, err := FitStandardize(m.Data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	back := s.InverseMatrix(scaled)
	if !mat.EqualApprox(back, m.Data, 1e-9) {
		t.Fatalf("inverse(scale(x)) differs from x")
	}

	row := mat.Row(nil, 4, m.Data)
	got := s.Inverse(s.Transform(row))
	for j := range row {
		if math.Abs(got[j]-row[j]) > 1e-9 {
			t.Fatalf("row round trip: column %d expected %v, got %v", j, row[j], got[j])
		}
	}
}

func TestFitStandardizeConstantColumn(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		1, 0.7,
		2, 0.7,
		3, 0.7,
	})

	scaled, s, err := FitStandardize(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols := s.ConstantColumns(); len(cols) != 1 || cols[0] != 1 {
		t.Fatalf("expected column 1 flagged constant, got %v", cols)
	}
	for i := 0; i < 3; i++ {
		if v := scaled.At(i, 1); v != 0 {
			t.Fatalf("expected constant column to scale to 0, got %v", v)
		}
		if math.IsNaN(scaled.At(i, 0)) {
			t.Fatalf("unexpected NaN in scaled column 0")
		}
	}
	if back := s.InverseMatrix(scaled); back.At(2, 1) != 0.7 {
		t.Fatalf("expected constant column to invert to 0.7, got %v", back.At(2, 1))
	}
}

func TestFitStandardizeRejectsNonFinite(t *testing.T) {
	m := mat.NewDense(2, 1, []float64{1, math.Inf(1)})
	_, _, err := FitStandardize(m)
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected *InputError, got %v", err)
	}
}
