package pipeline

import (
	"errors"
	"testing"

	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
)

func TestSelectParameters(t *testing.T) {
	ds := &models.Dataset{
		Schema: testSchema("PERM", "Simulation", "PORO"),
		Runs: []models.Run{
			{ID: "r1", Objective: 3, Parameters: []float64{1, 100, 2}},
			{ID: "r2", Objective: 4, Parameters: []float64{3, 101, 4}},
		},
	}

	m, err := SelectParameters(ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Names) != 2 || m.Names[0] != "PERM" || m.Names[1] != "PORO" {
		t.Fatalf("expected [PERM PORO], got %v", m.Names)
	}
	if r, c := m.Data.Dims(); r != 2 || c != 2 {
		t.Fatalf("expected 2x2 matrix, got %dx%d", r, c)
	}
	if m.Data.At(1, 1) != 4 {
		t.Fatalf("expected PORO of r2 = 4, got %v", m.Data.At(1, 1))
	}
	if m.IDs[0] != "r1" || m.IDs[1] != "r2" {
		t.Fatalf("expected row ids preserved, got %v", m.IDs)
	}
}

func TestSelectParametersNoneLeft(t *testing.T) {
	ds := &models.Dataset{
		Schema: testSchema("Simulation", "OF Value"),
		Runs:   []models.Run{{ID: "r1", Parameters: []float64{1, 2}}},
	}

	_, err := SelectParameters(ds)
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected *InputError, got %v", err)
	}
}
