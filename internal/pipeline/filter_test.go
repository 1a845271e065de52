package pipeline

import (
	"errors"
	"math"
	"testing"

	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
)

func TestFilterBestPercentile(t *testing.T) {
	ds := uniformDataset(100, 3, 1)

	res, err := FilterBest(ds, 0.30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.Threshold-29.7) > 1e-9 {
		t.Fatalf("expected threshold 29.7, got %v", res.Threshold)
	}
	if res.Dataset.Len() != 30 {
		t.Fatalf("expected 30 runs, got %d", res.Dataset.Len())
	}
	if res.Total != 100 {
		t.Fatalf("expected total 100, got %d", res.Total)
	}
	for i, r := range res.Dataset.Runs {
		if r.Objective != float64(i) {
			t.Fatalf("run %d: expected objective %d in original order, got %v", i, i, r.Objective)
		}
	}
}

func TestFilterBestKeepsTies(t *testing.T) {
	ds := &models.Dataset{Schema: testSchema("A")}
	for i, of := range []float64{5, 1, 1, 1, 9} {
		ds.Runs = append(ds.Runs, models.Run{ID: string(rune('a' + i)), Objective: of, Parameters: []float64{float64(i)}})
	}

	res, err := FilterBest(ds, 0.25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Threshold != 1 {
		t.Fatalf("expected threshold 1, got %v", res.Threshold)
	}
	if res.Dataset.Len() != 3 {
		t.Fatalf("expected the three tied runs, got %d", res.Dataset.Len())
	}
}

func TestFilterBestMonotonic(t *testing.T) {
	ds := uniformDataset(57, 2, 3)
	prev := 0
	for _, p := range []float64{0.05, 0.1, 0.3, 0.5, 0.75, 0.9, 1} {
		res, err := FilterBest(ds, p)
		if err != nil {
			t.Fatalf("p=%v: unexpected error: %v", p, err)
		}
		for _, r := range res.Dataset.Runs {
			if r.Objective > res.Threshold {
				t.Fatalf("p=%v: run %s above threshold %v", p, r.ID, res.Threshold)
			}
		}
		if res.Dataset.Len() < prev {
			t.Fatalf("p=%v: retained %d runs, fewer than %d at a smaller percentile", p, res.Dataset.Len(), prev)
		}
		prev = res.Dataset.Len()
	}
	if prev != 57 {
		t.Fatalf("expected percentile 1 to keep every run, got %d", prev)
	}
}

func TestFilterBestInvalidInput(t *testing.T) {
	nan := uniformDataset(4, 1, 1)
	nan.Runs[2].Objective = math.NaN()

	tests := []struct {
		name       string
		ds         *models.Dataset
		percentile float64
	}{
		{"nil dataset", nil, 0.3},
		{"empty dataset", &models.Dataset{Schema: testSchema("A")}, 0.3},
		{"zero percentile", uniformDataset(4, 1, 1), 0},
		{"percentile above one", uniformDataset(4, 1, 1), 1.5},
		{"unnamed objective", &models.Dataset{Runs: []models.Run{{ID: "a"}}}, 0.3},
		{"non-finite objective", nan, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FilterBest(tt.ds, tt.percentile)
			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("expected *InputError, got %v", err)
			}
			if inputErr.Stage != StageFilter {
				t.Fatalf("expected stage %q, got %q", StageFilter, inputErr.Stage)
			}
		})
	}
}
