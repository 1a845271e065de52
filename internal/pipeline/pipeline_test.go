package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/GoSim-25-26J-441/calibration-core/pkg/config"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
)

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.Default().Analysis)
	if opts.Percentile != 0.30 || opts.VarianceThreshold != 0.95 {
		t.Fatalf("unexpected thresholds: %+v", opts)
	}
	if opts.KMin != 2 || opts.KMax != 10 || opts.K != 10 {
		t.Fatalf("unexpected k settings: %+v", opts)
	}
	if opts.Seed != 42 || opts.NInit != 10 {
		t.Fatalf("unexpected clustering settings: %+v", opts)
	}
}

func TestRunEndToEnd(t *testing.T) {
	opts := OptionsFromConfig(config.Default().Analysis)
	opts.K = 4

	res, err := Run(context.Background(), uniformDataset(100, 5, 17), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 100 || res.Best.Len() != 30 {
		t.Fatalf("expected 30 of 100 runs retained, got %d of %d", res.Best.Len(), res.Total)
	}
	if c := res.State.Projection.NumComponents(); c < 1 || c > 5 {
		t.Fatalf("expected 1..5 components, got %d", c)
	}
	if len(res.Diagnostics.Inertia) != 9 {
		t.Fatalf("expected diagnostics for k=2..10, got %d points", len(res.Diagnostics.Inertia))
	}
	if len(res.Summaries) != 4 || len(res.BestPerCluster) != 4 {
		t.Fatalf("expected 4 summaries and 4 best runs, got %d and %d", len(res.Summaries), len(res.BestPerCluster))
	}
	if len(res.Labeled) != 30 {
		t.Fatalf("expected 30 labeled runs, got %d", len(res.Labeled))
	}
	for i := 1; i < len(res.Labeled); i++ {
		prev, cur := res.Labeled[i-1], res.Labeled[i]
		if prev.Cluster > cur.Cluster || (prev.Cluster == cur.Cluster && prev.Objective > cur.Objective) {
			t.Fatalf("labeled runs not sorted by (cluster, objective) at %d", i)
		}
	}
	for c, best := range res.BestPerCluster {
		if best.Cluster != c {
			t.Fatalf("best per cluster %d labeled %d", c, best.Cluster)
		}
	}
}

func TestRunRecoversBlobs(t *testing.T) {
	opts := OptionsFromConfig(config.Default().Analysis)
	opts.Percentile = 1
	opts.K = 3
	opts.KMax = 6

	res, err := Run(context.Background(), blobDataset(90, 31), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sameGrouping(res.State.Clustering.Labels) {
		t.Fatalf("expected the three generated groups as clusters")
	}
}

func TestRunDiagnosticsOnly(t *testing.T) {
	opts := OptionsFromConfig(config.Default().Analysis)

	res, err := RunDiagnostics(context.Background(), uniformDataset(50, 3, 2), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Diagnostics == nil {
		t.Fatalf("expected diagnostics")
	}
	if res.State.Clustering != nil || res.Summaries != nil {
		t.Fatalf("expected no clustering in diagnostics-only mode")
	}
}

func TestRunErrors(t *testing.T) {
	opts := OptionsFromConfig(config.Default().Analysis)

	t.Run("empty dataset", func(t *testing.T) {
		_, err := Run(context.Background(), &models.Dataset{Schema: testSchema("A")}, opts)
		var inputErr *InputError
		if !errors.As(err, &inputErr) || inputErr.Stage != StageFilter {
			t.Fatalf("expected filter *InputError, got %v", err)
		}
	})

	t.Run("k not below sample count", func(t *testing.T) {
		small := opts
		small.K = 30
		_, err := Run(context.Background(), uniformDataset(100, 3, 1), small)
		var degenerate *DegenerateInputError
		if !errors.As(err, &degenerate) || degenerate.Stage != StageCluster {
			t.Fatalf("expected cluster *DegenerateInputError, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, uniformDataset(100, 3, 1), opts)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}
