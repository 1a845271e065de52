package analysisd

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"
)

const testConfigYAML = `
analysis:
  best_model_percentile: 0.5
  k_range: {min: 2, max: 4}
  optimal_k: 3
  n_init: 3
`

// sampleCSV renders n runs in the exported calibration layout.
func sampleCSV(n int) string {
	rng := rand.New(rand.NewSource(int64(n)))
	var b strings.Builder
	b.WriteString(",Simulation,OF Value,MULT_PERM,MULT_PORO,MULT_KVKH,OutputPath\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "sim-%03d,%d,%.4f,%.4f,%.4f,%.4f,/runs/%d\n",
			i, i+1, rng.Float64()*50, rng.Float64(), rng.Float64(), rng.Float64(), i)
	}
	return b.String()
}

func newTestExecutor() (*Store, *Executor) {
	store := NewStore()
	return store, NewExecutor(store, NewNotifier())
}

// waitTerminal waits for the analysis goroutine and returns the final record.
func waitTerminal(t *testing.T, store *Store, executor *Executor, id string) Record {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := executor.Wait(ctx, id); err != nil {
		t.Fatalf("analysis %s did not finish: %v", id, err)
	}
	rec, ok := store.Get(id)
	if !ok {
		t.Fatalf("analysis %s not found", id)
	}
	if !rec.Analysis.Status.Terminal() {
		t.Fatalf("analysis %s not terminal: %s", id, rec.Analysis.Status)
	}
	return rec
}
