package pipeline

import (
	"fmt"
	"math/rand"

	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
)

func testSchema(params ...string) models.Schema {
	return models.Schema{
		IDColumn:        "Simulation_ID",
		SequenceColumn:  "Simulation",
		ObjectiveColumn: "OF Value",
		Parameters:      params,
	}
}

// uniformDataset has n runs with objective = run index and d independent
// uniform parameters.
func uniformDataset(n, d int, seed int64) *models.Dataset {
	rng := rand.New(rand.NewSource(seed))
	names := make([]string, d)
	for j := range names {
		names[j] = fmt.Sprintf("MULT_%d", j+1)
	}
	ds := &models.Dataset{Schema: testSchema(names...)}
	for i := 0; i < n; i++ {
		params := make([]float64, d)
		for j := range params {
			params[j] = 0.5 + rng.Float64()
		}
		ds.Runs = append(ds.Runs, models.Run{
			ID:         fmt.Sprintf("run-%03d", i),
			Sequence:   float64(i + 1),
			Objective:  float64(i),
			Parameters: params,
		})
	}
	return ds
}

var blobCenters = [][]float64{
	{0, 0, 0},
	{10, 10, 10},
	{-10, 10, -10},
}

// blobDataset places run i near blobCenters[i%3]. Objectives are the run
// index, so run i%3 identifies the true group.
func blobDataset(n int, seed int64) *models.Dataset {
	rng := rand.New(rand.NewSource(seed))
	ds := &models.Dataset{Schema: testSchema("PERM", "PORO", "KVKH")}
	for i := 0; i < n; i++ {
		center := blobCenters[i%3]
		params := make([]float64, len(center))
		for j, c := range center {
			params[j] = c + rng.NormFloat64()*0.5
		}
		ds.Runs = append(ds.Runs, models.Run{
			ID:         fmt.Sprintf("run-%03d", i),
			Sequence:   float64(i + 1),
			Objective:  float64(i),
			Parameters: params,
		})
	}
	return ds
}

func blobPoints(n int, seed int64) [][]float64 {
	ds := blobDataset(n, seed)
	out := make([][]float64, n)
	for i, r := range ds.Runs {
		out[i] = r.Parameters
	}
	return out
}

// sameGrouping reports whether labels partition indices exactly like i%3.
func sameGrouping(labels []int) bool {
	byGroup := map[int]int{}
	byLabel := map[int]int{}
	for i, l := range labels {
		g := i % 3
		if want, ok := byGroup[g]; ok && want != l {
			return false
		}
		if want, ok := byLabel[l]; ok && want != g {
			return false
		}
		byGroup[g] = l
		byLabel[l] = g
	}
	return true
}
