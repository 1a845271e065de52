package pipeline

import (
	"math"
)

// SilhouetteScore returns the mean silhouette coefficient of a labeling
// under Euclidean distance. Samples alone in their cluster score 0.
// The labeling must use between 2 and n-1 distinct labels.
func SilhouetteScore(x [][]float64, labels []int) (float64, error) {
	n := len(x)
	if n == 0 {
		return 0, inputErrorf(StageDiagnostics, "no samples")
	}
	if len(labels) != n {
		return 0, inputErrorf(StageDiagnostics, "label count %d does not match sample count %d", len(labels), n)
	}

	index := make(map[int]int)
	for _, l := range labels {
		if _, ok := index[l]; !ok {
			index[l] = len(index)
		}
	}
	k := len(index)
	if k < 2 || k > n-1 {
		return 0, degenerateErrorf(StageDiagnostics, "silhouette needs 2..%d populated clusters, got %d", n-1, k)
	}

	sizes := make([]int, k)
	for _, l := range labels {
		sizes[index[l]]++
	}

	sums := make([]float64, k)
	total := 0.0
	for i := 0; i < n; i++ {
		for c := range sums {
			sums[c] = 0
		}
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sums[index[labels[j]]] += math.Sqrt(squaredDistance(x[i], x[j]))
		}

		own := index[labels[i]]
		if sizes[own] < 2 {
			continue
		}
		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for c := range sums {
			if c == own {
				continue
			}
			if m := sums[c] / float64(sizes[c]); m < b {
				b = m
			}
		}
		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}

	score := total / float64(n)
	return math.Max(-1, math.Min(1, score)), nil
}
