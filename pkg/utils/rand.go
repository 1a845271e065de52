package utils

import (
	"math/rand"
)

// RandSource is a seeded random number generator. A RandSource is not safe
// for concurrent use; give each goroutine its own.
type RandSource struct {
	rng *rand.Rand
}

// NewRandSource creates a new random source with the given seed.
// Equal seeds always produce equal sequences, including seed 0.
func NewRandSource(seed int64) *RandSource {
	return &RandSource{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	return r.rng.Intn(n)
}

// Int63 returns a non-negative random int64, used to derive child seeds.
func (r *RandSource) Int63() int64 {
	return r.rng.Int63()
}

// WeightedIndex picks an index with probability proportional to its weight.
// Negative weights count as zero. When every weight is zero the pick is
// uniform. Returns -1 for an empty slice.
func (r *RandSource) WeightedIndex(weights []float64) int {
	if len(weights) == 0 {
		return -1
	}
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return r.rng.Intn(len(weights))
	}

	target := r.rng.Float64() * total
	acc := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if target < acc {
			return i
		}
	}
	// Rounding can leave target just above the accumulated sum.
	return last
}
