package pipeline

import (
	"math"

	"github.com/GoSim-25-26J-441/calibration-core/pkg/utils"
)

// ClusterOptions controls k-means fitting.
type ClusterOptions struct {
	// K is the number of clusters. Must satisfy 0 < K < sample count.
	K int

	// Seed drives centroid initialization. Equal seeds and inputs give equal
	// results. Default: 42 only via DefaultClusterOptions; 0 is a valid seed.
	Seed int64

	// NInit is the number of k-means++ initializations; the run with the
	// lowest inertia wins. Default: 10.
	NInit int

	// MaxIterations bounds Lloyd iterations per initialization. Default: 300.
	MaxIterations int

	// Tolerance on the total squared centroid shift, relative to the mean
	// per-feature variance of the data. Default: 1e-4.
	Tolerance float64
}

// DefaultClusterOptions returns ClusterOptions with the defaults filled in.
func DefaultClusterOptions(k int) ClusterOptions {
	return ClusterOptions{
		K:             k,
		Seed:          42,
		NInit:         10,
		MaxIterations: 300,
		Tolerance:     1e-4,
	}
}

func (o *ClusterOptions) applyDefaults() {
	if o.NInit <= 0 {
		o.NInit = 10
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 300
	}
	if o.Tolerance < 0 {
		o.Tolerance = 0
	}
}

// Clustering is a fitted k-means partition.
type Clustering struct {
	K          int
	Labels     []int
	Centroids  [][]float64
	Inertia    float64
	Iterations int
}

// Populated returns the number of distinct labels actually in use.
func (c *Clustering) Populated() int {
	seen := make(map[int]bool, c.K)
	for _, l := range c.Labels {
		seen[l] = true
	}
	return len(seen)
}

// Sizes returns the member count of each cluster.
func (c *Clustering) Sizes() []int {
	out := make([]int, c.K)
	for _, l := range c.Labels {
		out[l]++
	}
	return out
}

// FitCluster partitions x into exactly opts.K clusters with Lloyd's
// algorithm from k-means++ seeding. Every label in [0, K) ends up with at
// least one member.
func FitCluster(x [][]float64, opts ClusterOptions) (*Clustering, error) {
	opts.applyDefaults()
	n := len(x)
	if n == 0 {
		return nil, inputErrorf(StageCluster, "no samples to cluster")
	}
	dims := len(x[0])
	if dims == 0 {
		return nil, inputErrorf(StageCluster, "samples have no features")
	}
	for i, row := range x {
		if len(row) != dims {
			return nil, inputErrorf(StageCluster, "sample %d has %d features, expected %d", i, len(row), dims)
		}
	}
	if opts.K <= 0 || opts.K >= n {
		return nil, degenerateErrorf(StageCluster, "k must satisfy 0 < k < %d (sample count), got %d", n, opts.K)
	}

	tol := opts.Tolerance * meanVariance(x)
	rng := utils.NewRandSource(opts.Seed)

	var best *Clustering
	for run := 0; run < opts.NInit; run++ {
		centers := initPlusPlus(x, opts.K, rng)
		c := lloyd(x, centers, opts.MaxIterations, tol)
		if best == nil || c.Inertia < best.Inertia {
			best = c
		}
	}
	return best, nil
}

// meanVariance is the mean of the per-feature population variances.
func meanVariance(x [][]float64) float64 {
	n := float64(len(x))
	dims := len(x[0])
	total := 0.0
	for j := 0; j < dims; j++ {
		var sum, sumSq float64
		for _, row := range x {
			sum += row[j]
			sumSq += row[j] * row[j]
		}
		mean := sum / n
		total += math.Max(sumSq/n-mean*mean, 0)
	}
	return total / float64(dims)
}

// initPlusPlus picks k starting centers, each with probability proportional
// to its squared distance from the nearest center chosen so far.
func initPlusPlus(x [][]float64, k int, rng *utils.RandSource) [][]float64 {
	n := len(x)
	centers := make([][]float64, 0, k)
	first := x[rng.Intn(n)]
	centers = append(centers, append([]float64(nil), first...))

	dist := make([]float64, n)
	for i, row := range x {
		dist[i] = squaredDistance(row, first)
	}
	for len(centers) < k {
		idx := rng.WeightedIndex(dist)
		next := append([]float64(nil), x[idx]...)
		centers = append(centers, next)
		for i, row := range x {
			if d := squaredDistance(row, next); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centers
}

func nearest(row []float64, centers [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := squaredDistance(row, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func assign(x [][]float64, centers [][]float64, labels []int) (changed bool) {
	for i, row := range x {
		c, _ := nearest(row, centers)
		if labels[i] != c {
			labels[i] = c
			changed = true
		}
	}
	return changed
}

// fillEmpty moves the point farthest from its own center into each empty
// cluster. Donor clusters always keep at least one member.
func fillEmpty(x [][]float64, centers [][]float64, labels []int) {
	k := len(centers)
	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}
	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			continue
		}
		far, farDist := -1, -1.0
		for i, row := range x {
			if counts[labels[i]] < 2 {
				continue
			}
			if d := squaredDistance(row, centers[labels[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			return
		}
		counts[labels[far]]--
		labels[far] = c
		counts[c]++
		centers[c] = append(centers[c][:0], x[far]...)
	}
}

func means(x [][]float64, labels []int, k int) [][]float64 {
	dims := len(x[0])
	out := make([][]float64, k)
	counts := make([]int, k)
	for c := range out {
		out[c] = make([]float64, dims)
	}
	for i, row := range x {
		l := labels[i]
		counts[l]++
		for j, v := range row {
			out[l][j] += v
		}
	}
	for c := range out {
		if counts[c] == 0 {
			continue
		}
		for j := range out[c] {
			out[c][j] /= float64(counts[c])
		}
	}
	return out
}

func lloyd(x [][]float64, centers [][]float64, maxIter int, tol float64) *Clustering {
	k := len(centers)
	labels := make([]int, len(x))
	for i := range labels {
		labels[i] = -1
	}

	iter := 0
	for iter < maxIter {
		iter++
		changed := assign(x, centers, labels)
		fillEmpty(x, centers, labels)
		next := means(x, labels, k)

		shift := 0.0
		for c := range centers {
			shift += squaredDistance(centers[c], next[c])
		}
		centers = next
		if !changed || shift <= tol {
			break
		}
	}

	// Final assignment so labels agree with the returned centers.
	assign(x, centers, labels)
	fillEmpty(x, centers, labels)
	centers = means(x, labels, k)

	inertia := 0.0
	for i, row := range x {
		inertia += squaredDistance(row, centers[labels[i]])
	}
	return &Clustering{
		K:          k,
		Labels:     labels,
		Centroids:  centers,
		Inertia:    inertia,
		Iterations: iter,
	}
}
