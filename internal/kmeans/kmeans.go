package kmeans

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/segcore/distance"
)

// ErrNotEnoughVectors is returned when there are fewer vectors than clusters.
var ErrNotEnoughVectors = errors.New("kmeans: fewer vectors than clusters")

// Config controls training.
type Config struct {
	K       int
	MaxIter int
	Metric  distance.Metric
	Seed    uint64
	// Workers bounds the parallelism of the assignment step. 0 uses GOMAXPROCS.
	Workers int
}

// Train learns cfg.K centroids from vectors (n*dim values) and returns them
// flattened (K*dim values).
func Train(ctx context.Context, vectors []float32, dim int, cfg Config) ([]float32, error) {
	if dim <= 0 || cfg.K <= 0 {
		return nil, fmt.Errorf("kmeans: invalid dim %d or k %d", dim, cfg.K)
	}
	n := len(vectors) / dim
	if n < cfg.K {
		return nil, fmt.Errorf("%w: %d < %d", ErrNotEnoughVectors, n, cfg.K)
	}
	distFunc, err := distance.Provider(cfg.Metric)
	if err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	k := cfg.K
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	centroids := make([]float32, k*dim)
	perm := rng.Perm(n)
	for j := 0; j < k; j++ {
		copy(centroids[j*dim:(j+1)*dim], vectors[perm[j]*dim:(perm[j]+1)*dim])
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	counts := make([]int, k)
	sums := make([]float32, k*dim)

	batch := (n + workers - 1) / workers
	for iter := 0; iter < cfg.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := make([]bool, workers)
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for w := 0; w < workers; w++ {
			lo, hi := w*batch, min((w+1)*batch, n)
			if lo >= hi {
				continue
			}
			g.Go(func() error {
				for i := lo; i < hi; i++ {
					best := nearest(vectors[i*dim:(i+1)*dim], centroids, dim, cfg.Metric, distFunc)
					if assignments[i] != best {
						assignments[i] = best
						changed[w] = true
					}
				}
				return nil
			})
		}
		_ = g.Wait()

		anyChanged := false
		for _, c := range changed {
			anyChanged = anyChanged || c
		}
		if !anyChanged {
			break
		}

		clear(sums)
		clear(counts)
		for i := 0; i < n; i++ {
			c := assignments[i]
			vec := vectors[i*dim : (i+1)*dim]
			for d := 0; d < dim; d++ {
				sums[c*dim+d] += vec[d]
			}
			counts[c]++
		}
		for j := 0; j < k; j++ {
			if counts[j] == 0 {
				// Re-seed empty clusters from a random point.
				idx := rng.IntN(n)
				copy(centroids[j*dim:(j+1)*dim], vectors[idx*dim:(idx+1)*dim])
				continue
			}
			scale := 1 / float32(counts[j])
			for d := 0; d < dim; d++ {
				centroids[j*dim+d] = sums[j*dim+d] * scale
			}
		}
	}

	return centroids, nil
}

func nearest(vec, centroids []float32, dim int, m distance.Metric, fn distance.Func) int {
	best := -1
	var bestScore float32
	for j := 0; j < len(centroids)/dim; j++ {
		d := fn(vec, centroids[j*dim:(j+1)*dim])
		if best < 0 || m.Closer(d, bestScore) {
			best, bestScore = j, d
		}
	}
	return best
}

// Assign returns the closest centroid to vec.
func Assign(vec, centroids []float32, dim int, m distance.Metric) (int, error) {
	fn, err := distance.Provider(m)
	if err != nil {
		return -1, err
	}
	return nearest(vec, centroids, dim, m, fn), nil
}

// Nearest returns the ids of the n closest centroids to query, closest first.
func Nearest(query, centroids []float32, dim, n int, m distance.Metric) ([]int, error) {
	fn, err := distance.Provider(m)
	if err != nil {
		return nil, err
	}
	k := len(centroids) / dim
	n = min(n, k)

	type scored struct {
		id    int
		score float32
	}
	all := make([]scored, k)
	for j := 0; j < k; j++ {
		all[j] = scored{id: j, score: fn(query, centroids[j*dim:(j+1)*dim])}
	}
	sort.Slice(all, func(a, b int) bool {
		if all[a].score != all[b].score {
			return m.Closer(all[a].score, all[b].score)
		}
		return all[a].id < all[b].id
	})

	out := make([]int, n)
	for i := range out {
		out[i] = all[i].id
	}
	return out, nil
}
