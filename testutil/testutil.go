// Package testutil generates reproducible segment fixtures and exact
// search baselines for tests, benchmarks and examples.
package testutil

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/model"
)

// RNG is a seeded source shared by fixture generators. Safe for concurrent
// use; each call holds the lock for its whole batch.
type RNG struct {
	mu   sync.Mutex
	seed int64
	src  *rand.Rand
}

func NewRNG(seed int64) *RNG {
	return &RNG{seed: seed, src: rand.New(rand.NewSource(seed))}
}

func (r *RNG) with(fn func(src *rand.Rand)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.src)
}

// Reset rewinds the sequence to the seed.
func (r *RNG) Reset() { r.with(func(src *rand.Rand) { src.Seed(r.seed) }) }

func (r *RNG) Intn(n int) (v int) {
	r.with(func(src *rand.Rand) { v = src.Intn(n) })
	return v
}

func (r *RNG) Float32() (v float32) {
	r.with(func(src *rand.Rand) { v = src.Float32() })
	return v
}

// FillUniform overwrites dst with values in [0, 1).
func (r *RNG) FillUniform(dst []float32) {
	r.with(func(src *rand.Rand) {
		for i := range dst {
			dst[i] = src.Float32()
		}
	})
}

// vectors carves n rows of dim from one backing slice and fills each with gen.
func (r *RNG) vectors(n, dim int, gen func(src *rand.Rand, row int, vec []float32)) [][]float32 {
	backing := make([]float32, n*dim)
	out := make([][]float32, n)
	r.with(func(src *rand.Rand) {
		for i := range out {
			out[i] = backing[i*dim : (i+1)*dim : (i+1)*dim]
			gen(src, i, out[i])
		}
	})
	return out
}

// UniformVectors returns n FloatVector rows with components in [0, 1).
func (r *RNG) UniformVectors(n, dim int) [][]float32 {
	return r.vectors(n, dim, func(src *rand.Rand, _ int, vec []float32) {
		for j := range vec {
			vec[j] = src.Float32()
		}
	})
}

// UnitVectors returns n rows drawn uniformly from the unit hypersphere.
func (r *RNG) UnitVectors(n, dim int) [][]float32 {
	return r.vectors(n, dim, func(src *rand.Rand, _ int, vec []float32) {
		for j := range vec {
			vec[j] = float32(src.NormFloat64())
		}
		if !distance.NormalizeL2InPlace(vec) {
			vec[0] = 1
		}
	})
}

// ClusteredVectors scatters n rows around clusters random unit centroids with
// Gaussian noise of the given spread. Row i belongs to centroid i%clusters.
func (r *RNG) ClusteredVectors(n, dim, clusters int, spread float32) [][]float32 {
	centroids := r.UnitVectors(clusters, dim)
	return r.vectors(n, dim, func(src *rand.Rand, row int, vec []float32) {
		c := centroids[row%clusters]
		for j := range vec {
			vec[j] = c[j] + float32(src.NormFloat64())*spread
		}
	})
}

// NullMask returns a validity slice where each row is null with probability
// nullRate.
func (r *RNG) NullMask(n int, nullRate float64) []bool {
	valid := make([]bool, n)
	r.with(func(src *rand.Rand) {
		for i := range valid {
			valid[i] = src.Float64() >= nullRate
		}
	})
	return valid
}

// Perm returns a random ordering of the offsets [0, n).
func (r *RNG) Perm(n int) []int64 {
	out := make([]int64, n)
	r.with(func(src *rand.Rand) {
		for i, v := range src.Perm(n) {
			out[i] = int64(v)
		}
	})
	return out
}

// SequentialPKs returns the keys start, start+1, ... as int64 values.
func SequentialPKs(n int, start int64) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = start + int64(i)
	}
	return out
}

// Timestamps returns n non-decreasing timestamps start, start+step, ...
func Timestamps(n int, start, step uint64) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(start + uint64(i)*step)
	}
	return out
}

// ExactTopK scores every admitted vector against query and returns the k
// best, ranked by distance then offset. A nil admit admits every row.
func ExactTopK(query []float32, vectors [][]float32, k int, m distance.Metric, admit *roaring.Bitmap) []model.Candidate {
	fn, err := distance.Provider(m)
	if err != nil {
		panic(err)
	}
	all := make([]model.Candidate, 0, len(vectors))
	for i, v := range vectors {
		if admit != nil && !admit.Contains(uint32(i)) {
			continue
		}
		all = append(all, model.Candidate{Offset: int64(i), Distance: fn(query, v)})
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Distance != b.Distance {
			return m.Closer(a.Distance, b.Distance)
		}
		return a.Offset < b.Offset
	})
	if len(all) > k {
		all = all[:k]
	}
	return all
}

// ComputeRecall computes recall@k of approximate against ground truth.
func ComputeRecall(groundTruth, approximate []model.Candidate) float64 {
	if len(groundTruth) == 0 || len(approximate) == 0 {
		if len(groundTruth) == 0 && len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	k := min(len(approximate), len(groundTruth))

	truthSet := make(map[int64]struct{}, k)
	for i := range k {
		truthSet[groundTruth[i].Offset] = struct{}{}
	}

	hits := 0
	for _, c := range approximate[:k] {
		if _, ok := truthSet[c.Offset]; ok {
			hits++
		}
	}

	return float64(hits) / float64(k)
}
