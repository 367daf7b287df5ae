package testutil

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/model"
)

func TestUniformVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))
	assert.LessOrEqual(t, v[0][0], float32(1.0))
	assert.GreaterOrEqual(t, v[1][0], float32(0.0))
}

func TestUnitVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UnitVectors(8, 32)

	assert.Equal(t, 8, len(v))
	for _, vec := range v {
		var sum float32
		for _, val := range vec {
			sum += val * val
		}
		assert.InDelta(t, float32(1.0), sum, 1e-5)
	}
}

func TestClusteredVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.ClusteredVectors(100, 32, 5, 0.1)

	assert.Equal(t, 100, len(v))
	assert.Equal(t, 32, len(v[0]))
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	v1 := rng.UniformVectors(1, 10)
	p1 := rng.Perm(20)

	rng.Reset()
	v2 := rng.UniformVectors(1, 10)
	p2 := rng.Perm(20)

	assert.Equal(t, v1, v2)
	assert.Equal(t, p1, p2)
}

func TestNullMaskRate(t *testing.T) {
	rng := NewRNG(42)
	valid := rng.NullMask(10000, 0.25)

	nulls := 0
	for _, ok := range valid {
		if !ok {
			nulls++
		}
	}
	assert.InDelta(t, 0.25, float64(nulls)/10000, 0.03)
}

func TestSequences(t *testing.T) {
	assert.Equal(t, []int64{5, 6, 7}, SequentialPKs(3, 5))
	assert.Equal(t, []int64{10, 12, 14}, Timestamps(3, 10, 2))
}

func TestExactTopK(t *testing.T) {
	vecs := [][]float32{{0, 0}, {1, 0}, {1, 0}, {3, 0}}
	q := []float32{1, 0}

	got := ExactTopK(q, vecs, 3, distance.MetricL2, nil)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 2, 0}, []int64{got[0].Offset, got[1].Offset, got[2].Offset})

	admit := roaring.BitmapOf(0, 3)
	got = ExactTopK(q, vecs, 3, distance.MetricL2, admit)
	require.Len(t, got, 2)
	assert.Equal(t, int64(0), got[0].Offset)

	got = ExactTopK(q, vecs, 1, distance.MetricIP, nil)
	assert.Equal(t, int64(3), got[0].Offset)
}

func TestComputeRecall(t *testing.T) {
	truth := []model.Candidate{{Offset: 1}, {Offset: 2}, {Offset: 3}, {Offset: 4}}
	approx := []model.Candidate{{Offset: 1}, {Offset: 5}, {Offset: 3}, {Offset: 9}}

	assert.InDelta(t, 0.5, ComputeRecall(truth, approx), 1e-9)
	assert.InDelta(t, 1.0, ComputeRecall(nil, nil), 1e-9)
	assert.InDelta(t, 0.0, ComputeRecall(truth, nil), 1e-9)
}
