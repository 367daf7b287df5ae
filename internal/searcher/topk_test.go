package searcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/internal/f16"
	"github.com/hupe1980/segcore/model"
	"github.com/hupe1980/segcore/schema"
)

func TestTopKSmallerIsBetter(t *testing.T) {
	h := NewTopK(3, distance.MetricL2)
	for i, d := range []float32{5, 1, 4, 1, 3, 9} {
		h.Push(int64(i), d)
	}
	assert.True(t, h.Full())
	worst, ok := h.Worst()
	require.True(t, ok)
	assert.Equal(t, model.Candidate{Offset: 4, Distance: 3}, worst)

	assert.Equal(t, []model.Candidate{
		{Offset: 1, Distance: 1},
		{Offset: 3, Distance: 1},
		{Offset: 4, Distance: 3},
	}, h.Results())
}

func TestTopKLargerIsBetter(t *testing.T) {
	h := NewTopK(2, distance.MetricIP)
	for i, d := range []float32{0.5, 0.9, 0.1, 0.9} {
		h.Push(int64(i), d)
	}
	assert.Equal(t, []model.Candidate{
		{Offset: 1, Distance: 0.9},
		{Offset: 3, Distance: 0.9},
	}, h.Results())
}

func TestTopKTieBreakIndependentOfOrder(t *testing.T) {
	// Equal scores must keep the lowest offsets whatever the push order.
	a := NewTopK(2, distance.MetricL2)
	b := NewTopK(2, distance.MetricL2)
	for i := int64(0); i < 10; i++ {
		a.Push(i, 1)
		b.Push(9-i, 1)
	}
	assert.Equal(t, a.Results(), b.Results())
}

func TestTopKZero(t *testing.T) {
	h := NewTopK(0, distance.MetricL2)
	h.Push(1, 1)
	assert.Empty(t, h.Results())
}

func TestWithinRadius(t *testing.T) {
	assert.True(t, WithinRadius(distance.MetricL2, 1, 2))
	assert.False(t, WithinRadius(distance.MetricL2, 3, 2))
	assert.True(t, WithinRadius(distance.MetricIP, 3, 2))
	assert.False(t, WithinRadius(distance.MetricCosine, 0.1, 0.5))
}

func TestScorers(t *testing.T) {
	t.Run("float", func(t *testing.T) {
		s, err := NewScorer(schema.FloatVector, 2, distance.MetricL2)
		require.NoError(t, err)
		fn, err := s.Prepare(schema.EncodeFloatVector([]float32{0, 0}))
		require.NoError(t, err)
		assert.Equal(t, float32(25), fn(schema.EncodeFloatVector([]float32{3, 4})))

		_, err = s.Prepare([]byte{1})
		require.Error(t, err)
	})

	t.Run("float16", func(t *testing.T) {
		s, err := NewScorer(schema.Float16Vector, 2, distance.MetricIP)
		require.NoError(t, err)
		fn, err := s.Prepare(f16.AppendFloat16(nil, []float32{1, 2}))
		require.NoError(t, err)
		assert.Equal(t, float32(11), fn(f16.AppendFloat16(nil, []float32{3, 4})))
	})

	t.Run("binary", func(t *testing.T) {
		s, err := NewScorer(schema.BinaryVector, 8, distance.MetricHamming)
		require.NoError(t, err)
		fn, err := s.Prepare([]byte{0xF0})
		require.NoError(t, err)
		assert.Equal(t, float32(8), fn([]byte{0x0F}))
	})

	t.Run("int8", func(t *testing.T) {
		s, err := NewScorer(schema.Int8Vector, 2, distance.MetricIP)
		require.NoError(t, err)
		fn, err := s.Prepare([]byte{2, 0xFF})
		require.NoError(t, err)
		assert.Equal(t, float32(1), fn([]byte{1, 1}))
	})

	t.Run("sparse", func(t *testing.T) {
		s, err := NewScorer(schema.SparseFloatVector, 0, distance.MetricIP)
		require.NoError(t, err)
		fn, err := s.Prepare(schema.EncodeSparse([]uint32{1, 5}, []float32{2, 3}))
		require.NoError(t, err)
		assert.Equal(t, float32(6), fn(schema.EncodeSparse([]uint32{5}, []float32{2})))
	})

	t.Run("mismatch", func(t *testing.T) {
		_, err := NewScorer(schema.BinaryVector, 8, distance.MetricL2)
		require.ErrorIs(t, err, ErrMetricMismatch)
		_, err = NewScorer(schema.SparseFloatVector, 0, distance.MetricL2)
		require.ErrorIs(t, err, ErrMetricMismatch)
		_, err = NewScorer(schema.FloatVector, 4, distance.MetricJaccard)
		require.ErrorIs(t, err, ErrMetricMismatch)
	})
}
