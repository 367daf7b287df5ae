package flat

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/internal/searcher"
	"github.com/hupe1980/segcore/model"
)

func TestSearch(t *testing.T) {
	// Rows 1 and 3 are equidistant from the query.
	vecs := []float32{
		0, 0,
		1, 0,
		5, 5,
		-1, 0,
	}
	x, err := New(2, distance.MetricL2, vecs)
	require.NoError(t, err)
	assert.Equal(t, int64(4), x.Rows())
	assert.True(t, x.HasRawData())

	got, err := x.Search([]float32{0, 0}, searcher.Params{K: 3})
	require.NoError(t, err)
	assert.Equal(t, []model.Candidate{{Offset: 0, Distance: 0}, {Offset: 1, Distance: 1}, {Offset: 3, Distance: 1}}, got)

	admit := roaring.BitmapOf(2, 3)
	got, err = x.Search([]float32{0, 0}, searcher.Params{K: 3, Admit: admit})
	require.NoError(t, err)
	assert.Equal(t, []model.Candidate{{Offset: 3, Distance: 1}, {Offset: 2, Distance: 50}}, got)

	radius := float32(1)
	got, err = x.Search([]float32{0, 0}, searcher.Params{K: 10, Radius: &radius})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = x.Search([]float32{0}, searcher.Params{K: 1})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEncodeDecode(t *testing.T) {
	x, err := New(3, distance.MetricIP, []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	y, err := Decode(3, distance.MetricIP, x.Encode())
	require.NoError(t, err)
	assert.Equal(t, x.Rows(), y.Rows())
	assert.Equal(t, []float32{4, 5, 6}, y.Vector(1))

	_, err = Decode(3, distance.MetricIP, []byte{1, 2, 3})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(2, distance.MetricL2, []float32{1, 2, 3})
	require.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = New(2, distance.MetricHamming, []float32{1, 2})
	require.Error(t, err)
}
