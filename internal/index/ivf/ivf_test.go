package ivf

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/internal/index/flat"
	"github.com/hupe1980/segcore/internal/searcher"
)

func randomVectors(n, dim int, seed uint64) []float32 {
	rng := rand.New(rand.NewPCG(seed, seed))
	out := make([]float32, n*dim)
	for i := range out {
		out[i] = rng.Float32()*2 - 1
	}
	return out
}

func TestFullProbeMatchesFlat(t *testing.T) {
	const dim = 8
	vecs := randomVectors(500, dim, 7)
	queries := randomVectors(10, dim, 8)

	for _, m := range []distance.Metric{distance.MetricL2, distance.MetricIP, distance.MetricCosine} {
		t.Run(m.String(), func(t *testing.T) {
			x, err := Build(context.Background(), vecs, dim, Config{NList: 16, NProbe: 2, Metric: m, Seed: 1})
			require.NoError(t, err)
			assert.Equal(t, 16, x.NList())

			ref, err := flat.New(dim, m, vecs)
			require.NoError(t, err)

			for q := 0; q < 10; q++ {
				query := queries[q*dim : (q+1)*dim]
				want, err := ref.Search(query, searcher.Params{K: 10})
				require.NoError(t, err)
				got, err := x.Search(query, searcher.Params{K: 10, NProbe: x.NList()})
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestZeroProbeDepthVisitsEveryList(t *testing.T) {
	const dim = 8
	vecs := randomVectors(400, dim, 11)
	queries := randomVectors(5, dim, 12)

	x, err := Build(context.Background(), vecs, dim, Config{NList: 32, Metric: distance.MetricL2, Seed: 3})
	require.NoError(t, err)
	assert.Zero(t, x.NProbe())

	ref, err := flat.New(dim, distance.MetricL2, vecs)
	require.NoError(t, err)
	for q := 0; q < 5; q++ {
		query := queries[q*dim : (q+1)*dim]
		want, err := ref.Search(query, searcher.Params{K: 20})
		require.NoError(t, err)
		got, err := x.Search(query, searcher.Params{K: 20})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestEncodeDecode(t *testing.T) {
	const dim = 4
	vecs := randomVectors(100, dim, 3)
	x, err := Build(context.Background(), vecs, dim, Config{NList: 5, NProbe: 3, Metric: distance.MetricL2})
	require.NoError(t, err)

	y, err := Decode(dim, distance.MetricL2, x.Encode())
	require.NoError(t, err)
	assert.Equal(t, x.NList(), y.NList())
	assert.Equal(t, 3, y.NProbe())
	assert.Equal(t, x.Rows(), y.Rows())

	q := vecs[:dim]
	a, err := x.Search(q, searcher.Params{K: 5})
	require.NoError(t, err)
	b, err := y.Search(q, searcher.Params{K: 5})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = Decode(dim, distance.MetricL2, x.Encode()[:10])
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestNListCappedAtRows(t *testing.T) {
	x, err := Build(context.Background(), []float32{0, 0, 1, 1, 2, 2}, 2, Config{NList: 64, Metric: distance.MetricL2})
	require.NoError(t, err)
	assert.Equal(t, 3, x.NList())
}
