package segcore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/segcore"
	"github.com/hupe1980/segcore/blobstore"
	"github.com/hupe1980/segcore/config"
	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/internal/binlog"
	"github.com/hupe1980/segcore/internal/cache"
	"github.com/hupe1980/segcore/internal/column"
	"github.com/hupe1980/segcore/internal/index"
	"github.com/hupe1980/segcore/internal/index/scalar"
	"github.com/hupe1980/segcore/model"
	"github.com/hupe1980/segcore/schema"
	"github.com/hupe1980/segcore/testutil"
)

const tagField schema.FieldID = 102

// TestLocalStoreLifecycle writes binlogs, a scalar index and a delta log to a
// local store, loads them through a cache, drops raw data and serves reads
// from the index.
func TestLocalStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	const (
		segID = 5
		n     = 300
		dim   = 8
	)
	store := blobstore.NewLocalStore(t.TempDir())
	rng := testutil.NewRNG(3)
	vecs := rng.UniformVectors(n, dim)
	tags := make([]int64, n)
	for i := range tags {
		tags[i] = int64(i % 7)
	}

	fields := map[schema.FieldID]*column.FieldData{
		schema.TimestampField: column.FromFixed(schema.Int64, testutil.Timestamps(n, 10, 1), nil),
		pkField:               column.FromFixed(schema.Int64, testutil.SequentialPKs(n, 0), nil),
		vecField:              column.FloatVectors(dim, vecs),
		tagField:              column.FromFixed(schema.Int64, tags, nil),
	}
	var info segcore.LoadFieldDataInfo
	for id, d := range fields {
		name := blobstore.RawDataPathPrefix(store.RootPath(), segID, int64(id)) + "0"
		frame, err := binlog.EncodeFieldData(d, binlog.CompressionLZ4)
		require.NoError(t, err)
		require.NoError(t, store.Write(ctx, name, frame))
		info.Fields = append(info.Fields, segcore.FieldBinlog{FieldID: id, RowCount: n, Paths: []string{name}})
	}

	s := schema.MustNew(
		schema.Field{ID: pkField, Name: "id", DataType: schema.Int64, IsPrimaryKey: true},
		schema.Field{ID: vecField, Name: "vec", DataType: schema.FloatVector, Dim: dim},
		schema.Field{ID: tagField, Name: "tag", DataType: schema.Int64},
	)

	sorted, err := scalar.Build(fields[tagField])
	require.NoError(t, err)
	frame, err := index.EncodeScalar(sorted, binlog.CompressionSnappy)
	require.NoError(t, err)
	idxName := blobstore.IndexPathPrefix(store.RootPath(), false, 11, 2, segID, int64(tagField)) + "sorted"
	require.NoError(t, store.Write(ctx, idxName, frame))

	delta, err := binlog.EncodeDelta([]model.PK{model.Int64PK(0), model.Int64PK(1)}, []model.Timestamp{500, 500}, binlog.CompressionNone)
	require.NoError(t, err)
	deltaName := blobstore.DeltaPathPrefix(store.RootPath(), segID) + "0"
	require.NoError(t, store.Write(ctx, deltaName, delta))

	rc := segcore.NewResourceController(config.Resource{}, 2)
	cached := blobstore.NewCachingStore(store, cache.NewShardedLRU(64<<20, rc))
	mc := &segcore.BasicMetricsCollector{}
	seg, err := segcore.New(segID, s, segcore.WithStore(cached), segcore.WithResourceController(rc), segcore.WithMetrics(mc))
	require.NoError(t, err)
	defer seg.Close()

	require.NoError(t, seg.LoadFieldData(ctx, info))
	require.NoError(t, seg.LoadIndex(ctx, segcore.LoadIndexInfo{FieldID: tagField, IndexType: index.KindSorted, BuildID: 11, IndexVersion: 2}))
	require.NoError(t, seg.LoadDeletedRecord(ctx, segcore.LoadDeletedRecordInfo{Paths: []string{deltaName}}))
	assert.True(t, seg.HasIndex(tagField))

	require.NoError(t, seg.DropFieldData(ctx, tagField))
	assert.False(t, seg.HasFieldData(tagField))
	assert.True(t, seg.HasRawData(tagField))

	col, err := seg.BulkSubscript(tagField, []int64{13, 6, 0})
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 6, 0}, []int64{col.Int(0), col.Int(1), col.Int(2)})

	for _, asOf := range []model.Timestamp{499, 500} {
		t.Run(fmt.Sprint(asOf), func(t *testing.T) {
			res, err := seg.VectorSearch(ctx, model.SearchRequest{FieldID: vecField, TopK: 1, Metric: distance.MetricL2}, encode(vecs[:1]), asOf, nil)
			require.NoError(t, err)
			if asOf < 500 {
				assert.Equal(t, int64(0), res.Queries[0][0].Offset)
			} else {
				assert.NotEqual(t, int64(0), res.Queries[0][0].Offset)
			}
		})
	}

	stats := mc.GetStats()
	assert.Equal(t, int64(6), stats.LoadCount)
	assert.Zero(t, stats.LoadErrors)
	assert.Equal(t, int64(1), stats.DropCount)
}
