package segcore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/segcore/blobstore"
	"github.com/hupe1980/segcore/config"
	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/internal/binlog"
	"github.com/hupe1980/segcore/internal/column"
	"github.com/hupe1980/segcore/internal/executor"
	"github.com/hupe1980/segcore/internal/index"
	"github.com/hupe1980/segcore/internal/index/flat"
	"github.com/hupe1980/segcore/model"
	"github.com/hupe1980/segcore/schema"
	"github.com/hupe1980/segcore/testutil"
)

const (
	pkField    schema.FieldID = 100
	vecField   schema.FieldID = 101
	ageField   schema.FieldID = 102
	docField   schema.FieldID = 103
	scoreField schema.FieldID = 104
	labelField schema.FieldID = 105

	testDim = 8
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	def := schema.IntValue(schema.Int64, 42)
	s, err := schema.New(
		schema.Field{ID: pkField, Name: "pk", DataType: schema.Int64, IsPrimaryKey: true},
		schema.Field{ID: vecField, Name: "vec", DataType: schema.FloatVector, Dim: testDim},
		schema.Field{ID: ageField, Name: "age", DataType: schema.Int32, Nullable: true},
		schema.Field{ID: docField, Name: "$meta", DataType: schema.JSON, IsDynamic: true},
		schema.Field{ID: scoreField, Name: "score", DataType: schema.Int64, DefaultValue: &def},
		schema.Field{ID: labelField, Name: "label", DataType: schema.Double, Nullable: true},
	)
	require.NoError(t, err)
	return s
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ChunkRows = 100
	return cfg
}

func newSegment(t *testing.T, opts ...Option) *SealedSegment {
	t.Helper()
	seg, err := New(1, testSchema(t), append([]Option{WithConfig(testConfig())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = seg.Close() })
	return seg
}

// rows holds the decoded columns of a generated segment.
type rows struct {
	pks  []int64
	tss  []int64
	vecs [][]float32
}

func genRows(n int, seed int64) rows {
	rng := testutil.NewRNG(seed)
	return rows{
		pks:  testutil.SequentialPKs(n, 0),
		tss:  testutil.Timestamps(n, 100, 1),
		vecs: rng.UniformVectors(n, testDim),
	}
}

func (r rows) binlogs() []FieldBinlog {
	n := int64(len(r.pks))
	rowIDs := testutil.SequentialPKs(len(r.pks), 1000)
	return []FieldBinlog{
		{FieldID: schema.RowIDField, RowCount: n, Data: column.FromFixed(schema.Int64, rowIDs, nil)},
		{FieldID: schema.TimestampField, RowCount: n, Data: column.FromFixed(schema.Int64, r.tss, nil)},
		{FieldID: pkField, RowCount: n, Data: column.FromFixed(schema.Int64, r.pks, nil)},
		{FieldID: vecField, RowCount: n, Data: column.FloatVectors(testDim, r.vecs)},
	}
}

func (r rows) lastTs() model.Timestamp { return model.Timestamp(r.tss[len(r.tss)-1]) }

func loadRows(t *testing.T, seg *SealedSegment, r rows) {
	t.Helper()
	require.NoError(t, seg.LoadFieldData(context.Background(), LoadFieldDataInfo{Fields: r.binlogs()}))
}

func encodeQueries(qs ...[]float32) [][]byte {
	out := make([][]byte, len(qs))
	for i, q := range qs {
		out[i] = schema.EncodeFloatVector(q)
	}
	return out
}

func offsets(cands []model.Candidate) []int64 {
	out := make([]int64, len(cands))
	for i, c := range cands {
		out[i] = c.Offset
	}
	return out
}

func requireSameHits(t *testing.T, want, got []model.Candidate) {
	t.Helper()
	require.Equal(t, offsets(want), offsets(got))
	for i := range want {
		assert.InDelta(t, want[i].Distance, got[i].Distance, 1e-4)
	}
}

func TestSortedSegmentLookupAndDelete(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.ChunkRows = 1000
	seg, err := New(7, testSchema(t), WithConfig(cfg), WithSortedByPK(true))
	require.NoError(t, err)
	defer seg.Close()

	r := genRows(10000, 1)
	for i := range r.tss {
		r.tss[i] = 100
	}
	loadRows(t, seg, r)
	require.Equal(t, int64(10000), seg.RowCount())

	offs, err := seg.SearchPK(model.Int64PK(4242), 200)
	require.NoError(t, err)
	assert.Equal(t, []int64{4242}, offs)

	offs, err = seg.SearchPK(model.Int64PK(4242), 99)
	require.NoError(t, err)
	assert.Empty(t, offs, "row inserted after the snapshot")

	require.NoError(t, seg.Delete(ctx, []model.PK{model.Int64PK(4242)}, []model.Timestamp{300}))

	offs, err = seg.SearchPK(model.Int64PK(4242), 300)
	require.NoError(t, err)
	assert.Empty(t, offs)

	offs, err = seg.SearchPK(model.Int64PK(4242), 299)
	require.NoError(t, err)
	assert.Equal(t, []int64{4242}, offs)

	assert.True(t, seg.IsDeleted(model.Int64PK(4242), 300))
	assert.Equal(t, 1, seg.DeletedCount(300))
	assert.Equal(t, 0, seg.DeletedCount(299))

	active, err := seg.ActiveCount(300)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), active)

	visible, err := seg.VisibleRows(300)
	require.NoError(t, err)
	assert.Equal(t, uint64(9999), visible.GetCardinality())
	assert.False(t, visible.Contains(4242))

	barrier, err := seg.SearchPKBarrier(model.Int64PK(4242), 10000)
	require.NoError(t, err)
	assert.Equal(t, []int64{4242}, barrier)
}

func TestSearchIDs(t *testing.T) {
	seg := newSegment(t)
	r := genRows(50, 2)
	loadRows(t, seg, r)
	require.NoError(t, seg.Delete(context.Background(), []model.PK{model.Int64PK(3)}, []model.Timestamp{r.lastTs()}))

	offs, matched, notFound, err := seg.SearchIDs([]model.PK{
		model.Int64PK(1), model.Int64PK(3), model.Int64PK(999),
	}, r.lastTs())
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, offs)
	assert.Equal(t, []model.PK{model.Int64PK(1)}, matched)
	assert.ElementsMatch(t, []model.PK{model.Int64PK(3), model.Int64PK(999)}, notFound)
}

func TestChunkLayout(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkRows = 1000
	seg, err := New(1, testSchema(t), WithConfig(cfg))
	require.NoError(t, err)
	defer seg.Close()

	loadRows(t, seg, genRows(2500, 3))

	n, err := seg.ChunkCount(vecField)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rowsInLast, err := seg.ChunkRowCount(vecField, 2)
	require.NoError(t, err)
	assert.Equal(t, 500, rowsInLast)

	tests := []struct {
		offset int64
		chunk  int
		local  int
	}{
		{0, 0, 0},
		{999, 0, 999},
		{1000, 1, 0},
		{2499, 2, 499},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.offset), func(t *testing.T) {
			chunk, local, err := seg.Locate(vecField, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.chunk, chunk)
			assert.Equal(t, tt.local, local)
		})
	}

	start, err := seg.RowsUntilChunk(vecField, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), start)

	_, _, err = seg.Locate(vecField, 2500)
	require.ErrorIs(t, err, column.ErrOffsetOutOfRange)
}

func TestBulkSubscriptNullable(t *testing.T) {
	seg := newSegment(t)
	require.NoError(t, seg.LoadFieldData(context.Background(), LoadFieldDataInfo{Fields: []FieldBinlog{{
		FieldID:  ageField,
		RowCount: 3,
		Data:     column.FromFixed(schema.Int32, []int32{5, 0, 7}, []bool{true, false, true}),
	}}}))

	col, err := seg.BulkSubscript(ageField, []int64{2, 1, 0})
	require.NoError(t, err)
	require.Equal(t, 3, col.Len)
	assert.Equal(t, []bool{true, false, true}, col.Valid)
	assert.Equal(t, int64(7), col.Int(0))
	assert.True(t, col.IsNull(1))
	assert.Equal(t, int64(5), col.Int(2))

	col, err = seg.BulkSubscript(ageField, []int64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, int64(5), col.Int(1))

	_, err = seg.BulkSubscript(ageField, []int64{3})
	require.ErrorIs(t, err, column.ErrOffsetOutOfRange)

	nullable, err := seg.IsNullable(ageField)
	require.NoError(t, err)
	assert.True(t, nullable)
	typ, err := seg.FieldDataType(ageField)
	require.NoError(t, err)
	assert.Equal(t, schema.Int32, typ)

	_, err = seg.BulkSubscript(999, []int64{0})
	require.ErrorIs(t, err, ErrFieldNotFound)
}

func TestUnloadedFieldsYieldDefaults(t *testing.T) {
	seg := newSegment(t)
	require.NoError(t, seg.LoadSegmentMeta(SegmentMeta{RowCount: 3}))

	col, err := seg.BulkSubscript(scoreField, []int64{0, 2})
	require.NoError(t, err)
	assert.Equal(t, int64(42), col.Int(0))
	assert.Equal(t, int64(42), col.Int(1))

	col, err = seg.BulkSubscript(labelField, []int64{1})
	require.NoError(t, err)
	assert.True(t, col.IsNull(0))

	_, err = seg.BulkSubscript(scoreField, []int64{3})
	require.ErrorIs(t, err, column.ErrOffsetOutOfRange)

	// A field listed without files loads as defaults too.
	require.NoError(t, seg.LoadFieldData(context.Background(), LoadFieldDataInfo{Fields: []FieldBinlog{{FieldID: scoreField, RowCount: 3}}}))
	assert.True(t, seg.HasFieldData(scoreField))
	col, err = seg.BulkSubscript(scoreField, []int64{1})
	require.NoError(t, err)
	assert.Equal(t, int64(42), col.Int(0))
}

func TestRowCountMismatch(t *testing.T) {
	seg := newSegment(t)
	require.NoError(t, seg.LoadSegmentMeta(SegmentMeta{RowCount: 3}))

	err := seg.LoadFieldData(context.Background(), LoadFieldDataInfo{Fields: []FieldBinlog{{
		FieldID:  ageField,
		RowCount: 4,
		Data:     column.FromFixed(schema.Int32, []int32{1, 2, 3, 4}, nil),
	}}})
	require.ErrorIs(t, err, ErrRowCountMismatch)
	assert.False(t, seg.HasFieldData(ageField))

	err = seg.LoadFieldData(context.Background(), LoadFieldDataInfo{})
	require.ErrorIs(t, err, ErrMissingLoadInfo)
}

func TestFailedLoadLeavesRowCountUnset(t *testing.T) {
	tests := []struct {
		name string
		bad  FieldBinlog
	}{
		{"primary key type", FieldBinlog{FieldID: pkField, RowCount: 4, Data: column.FromFixed(schema.Float, []float32{1, 2, 3, 4}, nil)}},
		{"timestamp type", FieldBinlog{FieldID: schema.TimestampField, RowCount: 4, Data: column.FromFixed(schema.Int32, []int32{1, 2, 3, 4}, nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := newSegment(t)
			err := seg.LoadFieldData(context.Background(), LoadFieldDataInfo{Fields: []FieldBinlog{tt.bad}})
			require.Error(t, err)
			assert.Zero(t, seg.RowCount())

			require.NoError(t, seg.LoadFieldData(context.Background(), LoadFieldDataInfo{Fields: []FieldBinlog{{
				FieldID:  ageField,
				RowCount: 3,
				Data:     column.FromFixed(schema.Int32, []int32{1, 2, 3}, nil),
			}}}))
			assert.Equal(t, int64(3), seg.RowCount())
		})
	}
}

func TestBruteForceSearchMatchesExact(t *testing.T) {
	ctx := context.Background()
	mc := &BasicMetricsCollector{}
	seg := newSegment(t, WithMetrics(mc), WithExecutor(executor.Inline{}))
	r := genRows(300, 4)
	loadRows(t, seg, r)
	assert.Equal(t, IndexNone, seg.IndexState(vecField))

	asOf := r.lastTs()
	deleted := []model.PK{model.Int64PK(2), model.Int64PK(10), model.Int64PK(11)}
	require.NoError(t, seg.Delete(ctx, deleted, []model.Timestamp{asOf, asOf, asOf}))

	filter := roaring.New()
	for i := uint32(0); i < 300; i += 2 {
		filter.Add(i)
	}
	admit := filter.Clone()
	admit.Remove(2)
	admit.Remove(10)

	rng := testutil.NewRNG(40)
	queries := rng.UniformVectors(3, testDim)
	req := model.SearchRequest{FieldID: vecField, TopK: 10, Metric: distance.MetricL2}
	res, err := seg.VectorSearch(ctx, req, encodeQueries(queries...), asOf, filter)
	require.NoError(t, err)
	require.Len(t, res.Queries, 3)
	assert.Equal(t, seg.ID(), res.SegmentID)

	for i, q := range queries {
		want := testutil.ExactTopK(q, r.vecs, 10, distance.MetricL2, admit)
		requireSameHits(t, want, res.Queries[i])
	}

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.SearchCount)
	assert.Equal(t, int64(3), stats.SearchQueries)
	assert.Zero(t, stats.IndexSearches)
	assert.Equal(t, int64(4), stats.LoadCount)
	assert.Equal(t, int64(1), stats.DeleteCount)
	assert.Equal(t, int64(3), stats.DeletedKeys)
}

func TestSearchHonorsSnapshot(t *testing.T) {
	seg := newSegment(t)
	r := genRows(200, 5)
	loadRows(t, seg, r)

	// Row i is inserted at 100+i, so only offsets up to 50 exist at 150.
	rng := testutil.NewRNG(50)
	req := model.SearchRequest{FieldID: vecField, TopK: 200, Metric: distance.MetricL2}
	res, err := seg.VectorSearch(context.Background(), req, encodeQueries(rng.UniformVectors(1, testDim)...), 150, nil)
	require.NoError(t, err)
	require.Len(t, res.Queries[0], 51)
	for _, c := range res.Queries[0] {
		assert.LessOrEqual(t, c.Offset, int64(50))
	}
}

func TestSearchValidation(t *testing.T) {
	seg := newSegment(t)
	q := encodeQueries(make([]float32, testDim))

	_, err := seg.VectorSearch(context.Background(), model.SearchRequest{FieldID: vecField, TopK: 5}, q, 1, nil)
	require.ErrorIs(t, err, ErrIndexNotReady)

	loadRows(t, seg, genRows(20, 6))

	tests := []struct {
		name string
		req  model.SearchRequest
		want error
	}{
		{"zero k", model.SearchRequest{FieldID: vecField, TopK: 0}, ErrInvalidK},
		{"scalar field", model.SearchRequest{FieldID: pkField, TopK: 1}, ErrTypeMismatch},
		{"binary metric", model.SearchRequest{FieldID: vecField, TopK: 1, Metric: distance.MetricHamming}, ErrTypeMismatch},
		{"unknown field", model.SearchRequest{FieldID: 999, TopK: 1}, ErrFieldNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, seg.CheckSearch(tt.req), tt.want)
			_, err := seg.VectorSearch(context.Background(), tt.req, q, 1000, nil)
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err = seg.VectorSearch(context.Background(), model.SearchRequest{FieldID: vecField, TopK: 1}, [][]byte{{1, 2}}, 1000, nil)
	require.Error(t, err)
}

func interimConfig() config.Config {
	cfg := testConfig()
	cfg.InterimIndex = config.InterimIndex{Enabled: true, NList: 4, NProbe: 4, MinRows: 1, MaxIter: 10}
	return cfg
}

func writeFlatIndex(t *testing.T, store blobstore.Store, seg *SealedSegment, vecs [][]float32, m distance.Metric, buildID int64) {
	t.Helper()
	flatVecs := make([]float32, 0, len(vecs)*testDim)
	for _, v := range vecs {
		flatVecs = append(flatVecs, v...)
	}
	x, err := flat.New(testDim, m, flatVecs)
	require.NoError(t, err)
	frame, err := index.EncodeVector(x, schema.FloatVector, binlog.CompressionZstd)
	require.NoError(t, err)

	prefix := blobstore.IndexPathPrefix(store.RootPath(), false, buildID, 1, int64(seg.ID()), int64(vecField))
	_, err = blobstore.PutIndexData(context.Background(), store, prefix, map[string][]byte{"flat": frame}, 1)
	require.NoError(t, err)
}

func TestInterimThenPersistedIndex(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore("root")
	mc := &BasicMetricsCollector{}
	seg := newSegment(t,
		WithConfig(interimConfig()),
		WithIndexMeta(vecField, distance.MetricL2),
		WithStore(store),
		WithMetrics(mc),
	)
	r := genRows(500, 7)
	loadRows(t, seg, r)

	require.Equal(t, IndexInterimReady, seg.IndexState(vecField))
	assert.False(t, seg.HasIndex(vecField))

	rng := testutil.NewRNG(70)
	queries := rng.UniformVectors(4, testDim)
	req := model.SearchRequest{FieldID: vecField, TopK: 10, Metric: distance.MetricL2}

	check := func() {
		t.Helper()
		res, err := seg.VectorSearch(ctx, req, encodeQueries(queries...), r.lastTs(), nil)
		require.NoError(t, err)
		for i, q := range queries {
			requireSameHits(t, testutil.ExactTopK(q, r.vecs, 10, distance.MetricL2, nil), res.Queries[i])
		}
	}
	check()

	writeFlatIndex(t, store, seg, r.vecs, distance.MetricL2, 9)
	require.NoError(t, seg.LoadIndex(ctx, LoadIndexInfo{
		FieldID:      vecField,
		IndexType:    index.KindFlat,
		BuildID:      9,
		IndexVersion: 1,
		Params:       map[string]string{"metric_type": "L2"},
	}))
	require.Equal(t, IndexReady, seg.IndexState(vecField))
	assert.True(t, seg.HasIndex(vecField))
	check()

	assert.Equal(t, int64(2), mc.GetStats().IndexSearches)
}

func TestFailedIndexLoadKeepsState(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore("root")
	seg := newSegment(t,
		WithConfig(interimConfig()),
		WithIndexMeta(vecField, distance.MetricL2),
		WithStore(store),
	)
	r := genRows(100, 8)
	loadRows(t, seg, r)
	require.Equal(t, IndexInterimReady, seg.IndexState(vecField))

	writeFlatIndex(t, store, seg, r.vecs, distance.MetricIP, 3)
	err := seg.LoadIndex(ctx, LoadIndexInfo{FieldID: vecField, BuildID: 3, IndexVersion: 1, Params: map[string]string{"metric_type": "L2"}})
	require.ErrorIs(t, err, ErrTypeMismatch)
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "metric", mismatch.What)
	assert.Equal(t, IndexInterimReady, seg.IndexState(vecField))

	err = seg.LoadIndex(ctx, LoadIndexInfo{FieldID: vecField, BuildID: 4, IndexVersion: 1})
	require.ErrorIs(t, err, ErrMissingLoadInfo)

	err = seg.LoadIndex(ctx, LoadIndexInfo{FieldID: vecField})
	require.ErrorIs(t, err, ErrMissingLoadInfo)
	assert.Equal(t, IndexInterimReady, seg.IndexState(vecField))
}

func TestDefaultInterimMatchesBruteForce(t *testing.T) {
	cfg := testConfig()
	cfg.InterimIndex.Enabled = true
	cfg.InterimIndex.MinRows = 1
	require.Zero(t, cfg.InterimIndex.NProbe)

	seg := newSegment(t, WithConfig(cfg), WithIndexMeta(vecField, distance.MetricL2))
	r := genRows(600, 21)
	loadRows(t, seg, r)
	require.Equal(t, IndexInterimReady, seg.IndexState(vecField))

	queries := testutil.NewRNG(22).UniformVectors(8, testDim)
	res, err := seg.VectorSearch(context.Background(), model.SearchRequest{FieldID: vecField, TopK: 10, Metric: distance.MetricL2}, encodeQueries(queries...), r.lastTs(), nil)
	require.NoError(t, err)
	for i, q := range queries {
		requireSameHits(t, testutil.ExactTopK(q, r.vecs, 10, distance.MetricL2, nil), res.Queries[i])
	}
}

func TestNullVectorsNeverMatch(t *testing.T) {
	ctx := context.Background()
	const n = 20
	s := schema.MustNew(
		schema.Field{ID: pkField, Name: "pk", DataType: schema.Int64, IsPrimaryKey: true},
		schema.Field{ID: vecField, Name: "vec", DataType: schema.FloatVector, Dim: testDim, Nullable: true},
	)
	vecs := testutil.NewRNG(30).UniformVectors(n, testDim)
	valid := make([]bool, n)
	live := roaring.New()
	for i := range vecs {
		if i < n/2 {
			clear(vecs[i])
			continue
		}
		valid[i] = true
		live.Add(uint32(i))
	}
	data := column.FloatVectors(testDim, vecs)
	data.Valid = valid
	info := LoadFieldDataInfo{Fields: []FieldBinlog{
		{FieldID: schema.TimestampField, RowCount: n, Data: column.FromFixed(schema.Int64, testutil.Timestamps(n, 1, 0), nil)},
		{FieldID: pkField, RowCount: n, Data: column.FromFixed(schema.Int64, testutil.SequentialPKs(n, 0), nil)},
		{FieldID: vecField, RowCount: n, Data: data},
	}}

	query := make([]float32, testDim)
	want := testutil.ExactTopK(query, vecs, 3, distance.MetricL2, live)
	req := model.SearchRequest{FieldID: vecField, TopK: 3, Metric: distance.MetricL2}

	tests := []struct {
		name string
		opts []Option
	}{
		{"brute force", nil},
		{"interim", []Option{WithConfig(interimConfig()), WithIndexMeta(vecField, distance.MetricL2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, err := New(1, s, append([]Option{WithConfig(testConfig())}, tt.opts...)...)
			require.NoError(t, err)
			defer seg.Close()
			require.NoError(t, seg.LoadFieldData(ctx, info))

			res, err := seg.VectorSearch(ctx, req, encodeQueries(query), 1, nil)
			require.NoError(t, err)
			requireSameHits(t, want, res.Queries[0])

			if seg.IndexState(vecField) != IndexInterimReady {
				return
			}
			require.NoError(t, seg.DropFieldData(ctx, vecField))
			col, err := seg.GetVector(vecField, []int64{0, 15})
			require.NoError(t, err)
			assert.Equal(t, []bool{false, true}, col.Valid)
			assert.Equal(t, vecs[15], col.FloatVector(1))

			res, err = seg.VectorSearch(ctx, req, encodeQueries(query), 1, nil)
			require.NoError(t, err)
			requireSameHits(t, want, res.Queries[0])
		})
	}
}

func TestDropFieldData(t *testing.T) {
	ctx := context.Background()

	t.Run("refused without index", func(t *testing.T) {
		seg := newSegment(t)
		loadRows(t, seg, genRows(20, 9))
		require.ErrorIs(t, seg.DropFieldData(ctx, vecField), ErrDropWithoutIndex)
		assert.True(t, seg.HasFieldData(vecField))
		require.ErrorIs(t, seg.DropFieldData(ctx, schema.TimestampField), ErrSystemField)
	})

	t.Run("allowed by config", func(t *testing.T) {
		cfg := testConfig()
		cfg.AllowDropRawWithoutIndex = true
		seg := newSegment(t, WithConfig(cfg))
		loadRows(t, seg, genRows(20, 10))
		require.NoError(t, seg.DropFieldData(ctx, vecField))
		assert.False(t, seg.HasFieldData(vecField))
		assert.False(t, seg.HasRawData(vecField))

		_, err := seg.BulkSubscript(vecField, []int64{0})
		require.ErrorIs(t, err, ErrNoRawData)
		_, err = seg.VectorSearch(ctx, model.SearchRequest{FieldID: vecField, TopK: 1}, encodeQueries(make([]float32, testDim)), 1000, nil)
		require.ErrorIs(t, err, ErrIndexNotReady)
	})

	t.Run("primary key outlives its column", func(t *testing.T) {
		cfg := testConfig()
		cfg.AllowDropRawWithoutIndex = true
		seg := newSegment(t, WithConfig(cfg))
		r := genRows(20, 13)
		loadRows(t, seg, r)
		require.NoError(t, seg.DropFieldData(ctx, pkField))
		assert.False(t, seg.HasFieldData(pkField))

		col, err := seg.BulkSubscript(pkField, []int64{7, 0, 7})
		require.NoError(t, err)
		require.Equal(t, 3, col.Len)
		assert.Equal(t, r.pks[7], col.Int(0))
		assert.Equal(t, r.pks[0], col.Int(1))
		assert.Equal(t, r.pks[7], col.Int(2))

		_, err = seg.BulkSubscript(pkField, []int64{20})
		require.ErrorIs(t, err, column.ErrOffsetOutOfRange)
	})

	t.Run("index keeps serving", func(t *testing.T) {
		r := genRows(200, 11)
		seg := newSegment(t, WithConfig(interimConfig()), WithIndexMeta(vecField, distance.MetricL2))
		loadRows(t, seg, r)
		require.NoError(t, seg.DropFieldData(ctx, vecField))
		assert.False(t, seg.HasFieldData(vecField))
		assert.True(t, seg.HasRawData(vecField))

		col, err := seg.GetVector(vecField, []int64{5, 0})
		require.NoError(t, err)
		assert.Equal(t, r.vecs[5], col.FloatVector(0))
		assert.Equal(t, r.vecs[0], col.FloatVector(1))

		col, err = seg.BulkSubscript(vecField, []int64{7})
		require.NoError(t, err)
		assert.Equal(t, r.vecs[7], col.FloatVector(0))

		res, err := seg.VectorSearch(ctx, model.SearchRequest{FieldID: vecField, TopK: 1}, encodeQueries(r.vecs[9]), r.lastTs(), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(9), res.Queries[0][0].Offset)

		require.NoError(t, seg.DropIndex(ctx, vecField))
		assert.Equal(t, IndexNone, seg.IndexState(vecField))
		_, err = seg.GetVector(vecField, []int64{0})
		require.ErrorIs(t, err, ErrNoRawData)
	})

	t.Run("skip index for retrieve", func(t *testing.T) {
		r := genRows(50, 12)
		seg := newSegment(t,
			WithConfig(interimConfig()),
			WithIndexMeta(vecField, distance.MetricL2),
			WithSkipIndexForRetrieve(true),
		)
		loadRows(t, seg, r)
		require.NoError(t, seg.DropFieldData(ctx, vecField))

		_, err := seg.BulkSubscript(vecField, []int64{0})
		require.ErrorIs(t, err, ErrNoRawData)

		col, err := seg.GetVector(vecField, []int64{3})
		require.NoError(t, err)
		assert.Equal(t, r.vecs[3], col.FloatVector(0))
	})
}

func TestLoadFromStore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore("segments")
	r := genRows(250, 13)
	segID := model.SegmentID(21)

	// Every field is split into two binlogs at row 120.
	paths := make(map[schema.FieldID][]string)
	for _, fb := range r.binlogs() {
		prefix := blobstore.RawDataPathPrefix(store.RootPath(), int64(segID), int64(fb.FieldID))
		for i, part := range splitFieldData(fb.Data, 120) {
			frame, err := binlog.EncodeFieldData(part, binlog.CompressionZstd)
			require.NoError(t, err)
			name := fmt.Sprintf("%s%d", prefix, i)
			require.NoError(t, store.Write(ctx, name, frame))
			paths[fb.FieldID] = append(paths[fb.FieldID], name)
		}
	}

	delta, err := binlog.EncodeDelta(
		[]model.PK{model.Int64PK(4), model.Int64PK(200)},
		[]model.Timestamp{r.lastTs(), r.lastTs()},
		binlog.CompressionSnappy,
	)
	require.NoError(t, err)
	deltaPath := blobstore.DeltaPathPrefix(store.RootPath(), int64(segID)) + "0"
	require.NoError(t, store.Write(ctx, deltaPath, delta))

	cfg := testConfig()
	cfg.Load.FileSliceSize = 1
	seg, err := New(segID, testSchema(t), WithConfig(cfg), WithStore(store))
	require.NoError(t, err)
	defer seg.Close()

	var info LoadFieldDataInfo
	for _, id := range []schema.FieldID{schema.RowIDField, schema.TimestampField, pkField, vecField} {
		info.Fields = append(info.Fields, FieldBinlog{FieldID: id, RowCount: 250, Paths: paths[id]})
	}
	require.NoError(t, seg.LoadFieldData(ctx, info))
	require.NoError(t, seg.LoadDeletedRecord(ctx, LoadDeletedRecordInfo{
		PrimaryKeys: []model.PK{model.Int64PK(7)},
		Timestamps:  []model.Timestamp{r.lastTs()},
		Paths:       []string{deltaPath},
		RowCount:    3,
	}))

	assert.Equal(t, int64(250), seg.RowCount())
	col, err := seg.GetVector(vecField, []int64{130})
	require.NoError(t, err)
	assert.Equal(t, r.vecs[130], col.FloatVector(0))

	for _, pk := range []int64{4, 7, 200} {
		assert.True(t, seg.IsDeleted(model.Int64PK(pk), r.lastTs()))
	}
	visible, err := seg.VisibleRows(r.lastTs())
	require.NoError(t, err)
	assert.Equal(t, uint64(247), visible.GetCardinality())

	ids, err := seg.BulkSubscriptSystem(schema.RowIDField, []int64{0, 249})
	require.NoError(t, err)
	assert.Equal(t, []int64{1000, 1249}, ids)
	tss, err := seg.BulkSubscriptSystem(schema.TimestampField, []int64{3})
	require.NoError(t, err)
	assert.Equal(t, []int64{103}, tss)

	col, err = seg.BulkSubscript(schema.TimestampField, []int64{3})
	require.NoError(t, err)
	assert.Equal(t, int64(103), col.Int(0))

	err = seg.LoadDeletedRecord(ctx, LoadDeletedRecordInfo{Paths: []string{deltaPath}, RowCount: 5})
	require.ErrorIs(t, err, ErrRowCountMismatch)
}

func splitFieldData(d *FieldData, at int) []*FieldData {
	stride := d.RowSize()
	head := &FieldData{Type: d.Type, Dim: d.Dim, Rows: at, Fixed: d.Fixed[:at*stride]}
	tail := &FieldData{Type: d.Type, Dim: d.Dim, Rows: d.Rows - at, Fixed: d.Fixed[at*stride:]}
	return []*FieldData{head, tail}
}

func TestLoadWithoutStore(t *testing.T) {
	seg := newSegment(t)
	err := seg.LoadFieldData(context.Background(), LoadFieldDataInfo{Fields: []FieldBinlog{{FieldID: vecField, RowCount: 3, Paths: []string{"x"}}}})
	require.ErrorIs(t, err, ErrMissingLoadInfo)
	err = seg.LoadIndex(context.Background(), LoadIndexInfo{FieldID: vecField, Paths: []string{"x"}})
	require.ErrorIs(t, err, ErrMissingLoadInfo)
}

func TestBulkSubscriptDynamic(t *testing.T) {
	seg := newSegment(t)
	docs := [][]byte{
		[]byte(`{"a":1,"b":"x"}`),
		[]byte(`{"b":2}`),
	}
	require.NoError(t, seg.LoadFieldData(context.Background(), LoadFieldDataInfo{Fields: []FieldBinlog{{
		FieldID:  docField,
		RowCount: 2,
		Data:     column.Blobs(schema.JSON, docs, nil),
	}}}))

	col, err := seg.BulkSubscriptDynamic(docField, []int64{0, 1}, []string{"a", "zz"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(col.Row(0)))
	assert.JSONEq(t, `{}`, string(col.Row(1)))

	col, err = seg.BulkSubscriptDynamic(docField, []int64{1}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2}`, string(col.Row(0)))

	_, err = seg.BulkSubscriptDynamic(ageField, []int64{0}, nil)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestFindFirst(t *testing.T) {
	seg := newSegment(t, WithSortedByPK(true))
	r := genRows(20, 14)
	loadRows(t, seg, r)
	require.NoError(t, seg.Delete(context.Background(), []model.PK{model.Int64PK(0)}, []model.Timestamp{r.lastTs()}))

	offs, more, err := seg.FindFirst(3, r.lastTs(), nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, offs)
	assert.True(t, more)

	filter := roaring.BitmapOf(5, 19)
	offs, more, err = seg.FindFirst(3, r.lastTs(), filter)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 19}, offs)
	assert.False(t, more)
}

func TestRowIndexRequired(t *testing.T) {
	seg := newSegment(t)
	_, err := seg.SearchPK(model.Int64PK(1), 1)
	require.ErrorIs(t, err, ErrRowIndexNotReady)
	_, err = seg.VisibleRows(1)
	require.ErrorIs(t, err, ErrRowIndexNotReady)
	require.ErrorIs(t, seg.Mask(roaring.New(), 0, 1), ErrRowIndexNotReady)
}

func TestMask(t *testing.T) {
	seg := newSegment(t)
	r := genRows(10, 15)
	loadRows(t, seg, r)
	require.NoError(t, seg.Delete(context.Background(), []model.PK{model.Int64PK(1), model.Int64PK(8)}, []model.Timestamp{105, 105}))

	bm := roaring.New()
	bm.AddRange(0, 10)
	require.NoError(t, seg.Mask(bm, 5, 106))
	// Row 8 is past the barrier; rows after 106 are not yet inserted.
	assert.Equal(t, []uint32{0, 2, 3, 4, 5, 6}, bm.ToArray())
}

func TestMmapWarmup(t *testing.T) {
	cfg := testConfig()
	cfg.Mmap = config.Mmap{Enabled: true, Dir: t.TempDir()}
	seg, err := New(1, testSchema(t), WithConfig(cfg))
	require.NoError(t, err)
	defer seg.Close()

	r := genRows(300, 16)
	loadRows(t, seg, r)
	assert.Positive(t, seg.MappedBytes())
	require.NoError(t, seg.Warmup(vecField))

	col, err := seg.GetVector(vecField, []int64{299})
	require.NoError(t, err)
	assert.Equal(t, r.vecs[299], col.FloatVector(0))
}

func TestClearAndClose(t *testing.T) {
	rc := NewResourceController(config.Resource{}, 1)
	seg, err := New(1, testSchema(t), WithConfig(testConfig()), WithResourceController(rc))
	require.NoError(t, err)

	loadRows(t, seg, genRows(100, 17))
	used := seg.MemoryUsage()
	assert.Positive(t, used)
	assert.Positive(t, rc.MemoryUsage())
	assert.Contains(t, seg.String(), "rows=100")
	assert.Equal(t, seg.String(), seg.Debug())

	require.NoError(t, seg.ClearData())
	assert.Zero(t, seg.RowCount())
	assert.False(t, seg.HasFieldData(vecField))
	assert.False(t, seg.HasFieldData(schema.TimestampField))
	assert.Less(t, seg.MemoryUsage(), used)
	assert.Zero(t, rc.MemoryUsage())

	// A cleared segment accepts a different row count.
	loadRows(t, seg, genRows(10, 18))
	assert.Equal(t, int64(10), seg.RowCount())

	require.NoError(t, seg.Close())
	require.NoError(t, seg.Close())
	err = seg.LoadFieldData(context.Background(), LoadFieldDataInfo{Fields: genRows(10, 19).binlogs()})
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, seg.Delete(context.Background(), nil, nil), ErrClosed)
}

func TestMemoryLimit(t *testing.T) {
	rc := NewResourceController(config.Resource{MemoryLimitBytes: 64}, 1)
	seg, err := New(1, testSchema(t), WithConfig(testConfig()), WithResourceController(rc))
	require.NoError(t, err)
	defer seg.Close()

	err = seg.LoadFieldData(context.Background(), LoadFieldDataInfo{Fields: []FieldBinlog{{
		FieldID:  vecField,
		RowCount: 10,
		Data:     column.FloatVectors(testDim, testutil.NewRNG(1).UniformVectors(10, testDim)),
	}}})
	require.Error(t, err)
	assert.False(t, seg.HasFieldData(vecField))
}

func TestConcurrentSearchAndDelete(t *testing.T) {
	ctx := context.Background()
	seg := newSegment(t)
	r := genRows(400, 20)
	loadRows(t, seg, r)
	asOf := r.lastTs() + 1000

	var mu sync.Mutex
	var deleted []int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for i := int64(0); i < 400; i += 4 {
			if err := seg.Delete(gctx, []model.PK{model.Int64PK(i)}, []model.Timestamp{r.lastTs()}); err != nil {
				return err
			}
			mu.Lock()
			deleted = append(deleted, i)
			mu.Unlock()
		}
		return nil
	})
	for w := 0; w < 4; w++ {
		g.Go(func() error {
			rng := testutil.NewRNG(int64(100 + w))
			req := model.SearchRequest{FieldID: vecField, TopK: 5, Metric: distance.MetricL2}
			for i := 0; i < 25; i++ {
				if _, err := seg.VectorSearch(gctx, req, encodeQueries(rng.UniformVectors(1, testDim)...), asOf, nil); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Len(t, deleted, 100)
	visible, err := seg.VisibleRows(asOf)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), visible.GetCardinality())
	for _, pk := range deleted {
		assert.False(t, visible.Contains(uint32(pk)))
	}
}
