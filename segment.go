package segcore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/segcore/config"
	"github.com/hupe1980/segcore/internal/column"
	"github.com/hupe1980/segcore/internal/deletelog"
	"github.com/hupe1980/segcore/internal/executor"
	"github.com/hupe1980/segcore/internal/index"
	"github.com/hupe1980/segcore/internal/loader"
	"github.com/hupe1980/segcore/internal/rowindex"
	"github.com/hupe1980/segcore/model"
	"github.com/hupe1980/segcore/schema"
)

// IndexState is the index lifecycle state of a field.
type IndexState = index.State

const (
	IndexNone         = index.NoIndex
	IndexLoading      = index.Loading
	IndexInterimReady = index.InterimReady
	IndexReady        = index.Ready
)

// SealedSegment is an immutable, chunked columnar segment. Fields, indexes
// and tombstones are loaded independently and in any order; reads may run
// concurrently with loads.
//
// Drops must not race reads of the same field that still hold views returned
// by BulkSubscript.
type SealedSegment struct {
	id     model.SegmentID
	schema *schema.Schema
	opts   options

	store   *column.Store
	indexes *index.Registry
	loader  *loader.Loader
	exec    Executor
	ownExec *executor.Pool
	rc      *ResourceController
	logger  *Logger
	metrics MetricsCollector

	deletes  atomic.Pointer[deletelog.Log]
	rows     atomic.Pointer[rowindex.Index]
	rowCount atomic.Int64
	closed   atomic.Bool

	// mu guards the accounting maps. It is never held across I/O or decode.
	mu           sync.Mutex
	fieldCharge  map[schema.FieldID]int64
	indexCharge  map[schema.FieldID]int64
	droppedField map[schema.FieldID]struct{}
	// vectorNulls holds the null rows of nullable vector fields. It outlives
	// a raw data drop so indexes never surface null rows.
	vectorNulls map[schema.FieldID]*roaring.Bitmap

	// sysMu serializes assembly of the row index from system and pk columns.
	sysMu sync.Mutex
	sys   systemColumns
}

type systemColumns struct {
	rowIDs []int64
	tss    []model.Timestamp
	pks    []model.PK
}

// New creates an empty segment over schema s.
func New(id model.SegmentID, s *schema.Schema, optFns ...Option) (*SealedSegment, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: schema", ErrMissingLoadInfo)
	}

	o := options{
		cfg:              config.Default(),
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	seg := &SealedSegment{
		id:           id,
		schema:       s,
		opts:         o,
		exec:         o.exec,
		rc:           o.rc,
		logger:       o.logger.WithSegment(id),
		metrics:      o.metricsCollector,
		indexes:      index.NewRegistry(),
		fieldCharge:  make(map[schema.FieldID]int64),
		indexCharge:  make(map[schema.FieldID]int64),
		droppedField: make(map[schema.FieldID]struct{}),
		vectorNulls:  make(map[schema.FieldID]*roaring.Bitmap),
	}

	if seg.exec == nil {
		pool, err := executor.NewPool(o.cfg.Load.Workers, seg.logger.Logger)
		if err != nil {
			return nil, err
		}
		seg.exec = pool
		seg.ownExec = pool
	}
	if seg.rc == nil {
		seg.rc = NewResourceController(o.cfg.Resource, o.cfg.Load.Workers)
	}

	mmapDir := o.cfg.Mmap.Dir
	if mmapDir == "" {
		mmapDir = filepath.Join(os.TempDir(), "segcore")
	}
	seg.store = column.NewStore(column.Options{
		SegmentID: int64(id),
		ChunkRows: o.cfg.ChunkRows,
		Mmap: column.MmapPolicy{
			Enabled:  o.cfg.Mmap.Enabled,
			Dir:      mmapDir,
			MinBytes: o.cfg.Mmap.MinBytes,
		},
	})
	seg.loader = loader.New(o.store, seg.exec, seg.rc, loader.Config{
		FieldMaxMemoryLimit: o.cfg.Load.FieldMaxMemoryLimit,
		FileSliceSize:       o.cfg.Load.FileSliceSize,
	})
	seg.deletes.Store(deletelog.New())
	return seg, nil
}

// ID returns the segment id.
func (s *SealedSegment) ID() model.SegmentID { return s.id }

// Schema returns the segment schema.
func (s *SealedSegment) Schema() *schema.Schema { return s.schema }

func (s *SealedSegment) field(id schema.FieldID) (schema.Field, error) {
	f, ok := s.schema.Field(id)
	if !ok {
		return schema.Field{}, fmt.Errorf("%w: %d", ErrFieldNotFound, id)
	}
	return f, nil
}

// RowCount returns the number of rows, or 0 before any row count is known.
func (s *SealedSegment) RowCount() int64 {
	if ri := s.rows.Load(); ri != nil {
		return ri.Rows()
	}
	return s.rowCount.Load()
}

// checkRowCount reports whether n agrees with the recorded row count
// without recording it.
func (s *SealedSegment) checkRowCount(n int64) error {
	if cur := s.rowCount.Load(); cur != 0 && cur != n {
		return fmt.Errorf("%w: segment has %d rows, got %d", ErrRowCountMismatch, cur, n)
	}
	return nil
}

// setRowCount fixes the segment row count on first use and rejects any
// later disagreement.
func (s *SealedSegment) setRowCount(n int64) error {
	if s.rowCount.CompareAndSwap(0, n) {
		return nil
	}
	if cur := s.rowCount.Load(); cur != n {
		return fmt.Errorf("%w: segment has %d rows, got %d", ErrRowCountMismatch, cur, n)
	}
	return nil
}

// HasFieldData reports whether raw data of a field is loaded.
func (s *SealedSegment) HasFieldData(id schema.FieldID) bool {
	switch id {
	case schema.RowIDField, schema.TimestampField:
		s.sysMu.Lock()
		defer s.sysMu.Unlock()
		if id == schema.RowIDField {
			return s.sys.rowIDs != nil
		}
		return s.sys.tss != nil
	}
	return s.store.State(id) == column.Loaded
}

// HasIndex reports whether a persisted index of a field is ready.
func (s *SealedSegment) HasIndex(id schema.FieldID) bool {
	return s.indexes.HasIndex(id)
}

// IndexState returns the index lifecycle state of a field.
func (s *SealedSegment) IndexState(id schema.FieldID) IndexState {
	return s.indexes.State(id)
}

// HasRawData reports whether rows of a field can be read, either from loaded
// data or from an index that keeps raw values.
func (s *SealedSegment) HasRawData(id schema.FieldID) bool {
	return s.HasFieldData(id) || s.indexes.HasRawData(id)
}

// IsNullable reports whether a field accepts nulls.
func (s *SealedSegment) IsNullable(id schema.FieldID) (bool, error) {
	f, err := s.field(id)
	if err != nil {
		return false, err
	}
	return f.Nullable, nil
}

// FieldDataType returns the declared type of a field.
func (s *SealedSegment) FieldDataType(id schema.FieldID) (schema.DataType, error) {
	f, err := s.field(id)
	if err != nil {
		return 0, err
	}
	return f.DataType, nil
}

// ChunkCount returns the number of chunks of a loaded field.
func (s *SealedSegment) ChunkCount(id schema.FieldID) (int, error) {
	col, err := s.store.Pin(id)
	if err != nil {
		return 0, err
	}
	defer col.Unpin()
	return col.ChunkCount(), nil
}

// ChunkRowCount returns the number of rows in one chunk of a loaded field.
func (s *SealedSegment) ChunkRowCount(id schema.FieldID, chunk int) (int, error) {
	col, err := s.store.Pin(id)
	if err != nil {
		return 0, err
	}
	defer col.Unpin()
	return col.ChunkRows(chunk)
}

// Locate translates a segment offset to a chunk and an offset within it.
func (s *SealedSegment) Locate(id schema.FieldID, offset int64) (chunk, local int, err error) {
	col, err := s.store.Pin(id)
	if err != nil {
		return 0, 0, err
	}
	defer col.Unpin()
	return col.Locate(offset)
}

// RowsUntilChunk returns the segment offset of the first row of a chunk.
func (s *SealedSegment) RowsUntilChunk(id schema.FieldID, chunk int) (int64, error) {
	col, err := s.store.Pin(id)
	if err != nil {
		return 0, err
	}
	defer col.Unpin()
	return col.RowsUntilChunk(chunk)
}

// MemoryUsage returns the resident bytes held by field data, indexes, the
// row index and the deletion log. Mapped chunks are reported by MappedBytes.
func (s *SealedSegment) MemoryUsage() int64 {
	n := s.store.HeapBytes() + s.indexes.MemSize() + s.deletes.Load().MemSize()
	if ri := s.rows.Load(); ri != nil {
		n += ri.MemSize()
	}
	return n
}

// MappedBytes returns the bytes of file-mapped chunks.
func (s *SealedSegment) MappedBytes() int64 { return s.store.MappedBytes() }

// String summarizes the segment state.
func (s *SealedSegment) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SealedSegment{id=%d rows=%d", s.id, s.RowCount())
	fmt.Fprintf(&b, " fields=%v indexes=[", s.store.Fields())
	for i, id := range s.indexes.Fields() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d:%s", id, s.indexes.State(id))
	}
	fmt.Fprintf(&b, "] tombstones=%d heap=%d mapped=%d}",
		s.deletes.Load().Len(), s.store.HeapBytes(), s.store.MappedBytes())
	return b.String()
}

// Debug is an alias of String kept for diagnostics tooling.
func (s *SealedSegment) Debug() string { return s.String() }

func (s *SealedSegment) checkOpen() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (s *SealedSegment) charge(m map[schema.FieldID]int64, id schema.FieldID, bytes int64) {
	s.mu.Lock()
	m[id] += bytes
	s.mu.Unlock()
}

func (s *SealedSegment) release(m map[schema.FieldID]int64, id schema.FieldID) {
	s.mu.Lock()
	bytes := m[id]
	delete(m, id)
	s.mu.Unlock()
	if bytes > 0 {
		s.rc.ReleaseMemory(bytes)
	}
}

// setVectorNulls records the null rows of a loaded vector field.
func (s *SealedSegment) setVectorNulls(field schema.Field, data *FieldData) {
	if !field.DataType.IsVector() {
		return
	}
	var nulls *roaring.Bitmap
	if field.Nullable && data.Valid != nil {
		nulls = roaring.New()
		for i, ok := range data.Valid {
			if !ok {
				nulls.Add(uint32(i))
			}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if nulls == nil || nulls.IsEmpty() {
		delete(s.vectorNulls, field.ID)
		return
	}
	s.vectorNulls[field.ID] = nulls
}

// nullVectors returns the null rows of a vector field, or nil.
func (s *SealedSegment) nullVectors(id schema.FieldID) *roaring.Bitmap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vectorNulls[id]
}

func (s *SealedSegment) wasDropped(id schema.FieldID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.droppedField[id]
	return ok
}

// isMissingData reports whether err means a field holds no loaded data.
func isMissingData(err error) bool {
	return errors.Is(err, column.ErrNotLoaded)
}
