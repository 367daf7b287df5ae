package segcore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/hupe1980/segcore/blobstore"
	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/internal/column"
	"github.com/hupe1980/segcore/internal/index"
	"github.com/hupe1980/segcore/internal/rowindex"
	"github.com/hupe1980/segcore/model"
	"github.com/hupe1980/segcore/schema"
)

// LoadFieldData loads every field of info. Fields are loaded one after the
// other; files of one field are fetched in parallel. A failed field keeps
// its prior state and stops the request.
func (s *SealedSegment) LoadFieldData(ctx context.Context, info LoadFieldDataInfo) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(info.Fields) == 0 {
		return fmt.Errorf("%w: no fields", ErrMissingLoadInfo)
	}
	for _, fb := range info.Fields {
		if err := s.loadField(ctx, fb); err != nil {
			return err
		}
	}
	return nil
}

func (s *SealedSegment) loadField(ctx context.Context, fb FieldBinlog) (err error) {
	start := time.Now()
	var bytes int64
	defer func() {
		took := time.Since(start)
		s.metrics.RecordLoad("field", bytes, took, err)
		s.logger.LogLoad(ctx, "field", fb.FieldID, fb.RowCount, took, err)
	}()

	field, err := s.field(fb.FieldID)
	if err != nil {
		return err
	}
	rows := fb.RowCount
	if rows <= 0 && fb.Data != nil {
		rows = int64(fb.Data.Rows)
	}
	if rows <= 0 {
		return fmt.Errorf("%w: row count of field %d", ErrMissingLoadInfo, field.ID)
	}
	// The count is only recorded once the field is installed, so a failed
	// load leaves the segment open to a different count.
	if err := s.checkRowCount(rows); err != nil {
		return err
	}

	var data *FieldData
	if fb.Encoded() {
		if len(fb.Paths) > 0 && s.opts.store == nil {
			return fmt.Errorf("%w: no store to read field %d from", ErrMissingLoadInfo, field.ID)
		}
		data, err = s.loader.FieldData(ctx, field, fb.Paths, rows)
	} else {
		data, err = column.FillMissing(field, fb.Data, int(rows))
	}
	if err != nil {
		return fmt.Errorf("load field %d: %w", field.ID, err)
	}
	bytes = data.MemSize()

	switch {
	case field.ID == schema.RowIDField || field.ID == schema.TimestampField:
		err = s.loadSystem(field, data)
	case field.IsPrimaryKey:
		err = s.loadPrimaryKey(field, data)
	default:
		err = s.loadColumn(field, data)
	}
	if err != nil {
		return err
	}
	if err := s.setRowCount(rows); err != nil {
		return err
	}
	if !field.IsPrimaryKey && field.ID != schema.RowIDField && field.ID != schema.TimestampField {
		s.buildInterim(ctx, field)
	}
	return nil
}

// loadColumn charges memory and publishes the column.
func (s *SealedSegment) loadColumn(field schema.Field, data *FieldData) error {
	bytes := data.MemSize()
	if err := s.rc.AcquireMemory(bytes); err != nil {
		return fmt.Errorf("load field %d: %w", field.ID, err)
	}
	col, err := s.store.Load(field, data)
	if err != nil {
		s.rc.ReleaseMemory(bytes)
		return fmt.Errorf("load field %d: %w", field.ID, err)
	}
	if col.Mapped() {
		s.rc.ReleaseMemory(bytes)
	} else {
		s.charge(s.fieldCharge, field.ID, bytes)
	}

	s.setVectorNulls(field, data)

	s.mu.Lock()
	delete(s.droppedField, field.ID)
	s.mu.Unlock()
	return nil
}

func (s *SealedSegment) loadSystem(field schema.Field, data *FieldData) error {
	if data.Type != schema.Int64 {
		return fmt.Errorf("%w: system field %d must be %s, got %s", column.ErrInvalidData, field.ID, schema.Int64, data.Type)
	}
	vals := make([]int64, data.Rows)
	for i := range vals {
		vals[i] = schema.DecodeFixed(schema.Int64, data.Row(i)).Int
	}

	s.sysMu.Lock()
	defer s.sysMu.Unlock()

	next := s.sys
	if field.ID == schema.RowIDField {
		if next.rowIDs != nil {
			return fmt.Errorf("%w: field %d", column.ErrAlreadyLoaded, field.ID)
		}
		next.rowIDs = vals
	} else {
		if next.tss != nil {
			return fmt.Errorf("%w: field %d", column.ErrAlreadyLoaded, field.ID)
		}
		tss := make([]model.Timestamp, len(vals))
		for i, v := range vals {
			tss[i] = model.Timestamp(v)
		}
		next.tss = tss
	}
	return s.commitSystemLocked(next, nil)
}

func (s *SealedSegment) loadPrimaryKey(field schema.Field, data *FieldData) error {
	pks, err := primaryKeys(field, data)
	if err != nil {
		return err
	}

	s.sysMu.Lock()
	defer s.sysMu.Unlock()

	next := s.sys
	next.pks = pks
	return s.commitSystemLocked(next, func() error { return s.loadColumn(field, data) })
}

// commitSystemLocked builds the row index for next when it is complete, runs
// install, then publishes. Nothing is published when either step fails.
func (s *SealedSegment) commitSystemLocked(next systemColumns, install func() error) error {
	var ri *rowindex.Index
	if next.tss != nil && next.pks != nil {
		var err error
		ri, err = rowindex.New(next.pks, next.tss, next.rowIDs, s.opts.sortedByPK)
		if err != nil {
			return fmt.Errorf("build row index: %w", err)
		}
	}
	if install != nil {
		if err := install(); err != nil {
			return err
		}
	}
	s.sys = next
	if ri != nil {
		s.rows.Store(ri)
		s.deletes.Load().Bind(ri)
	}
	return nil
}

func primaryKeys(field schema.Field, data *FieldData) ([]model.PK, error) {
	pks := make([]model.PK, data.Rows)
	switch {
	case data.Type == schema.Int64:
		for i := range pks {
			pks[i] = model.Int64PK(schema.DecodeFixed(schema.Int64, data.Row(i)).Int)
		}
	case data.Type.IsString():
		for i := range pks {
			pks[i] = model.VarCharPK(string(data.Row(i)))
		}
	default:
		return nil, &TypeMismatchError{Field: field.ID, What: "primary key", Want: "Int64 or VarChar", Got: data.Type.String()}
	}
	return pks, nil
}

// buildInterim synthesizes an IVF_FLAT index from freshly loaded raw vectors
// when the field has index meta and no index yet. Failures only log.
func (s *SealedSegment) buildInterim(ctx context.Context, field schema.Field) {
	cfg := s.opts.cfg.InterimIndex
	m, ok := s.opts.indexMeta[field.ID]
	if !cfg.Enabled || !ok || !index.Indexable(field.DataType) || s.indexes.State(field.ID) != index.NoIndex {
		return
	}
	col, err := s.store.Pin(field.ID)
	if err != nil {
		return
	}
	defer col.Unpin()

	x, err := index.BuildInterim(ctx, col, m, index.InterimConfig{
		NList:   cfg.NList,
		NProbe:  cfg.NProbe,
		MinRows: cfg.MinRows,
		MaxIter: cfg.MaxIter,
		Seed:    uint64(s.id),
	})
	if err != nil {
		if !errors.Is(err, index.ErrTooFewRows) {
			s.logger.WarnContext(ctx, "interim index build failed", "field", int64(field.ID), "error", err)
		}
		return
	}
	if err := s.indexes.InstallInterim(field.ID, x); err != nil {
		s.logger.DebugContext(ctx, "interim index skipped", "field", int64(field.ID), "reason", err)
		return
	}
	s.logger.InfoContext(ctx, "interim index ready", "field", int64(field.ID), "kind", x.Kind(), "rows", x.Rows())
}

// LoadIndex fetches and installs the persisted index of one field. Vector
// fields take vector indexes, scalar fields take scalar indexes. The field
// keeps its prior index state when the load fails.
func (s *SealedSegment) LoadIndex(ctx context.Context, info LoadIndexInfo) (err error) {
	if err := s.checkOpen(); err != nil {
		return err
	}
	start := time.Now()
	var bytes int64
	var rows int64
	defer func() {
		took := time.Since(start)
		s.metrics.RecordLoad("index", bytes, took, err)
		s.logger.LogLoad(ctx, "index", info.FieldID, rows, took, err)
	}()

	field, err := s.field(info.FieldID)
	if err != nil {
		return err
	}
	if s.opts.store == nil {
		return fmt.Errorf("%w: no store to read index of field %d from", ErrMissingLoadInfo, field.ID)
	}

	paths := info.Paths
	if len(paths) == 0 {
		if info.BuildID == 0 {
			return fmt.Errorf("%w: index paths or build id of field %d", ErrMissingLoadInfo, field.ID)
		}
		prefix := blobstore.IndexPathPrefix(s.opts.store.RootPath(), false, info.BuildID, info.IndexVersion, int64(s.id), int64(field.ID))
		if paths, err = s.loader.List(ctx, prefix); err != nil {
			return fmt.Errorf("list index files: %w", err)
		}
		if len(paths) == 0 {
			return fmt.Errorf("%w: no index files under %s", ErrMissingLoadInfo, prefix)
		}
	}

	var metric distance.Metric
	if index.Indexable(field.DataType) {
		if metric, err = s.indexMetric(field.ID, info.Params); err != nil {
			return err
		}
	}

	frame, err := s.loader.Index(ctx, paths)
	if err != nil {
		return fmt.Errorf("load index of field %d: %w", field.ID, err)
	}
	bytes = int64(len(frame))
	if err := s.rc.AcquireMemory(bytes); err != nil {
		return fmt.Errorf("load index of field %d: %w", field.ID, err)
	}

	if index.Indexable(field.DataType) {
		var x index.VectorIndex
		if x, err = s.indexes.LoadVector(field, metric, frame); err == nil {
			rows = x.Rows()
		}
	} else {
		var x index.ScalarIndex
		if x, err = s.indexes.LoadScalar(field, frame); err == nil {
			rows = x.Rows()
		}
	}
	if err != nil {
		s.rc.ReleaseMemory(bytes)
		return fmt.Errorf("load index of field %d: %w", field.ID, err)
	}

	s.release(s.indexCharge, field.ID)
	s.charge(s.indexCharge, field.ID, bytes)
	if info.IndexType != "" {
		s.logger.DebugContext(ctx, "index installed", "field", int64(field.ID), "type", info.IndexType, "build", info.BuildID)
	}
	return nil
}

func (s *SealedSegment) indexMetric(id schema.FieldID, params map[string]string) (distance.Metric, error) {
	if v := params["metric_type"]; v != "" {
		m, err := distance.ParseMetric(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrMissingLoadInfo, err)
		}
		return m, nil
	}
	if m, ok := s.opts.indexMeta[id]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("%w: metric_type of field %d", ErrMissingLoadInfo, id)
}

// LoadDeletedRecord appends tombstones from the batch and from delta logs.
func (s *SealedSegment) LoadDeletedRecord(ctx context.Context, info LoadDeletedRecordInfo) (err error) {
	if err := s.checkOpen(); err != nil {
		return err
	}
	start := time.Now()
	pks, tss := info.PrimaryKeys, info.Timestamps
	defer func() {
		s.metrics.RecordLoad("delta", int64(len(pks)), time.Since(start), err)
		s.logger.LogLoad(ctx, "delta", -1, int64(len(pks)), time.Since(start), err)
	}()

	if len(pks) != len(tss) {
		return fmt.Errorf("%w: %d keys, %d timestamps", ErrMissingLoadInfo, len(pks), len(tss))
	}
	if len(info.Paths) > 0 {
		if s.opts.store == nil {
			return fmt.Errorf("%w: no store to read delta logs from", ErrMissingLoadInfo)
		}
		dp, dt, err := s.loader.Deltas(ctx, info.Paths)
		if err != nil {
			return fmt.Errorf("load delta logs: %w", err)
		}
		pks = append(slices.Clip(pks), dp...)
		tss = append(slices.Clip(tss), dt...)
	}
	if info.RowCount > 0 && int64(len(pks)) != info.RowCount {
		return fmt.Errorf("%w: expected %d tombstones, got %d", ErrRowCountMismatch, info.RowCount, len(pks))
	}
	return s.appendTombstones(pks, tss)
}

func (s *SealedSegment) appendTombstones(pks []model.PK, tss []model.Timestamp) error {
	if len(pks) != len(tss) {
		return fmt.Errorf("%w: %d keys, %d timestamps", ErrMissingLoadInfo, len(pks), len(tss))
	}
	if len(pks) == 0 {
		return nil
	}
	log := s.deletes.Load()
	start := log.Reserve(len(pks))
	return log.Write(start, pks, tss)
}

// LoadSegmentMeta applies segment level statistics.
func (s *SealedSegment) LoadSegmentMeta(meta SegmentMeta) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if meta.RowCount <= 0 {
		return fmt.Errorf("%w: row count", ErrMissingLoadInfo)
	}
	return s.setRowCount(meta.RowCount)
}
