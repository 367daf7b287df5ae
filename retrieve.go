package segcore

import (
	"context"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/segcore/codec"
	"github.com/hupe1980/segcore/internal/column"
	"github.com/hupe1980/segcore/internal/f16"
	"github.com/hupe1980/segcore/internal/index"
	"github.com/hupe1980/segcore/internal/mmap"
	"github.com/hupe1980/segcore/internal/rowindex"
	"github.com/hupe1980/segcore/model"
	"github.com/hupe1980/segcore/schema"
)

// BulkSubscript returns the values of a field at offsets, in offset order.
// Offsets may repeat and need not be sorted. Nullable fields always carry a
// validity vector. A field that was never loaded yields its default value,
// or nulls, for every offset.
func (s *SealedSegment) BulkSubscript(id schema.FieldID, offsets []int64) (*Column, error) {
	start := time.Now()
	col, err := s.bulkSubscript(id, offsets)
	s.metrics.RecordRetrieve(len(offsets), time.Since(start), err)
	return col, err
}

func (s *SealedSegment) bulkSubscript(id schema.FieldID, offsets []int64) (*Column, error) {
	field, err := s.field(id)
	if err != nil {
		return nil, err
	}
	if id.IsSystem() {
		vals, err := s.BulkSubscriptSystem(id, offsets)
		if err != nil {
			return nil, err
		}
		return column.FromFieldData(column.FromFixed(schema.Int64, vals, nil), false), nil
	}

	out, err := s.gatherRaw(id, offsets)
	if err == nil || !isMissingData(err) {
		return out, err
	}
	if !s.opts.skipIndexForRetrieve {
		if out, ok, err := s.gatherIndex(field, offsets); ok {
			return out, err
		}
	}
	if field.IsPrimaryKey {
		if out, ok, err := s.gatherPrimaryKeys(field, offsets); ok {
			return out, err
		}
	}
	if s.wasDropped(id) || s.indexes.State(id) != index.NoIndex {
		return nil, fmt.Errorf("%w: field %d", ErrNoRawData, id)
	}
	return s.defaults(field, offsets)
}

func (s *SealedSegment) gatherRaw(id schema.FieldID, offsets []int64) (*Column, error) {
	col, err := s.store.Pin(id)
	if err != nil {
		return nil, err
	}
	defer col.Unpin()
	return col.Gather(offsets)
}

// gatherIndex reads rows back from an index that keeps raw values. It
// reports false when no such index is installed.
func (s *SealedSegment) gatherIndex(field schema.Field, offsets []int64) (*Column, bool, error) {
	if index.Indexable(field.DataType) {
		x, _ := s.indexes.Vector(field.ID)
		if x == nil || !x.HasRawData() {
			return nil, false, nil
		}
		nulls := s.nullVectors(field.ID)
		rows := make([][]byte, len(offsets))
		var valid []bool
		if field.Nullable {
			valid = make([]bool, len(offsets))
		}
		for i, off := range offsets {
			if off < 0 || off >= x.Rows() {
				return nil, true, fmt.Errorf("%w: %d of %d", column.ErrOffsetOutOfRange, off, x.Rows())
			}
			rows[i] = encodeVector(field.DataType, x.Vector(off))
			if valid != nil {
				valid[i] = nulls == nil || !nulls.Contains(uint32(off))
			}
		}
		data := column.Vectors(field.DataType, field.Dim, rows)
		data.Valid = valid
		return column.FromFieldData(data, field.Nullable), true, nil
	}

	x, ok := s.indexes.Scalar(field.ID)
	if !ok || !x.HasRawData() {
		return nil, false, nil
	}
	vals := make([]schema.Value, len(offsets))
	valid := make([]bool, len(offsets))
	for i, off := range offsets {
		if off < 0 || off >= x.Rows() {
			return nil, true, fmt.Errorf("%w: %d of %d", column.ErrOffsetOutOfRange, off, x.Rows())
		}
		vals[i], valid[i] = x.Reverse(off)
	}
	return column.FromValues(field, vals, valid), true, nil
}

// gatherPrimaryKeys serves the primary key from the keys kept for the row
// index, which outlive the raw column.
func (s *SealedSegment) gatherPrimaryKeys(field schema.Field, offsets []int64) (*Column, bool, error) {
	s.sysMu.Lock()
	pks := s.sys.pks
	s.sysMu.Unlock()
	if pks == nil {
		return nil, false, nil
	}

	for _, off := range offsets {
		if off < 0 || off >= int64(len(pks)) {
			return nil, true, fmt.Errorf("%w: %d of %d", column.ErrOffsetOutOfRange, off, len(pks))
		}
	}
	if field.DataType == schema.Int64 {
		vals := make([]int64, len(offsets))
		for i, off := range offsets {
			vals[i] = pks[off].Int64()
		}
		return column.FromFieldData(column.FromFixed(schema.Int64, vals, nil), false), true, nil
	}
	vals := make([]string, len(offsets))
	for i, off := range offsets {
		vals[i] = pks[off].VarChar()
	}
	return column.FromFieldData(column.Strings(field.DataType, vals, nil), false), true, nil
}

func encodeVector(t schema.DataType, v []float32) []byte {
	switch t {
	case schema.Float16Vector:
		return f16.AppendFloat16(nil, v)
	case schema.BFloat16Vector:
		return f16.AppendBFloat16(nil, v)
	default:
		return schema.EncodeFloatVector(v)
	}
}

func (s *SealedSegment) defaults(field schema.Field, offsets []int64) (*Column, error) {
	if rows := s.RowCount(); rows > 0 {
		for _, off := range offsets {
			if off < 0 || off >= rows {
				return nil, fmt.Errorf("%w: %d of %d", column.ErrOffsetOutOfRange, off, rows)
			}
		}
	}
	return column.FromFieldData(column.Defaults(field, len(offsets)), field.Nullable), nil
}

// BulkSubscriptDynamic retrieves a JSON field and keeps only the named top
// level keys of every document. Keys missing from a document are omitted.
// No names returns whole documents.
func (s *SealedSegment) BulkSubscriptDynamic(id schema.FieldID, offsets []int64, names []string) (*Column, error) {
	field, err := s.field(id)
	if err != nil {
		return nil, err
	}
	if field.DataType != schema.JSON {
		return nil, &TypeMismatchError{Field: id, What: "data type", Want: schema.JSON.String(), Got: field.DataType.String()}
	}
	col, err := s.BulkSubscript(id, offsets)
	if err != nil || len(names) == 0 {
		return col, err
	}

	views := make([][]byte, col.Len)
	for i := range views {
		if col.IsNull(i) {
			continue
		}
		doc, err := codec.Project(col.Row(i), names)
		if err != nil {
			return nil, fmt.Errorf("field %d offset %d: %w", id, offsets[i], err)
		}
		views[i] = doc
	}
	return &Column{Type: col.Type, Len: col.Len, Views: views, Valid: col.Valid}, nil
}

// BulkSubscriptSystem returns row ids or insertion timestamps at offsets.
func (s *SealedSegment) BulkSubscriptSystem(id schema.FieldID, offsets []int64) ([]int64, error) {
	s.sysMu.Lock()
	rowIDs, tss := s.sys.rowIDs, s.sys.tss
	s.sysMu.Unlock()

	var n int
	var at func(int64) int64
	switch id {
	case schema.RowIDField:
		n, at = len(rowIDs), func(off int64) int64 { return rowIDs[off] }
		if rowIDs == nil {
			return nil, fmt.Errorf("%w: field %d", column.ErrNotLoaded, id)
		}
	case schema.TimestampField:
		n, at = len(tss), func(off int64) int64 { return int64(tss[off]) }
		if tss == nil {
			return nil, fmt.Errorf("%w: field %d", column.ErrNotLoaded, id)
		}
	default:
		return nil, fmt.Errorf("%w: %d is not a system field", ErrFieldNotFound, id)
	}

	out := make([]int64, len(offsets))
	for i, off := range offsets {
		if off < 0 || off >= int64(n) {
			return nil, fmt.Errorf("%w: %d of %d", column.ErrOffsetOutOfRange, off, n)
		}
		out[i] = at(off)
	}
	return out, nil
}

// GetVector returns vectors at offsets from raw data or, once raw data is
// gone, from an index that keeps raw vectors.
func (s *SealedSegment) GetVector(id schema.FieldID, offsets []int64) (*Column, error) {
	field, err := s.field(id)
	if err != nil {
		return nil, err
	}
	if !field.DataType.IsVector() {
		return nil, &TypeMismatchError{Field: id, What: "data type", Want: "vector", Got: field.DataType.String()}
	}
	out, err := s.gatherRaw(id, offsets)
	if err == nil || !isMissingData(err) {
		return out, err
	}
	if out, ok, err := s.gatherIndex(field, offsets); ok {
		return out, err
	}
	return nil, fmt.Errorf("%w: field %d", ErrNoRawData, id)
}

func (s *SealedSegment) rowIndex() (*rowindex.Index, error) {
	ri := s.rows.Load()
	if ri == nil {
		return nil, ErrRowIndexNotReady
	}
	return ri, nil
}

// SearchPK returns the offsets of rows holding pk that are visible at asOf:
// inserted at or before asOf and not deleted at or before asOf. A missing
// key yields no offsets.
func (s *SealedSegment) SearchPK(pk model.PK, asOf model.Timestamp) ([]int64, error) {
	ri, err := s.rowIndex()
	if err != nil {
		return nil, err
	}
	if s.deletes.Load().IsDeleted(pk, asOf) {
		return nil, nil
	}
	return ri.SearchPK(pk, asOf), nil
}

// SearchPKBarrier returns the offsets below barrier holding pk, ignoring
// timestamps and tombstones.
func (s *SealedSegment) SearchPKBarrier(pk model.PK, barrier int64) ([]int64, error) {
	ri, err := s.rowIndex()
	if err != nil {
		return nil, err
	}
	return ri.SearchPKBarrier(pk, barrier), nil
}

// SearchIDs resolves a batch of keys at asOf with the visibility of SearchPK.
// It returns the offsets found, the key of each offset, and the keys without
// a visible row.
func (s *SealedSegment) SearchIDs(ids []model.PK, asOf model.Timestamp) (offsets []int64, matched, notFound []model.PK, err error) {
	ri, err := s.rowIndex()
	if err != nil {
		return nil, nil, nil, err
	}
	log := s.deletes.Load()
	live := make([]model.PK, 0, len(ids))
	for _, pk := range ids {
		if log.IsDeleted(pk, asOf) {
			notFound = append(notFound, pk)
			continue
		}
		live = append(live, pk)
	}
	offsets, matched, missing := ri.SearchIDs(live, asOf)
	return offsets, matched, append(notFound, missing...), nil
}

// Delete records tombstones for pks. The range in the deletion log is
// reserved up front so one call's entries are never interleaved.
func (s *SealedSegment) Delete(ctx context.Context, pks []model.PK, tss []model.Timestamp) (err error) {
	if err := s.checkOpen(); err != nil {
		return err
	}
	start := time.Now()
	defer func() {
		s.metrics.RecordDelete(len(pks), time.Since(start), err)
		s.logger.LogDelete(ctx, len(pks), err)
	}()
	return s.appendTombstones(pks, tss)
}

// Mask clears from bm every row inserted after asOf and every row below
// barrier whose key is deleted as of asOf.
func (s *SealedSegment) Mask(bm *roaring.Bitmap, barrier int64, asOf model.Timestamp) error {
	ri, err := s.rowIndex()
	if err != nil {
		return err
	}
	ri.MaskTimestamps(bm, asOf)
	s.deletes.Load().Mask(bm, barrier, asOf)
	return nil
}

// VisibleRows returns the rows visible at asOf.
func (s *SealedSegment) VisibleRows(asOf model.Timestamp) (*roaring.Bitmap, error) {
	ri, err := s.rowIndex()
	if err != nil {
		return nil, err
	}
	bm := roaring.New()
	bm.AddRange(0, uint64(ri.Rows()))
	ri.MaskTimestamps(bm, asOf)
	s.deletes.Load().Mask(bm, ri.Rows(), asOf)
	return bm, nil
}

// IsDeleted reports whether pk has a tombstone at or before asOf.
func (s *SealedSegment) IsDeleted(pk model.PK, asOf model.Timestamp) bool {
	return s.deletes.Load().IsDeleted(pk, asOf)
}

// ActiveCount returns the number of rows inserted at or before asOf,
// ignoring deletions.
func (s *SealedSegment) ActiveCount(asOf model.Timestamp) (int64, error) {
	ri, err := s.rowIndex()
	if err != nil {
		return 0, err
	}
	return ri.ActiveCount(asOf), nil
}

// DeletedCount returns the number of distinct keys deleted as of asOf.
func (s *SealedSegment) DeletedCount(asOf model.Timestamp) int {
	return s.deletes.Load().DeletedCount(asOf)
}

// FindFirst returns up to limit rows visible at asOf and admitted by filter,
// in primary key order, and whether more remain. A nil filter admits all.
func (s *SealedSegment) FindFirst(limit int, asOf model.Timestamp, filter *roaring.Bitmap) ([]int64, bool, error) {
	ri, err := s.rowIndex()
	if err != nil {
		return nil, false, err
	}
	admit, err := s.VisibleRows(asOf)
	if err != nil {
		return nil, false, err
	}
	if filter != nil {
		admit.And(filter)
	}
	offs, more := ri.FindFirst(limit, admit)
	return offs, more, nil
}

// Warmup asks the kernel to page in the mapped chunks of a field. Heap
// resident fields are already warm.
func (s *SealedSegment) Warmup(id schema.FieldID) error {
	col, err := s.store.Pin(id)
	if err != nil {
		return err
	}
	defer col.Unpin()
	if !col.Mapped() {
		return nil
	}
	return col.Advise(mmap.AccessWillNeed)
}
