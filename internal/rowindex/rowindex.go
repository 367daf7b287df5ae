package rowindex

import (
	"errors"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/segcore/model"
)

var (
	// ErrLengthMismatch is returned when the per-row arrays differ in length.
	ErrLengthMismatch = errors.New("rowindex: per-row arrays differ in length")
	// ErrNotSorted is returned when sorted mode is requested for unsorted keys.
	ErrNotSorted = errors.New("rowindex: primary keys are not sorted")
)

// Index is the immutable per-row metadata of a segment.
type Index struct {
	timestamps []model.Timestamp
	rowIDs     []int64
	pks        []model.PK

	sortedByPK bool
	// tsSorted is true when timestamps are non-decreasing by offset.
	tsSorted bool
	byPK     map[model.PK][]int64
}

// New builds an Index. rowIDs may be nil.
func New(pks []model.PK, timestamps []model.Timestamp, rowIDs []int64, sortedByPK bool) (*Index, error) {
	if len(pks) != len(timestamps) || (rowIDs != nil && len(rowIDs) != len(pks)) {
		return nil, fmt.Errorf("%w: pks=%d timestamps=%d rowIDs=%d", ErrLengthMismatch, len(pks), len(timestamps), len(rowIDs))
	}

	idx := &Index{
		timestamps: timestamps,
		rowIDs:     rowIDs,
		pks:        pks,
		sortedByPK: sortedByPK,
		tsSorted:   sort.SliceIsSorted(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] }),
	}

	if sortedByPK {
		for i := 1; i < len(pks); i++ {
			if pks[i-1].Compare(pks[i]) > 0 {
				return nil, fmt.Errorf("%w: offset %d (%s) after %s", ErrNotSorted, i, pks[i], pks[i-1])
			}
		}
		return idx, nil
	}

	idx.byPK = make(map[model.PK][]int64, len(pks))
	for i, pk := range pks {
		idx.byPK[pk] = append(idx.byPK[pk], int64(i))
	}
	return idx, nil
}

// Rows returns the number of rows.
func (x *Index) Rows() int64 { return int64(len(x.pks)) }

// SortedByPK reports whether rows are ordered by primary key.
func (x *Index) SortedByPK() bool { return x.sortedByPK }

// Timestamp returns the insertion timestamp of a row.
func (x *Index) Timestamp(offset int64) model.Timestamp { return x.timestamps[offset] }

// Timestamps returns the insertion timestamps. The slice must not be modified.
func (x *Index) Timestamps() []model.Timestamp { return x.timestamps }

// PK returns the primary key of a row.
func (x *Index) PK(offset int64) model.PK { return x.pks[offset] }

// RowID returns the row id of a row, or -1 when row ids were not loaded.
func (x *Index) RowID(offset int64) int64 {
	if x.rowIDs == nil {
		return -1
	}
	return x.rowIDs[offset]
}

// RowIDs returns the row ids (nil when not loaded). The slice must not be modified.
func (x *Index) RowIDs() []int64 { return x.rowIDs }

// candidates returns every offset holding pk in ascending order.
func (x *Index) candidates(pk model.PK) []int64 {
	if !x.sortedByPK {
		return x.byPK[pk]
	}
	lo := sort.Search(len(x.pks), func(i int) bool { return x.pks[i].Compare(pk) >= 0 })
	var out []int64
	for i := lo; i < len(x.pks) && x.pks[i] == pk; i++ {
		out = append(out, int64(i))
	}
	return out
}

// Contains reports whether any row holds pk, regardless of visibility.
func (x *Index) Contains(pk model.PK) bool {
	return len(x.candidates(pk)) > 0
}

// SearchPK returns the offsets of rows holding pk inserted at or before asOf.
// A missing key yields an empty result.
func (x *Index) SearchPK(pk model.PK, asOf model.Timestamp) []int64 {
	var out []int64
	for _, off := range x.candidates(pk) {
		if x.timestamps[off] <= asOf {
			out = append(out, off)
		}
	}
	return out
}

// SearchPKBarrier returns the offsets of rows holding pk below the insert barrier.
func (x *Index) SearchPKBarrier(pk model.PK, barrier int64) []int64 {
	var out []int64
	for _, off := range x.candidates(pk) {
		if off < barrier {
			out = append(out, off)
		}
	}
	return out
}

// SearchIDs resolves a batch of keys. It returns the offsets of visible rows
// along with the key of each offset, and the keys that matched no visible row.
func (x *Index) SearchIDs(ids []model.PK, asOf model.Timestamp) ([]int64, []model.PK, []model.PK) {
	var offsets []int64
	var matched, notFound []model.PK
	for _, pk := range ids {
		hits := x.SearchPK(pk, asOf)
		if len(hits) == 0 {
			notFound = append(notFound, pk)
			continue
		}
		for _, off := range hits {
			offsets = append(offsets, off)
			matched = append(matched, pk)
		}
	}
	return offsets, matched, notFound
}

// ActiveCount returns the number of rows inserted at or before asOf. It
// ignores deletions.
func (x *Index) ActiveCount(asOf model.Timestamp) int64 {
	if x.tsSorted {
		return int64(sort.Search(len(x.timestamps), func(i int) bool { return x.timestamps[i] > asOf }))
	}
	var n int64
	for _, ts := range x.timestamps {
		if ts <= asOf {
			n++
		}
	}
	return n
}

// MaskTimestamps removes rows inserted after asOf from bm.
func (x *Index) MaskTimestamps(bm *roaring.Bitmap, asOf model.Timestamp) {
	if x.tsSorted {
		active := x.ActiveCount(asOf)
		if active < x.Rows() {
			bm.RemoveRange(uint64(active), uint64(x.Rows()))
		}
		return
	}
	for i, ts := range x.timestamps {
		if ts > asOf {
			bm.Remove(uint32(i))
		}
	}
}

// FindFirst returns up to limit admitted offsets in primary key order, and
// whether more admitted rows remain. A nil admit admits every row.
func (x *Index) FindFirst(limit int, admit *roaring.Bitmap) ([]int64, bool) {
	if limit <= 0 {
		return nil, false
	}

	var out []int64
	visit := func(off int64) bool {
		if admit != nil && !admit.Contains(uint32(off)) {
			return true
		}
		if len(out) == limit {
			return false
		}
		out = append(out, off)
		return true
	}

	if x.sortedByPK {
		for off := int64(0); off < x.Rows(); off++ {
			if !visit(off) {
				return out, true
			}
		}
		return out, false
	}

	order := make([]int64, len(x.pks))
	for i := range order {
		order[i] = int64(i)
	}
	sort.SliceStable(order, func(a, b int) bool { return x.pks[order[a]].Compare(x.pks[order[b]]) < 0 })
	for _, off := range order {
		if !visit(off) {
			return out, true
		}
	}
	return out, false
}

// MemSize estimates the bytes held by the index.
func (x *Index) MemSize() int64 {
	n := int64(len(x.timestamps))*8 + int64(len(x.rowIDs))*8 + int64(len(x.pks))*40
	for pk := range x.byPK {
		n += int64(len(pk.VarChar())) + 48
	}
	return n
}
