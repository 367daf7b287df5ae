package deletelog

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/btree"

	"github.com/hupe1980/segcore/internal/bitset"
	"github.com/hupe1980/segcore/model"
)

const degree = 32

var (
	// ErrLengthMismatch is returned when keys and timestamps differ in length.
	ErrLengthMismatch = errors.New("deletelog: keys and timestamps differ in length")
	// ErrNotReserved is returned when writing outside a reserved range.
	ErrNotReserved = errors.New("deletelog: range not reserved")
)

// Record is one tombstone.
type Record struct {
	PK  model.PK
	Ts  model.Timestamp
	Seq uint64
}

func byPKLess(a, b Record) bool {
	if c := a.PK.Compare(b.PK); c != 0 {
		return c < 0
	}
	if a.Ts != b.Ts {
		return a.Ts < b.Ts
	}
	return a.Seq < b.Seq
}

func byTsLess(a, b Record) bool {
	if a.Ts != b.Ts {
		return a.Ts < b.Ts
	}
	return a.Seq < b.Seq
}

// Resolver maps keys to the segment rows holding them.
type Resolver interface {
	Rows() int64
	PK(offset int64) model.PK
	SearchPKBarrier(pk model.PK, barrier int64) []int64
}

// Log is an append-only tombstone log. It is safe for concurrent use.
type Log struct {
	mu   sync.RWMutex
	byPK *btree.BTreeG[Record]
	byTs *btree.BTreeG[Record]

	reserved atomic.Uint64
	bytes    atomic.Int64

	// Guarded by mu.
	resolver Resolver
	touched  *bitset.BitSet
}

// New creates an empty Log.
func New() *Log {
	return &Log{
		byPK: btree.NewG(degree, byPKLess),
		byTs: btree.NewG(degree, byTsLess),
	}
}

// Reserve claims n sequence numbers and returns the first.
func (l *Log) Reserve(n int) uint64 {
	return l.reserved.Add(uint64(n)) - uint64(n)
}

// Write stores tombstones in a range obtained from Reserve.
func (l *Log) Write(start uint64, pks []model.PK, tss []model.Timestamp) error {
	if len(pks) != len(tss) {
		return fmt.Errorf("%w: %d keys, %d timestamps", ErrLengthMismatch, len(pks), len(tss))
	}
	if start+uint64(len(pks)) > l.reserved.Load() {
		return fmt.Errorf("%w: [%d, %d)", ErrNotReserved, start, start+uint64(len(pks)))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i, pk := range pks {
		r := Record{PK: pk, Ts: tss[i], Seq: start + uint64(i)}
		if _, replaced := l.byPK.ReplaceOrInsert(r); replaced {
			continue
		}
		l.byTs.ReplaceOrInsert(r)
		l.bytes.Add(recordSize(r))
		l.touch(pk)
	}
	return nil
}

// Record appends one tombstone.
func (l *Log) Record(pk model.PK, ts model.Timestamp) error {
	return l.Write(l.Reserve(1), []model.PK{pk}, []model.Timestamp{ts})
}

func recordSize(r Record) int64 {
	return int64(48 + len(r.PK.VarChar()))
}

// touch marks the rows of pk; l.mu must be held.
func (l *Log) touch(pk model.PK) {
	if l.resolver == nil {
		return
	}
	for _, off := range l.resolver.SearchPKBarrier(pk, l.resolver.Rows()) {
		l.touched.Set(uint64(off))
	}
}

// Bind attaches the segment's row resolver. Rows hit by existing and future
// tombstones are tracked from then on.
func (l *Log) Bind(r Resolver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resolver = r
	l.touched = bitset.New(uint64(r.Rows()))
	l.byTs.Ascend(func(rec Record) bool {
		l.touch(rec.PK)
		return true
	})
}

// Len returns the number of tombstones.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.byTs.Len()
}

// MemSize estimates the bytes held by the log.
func (l *Log) MemSize() int64 {
	return l.bytes.Load()
}

// IsDeleted reports whether a tombstone for pk exists with timestamp <= asOf.
func (l *Log) IsDeleted(pk model.PK, asOf model.Timestamp) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isDeleted(pk, asOf)
}

func (l *Log) isDeleted(pk model.PK, asOf model.Timestamp) bool {
	deleted := false
	// The first record of pk carries its earliest tombstone.
	l.byPK.AscendGreaterOrEqual(Record{PK: pk}, func(r Record) bool {
		deleted = r.PK == pk && r.Ts <= asOf
		return false
	})
	return deleted
}

// RowDeleted reports whether the row at offset is hidden at asOf. It needs a
// bound resolver and reports false otherwise.
func (l *Log) RowDeleted(offset int64, asOf model.Timestamp) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.resolver == nil || !l.touched.Test(uint64(offset)) {
		return false
	}
	return l.isDeleted(l.resolver.PK(offset), asOf)
}

// Mask removes from bm every row below barrier whose key is deleted as of asOf.
func (l *Log) Mask(bm *roaring.Bitmap, barrier int64, asOf model.Timestamp) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.resolver == nil || l.byTs.Len() == 0 {
		return
	}

	seen := make(map[model.PK]struct{})
	l.byTs.Ascend(func(r Record) bool {
		if r.Ts > asOf {
			return false
		}
		if _, ok := seen[r.PK]; ok {
			return true
		}
		seen[r.PK] = struct{}{}
		for _, off := range l.resolver.SearchPKBarrier(r.PK, barrier) {
			bm.Remove(uint32(off))
		}
		return true
	})
}

// DeletedCount returns the number of distinct keys deleted as of asOf.
func (l *Log) DeletedCount(asOf model.Timestamp) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seen := make(map[model.PK]struct{})
	l.byTs.Ascend(func(r Record) bool {
		if r.Ts > asOf {
			return false
		}
		seen[r.PK] = struct{}{}
		return true
	})
	return len(seen)
}

// TouchedRows returns the number of rows hit by any tombstone.
func (l *Log) TouchedRows() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.touched == nil {
		return 0
	}
	return l.touched.Count()
}

// Ascend calls fn for every tombstone with timestamp <= asOf in time order
// until fn returns false. fn runs on a snapshot and may call back into l.
func (l *Log) Ascend(asOf model.Timestamp, fn func(Record) bool) {
	l.mu.Lock()
	snap := l.byTs.Clone()
	l.mu.Unlock()

	snap.Ascend(func(r Record) bool {
		if r.Ts > asOf {
			return false
		}
		return fn(r)
	})
}
