package bitset

import (
	"math/bits"
	"sync/atomic"
)

const (
	segmentBits = 16
	segmentSize = 1 << segmentBits
	segmentMask = segmentSize - 1

	wordsPerSegment = segmentSize / 64
)

type segment [wordsPerSegment]atomic.Uint64

// BitSet is a thread-safe, lock-free, segmented bitset.
type BitSet struct {
	segments atomic.Pointer[[]*segment]
	size     atomic.Uint64
}

// New creates a BitSet holding size bits.
func New(size uint64) *BitSet {
	b := &BitSet{}
	b.Grow(size)
	return b
}

func (b *BitSet) growSegments(size uint64) {
	if size == 0 {
		return
	}
	need := int((size-1)>>segmentBits) + 1

	for {
		old := b.segments.Load()
		have := 0
		if old != nil {
			have = len(*old)
		}
		if have >= need {
			return
		}

		next := make([]*segment, need)
		if old != nil {
			copy(next, *old)
		}
		for i := have; i < need; i++ {
			next[i] = new(segment)
		}

		if b.segments.CompareAndSwap(old, &next) {
			return
		}
	}
}

// word returns the atomic word holding bit i and the bit's mask.
func (b *BitSet) word(i uint64) (*atomic.Uint64, uint64) {
	if i >= b.size.Load() {
		return nil, 0
	}
	segs := b.segments.Load()
	segIdx := int(i >> segmentBits)
	if segs == nil || segIdx >= len(*segs) {
		return nil, 0
	}
	off := i & segmentMask
	return &(*segs)[segIdx][off/64], uint64(1) << (off % 64)
}

// Set sets bit i. Out-of-range bits are ignored.
func (b *BitSet) Set(i uint64) {
	if w, mask := b.word(i); w != nil {
		w.Or(mask)
	}
}

// TestAndSet sets bit i and reports whether it was already set.
func (b *BitSet) TestAndSet(i uint64) bool {
	w, mask := b.word(i)
	if w == nil {
		return false
	}
	return w.Or(mask)&mask != 0
}

// Unset clears bit i.
func (b *BitSet) Unset(i uint64) {
	if w, mask := b.word(i); w != nil {
		w.And(^mask)
	}
}

// Test reports whether bit i is set.
func (b *BitSet) Test(i uint64) bool {
	w, mask := b.word(i)
	return w != nil && w.Load()&mask != 0
}

// NextSetBit returns the index of the first set bit at or after i, or -1.
func (b *BitSet) NextSetBit(i uint64) int64 {
	size := b.size.Load()
	segs := b.segments.Load()
	if segs == nil || i >= size {
		return -1
	}

	segIdx := int(i >> segmentBits)
	wordIdx := int((i & segmentMask) / 64)
	first := ^uint64(0) << (i % 64)

	for s := segIdx; s < len(*segs); s++ {
		seg := (*segs)[s]
		for w := wordIdx; w < wordsPerSegment; w++ {
			val := seg[w].Load() & first
			first = ^uint64(0)
			if val != 0 {
				idx := uint64(s)*segmentSize + uint64(w)*64 + uint64(bits.TrailingZeros64(val))
				if idx >= size {
					return -1
				}
				return int64(idx)
			}
		}
		wordIdx = 0
	}
	return -1
}

// Grow ensures the bitset can hold at least size bits.
func (b *BitSet) Grow(size uint64) {
	b.growSegments(size)
	for {
		cur := b.size.Load()
		if size <= cur || b.size.CompareAndSwap(cur, size) {
			return
		}
	}
}

// Count returns the number of set bits.
func (b *BitSet) Count() int {
	segs := b.segments.Load()
	if segs == nil {
		return 0
	}
	count := 0
	for _, seg := range *segs {
		for w := range seg {
			count += bits.OnesCount64(seg[w].Load())
		}
	}
	return count
}

// ClearAll clears all bits.
func (b *BitSet) ClearAll() {
	segs := b.segments.Load()
	if segs == nil {
		return
	}
	for _, seg := range *segs {
		for w := range seg {
			seg[w].Store(0)
		}
	}
}

// Len returns the size of the bitset in bits.
func (b *BitSet) Len() uint64 {
	return b.size.Load()
}
