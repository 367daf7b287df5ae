package column

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/segcore/internal/mmap"
	"github.com/hupe1980/segcore/schema"
)

// ChunkedColumn is the loaded data of one field split into chunks.
type ChunkedColumn struct {
	field  schema.Field
	chunks []*Chunk
	// prefix[i] is the number of rows before chunk i; prefix[len(chunks)] is the total.
	prefix []int64

	// mapping owns the memory of mapped chunks; nil for heap columns.
	mapping *mmap.Mapping
	size    int64

	refs atomic.Int64
}

func newChunkedColumn(field schema.Field, chunks []*Chunk, mapping *mmap.Mapping) *ChunkedColumn {
	c := &ChunkedColumn{
		field:   field,
		chunks:  chunks,
		prefix:  make([]int64, len(chunks)+1),
		mapping: mapping,
	}
	for i, ch := range chunks {
		c.prefix[i+1] = c.prefix[i] + int64(ch.Rows())
		c.size += int64(ch.Size())
	}
	c.refs.Store(1)
	return c
}

// Field returns the schema of the column.
func (c *ChunkedColumn) Field() schema.Field { return c.field }

// Rows returns the total number of rows.
func (c *ChunkedColumn) Rows() int64 { return c.prefix[len(c.chunks)] }

// ChunkCount returns the number of chunks.
func (c *ChunkedColumn) ChunkCount() int { return len(c.chunks) }

// Chunk returns chunk i.
func (c *ChunkedColumn) Chunk(i int) *Chunk { return c.chunks[i] }

// ChunkRows returns the row count of chunk i.
func (c *ChunkedColumn) ChunkRows(i int) (int, error) {
	if i < 0 || i >= len(c.chunks) {
		return 0, fmt.Errorf("%w: chunk %d of %d", ErrChunkOutOfRange, i, len(c.chunks))
	}
	return c.chunks[i].Rows(), nil
}

// RowsUntilChunk returns the number of rows stored before chunk i.
func (c *ChunkedColumn) RowsUntilChunk(i int) (int64, error) {
	if i < 0 || i > len(c.chunks) {
		return 0, fmt.Errorf("%w: chunk %d of %d", ErrChunkOutOfRange, i, len(c.chunks))
	}
	return c.prefix[i], nil
}

// Locate translates a segment offset into a chunk id and a chunk-local offset.
func (c *ChunkedColumn) Locate(offset int64) (int, int, error) {
	if offset < 0 || offset >= c.Rows() {
		return 0, 0, fmt.Errorf("%w: %d not in [0, %d)", ErrOffsetOutOfRange, offset, c.Rows())
	}
	// First chunk whose end is past offset.
	i := sort.Search(len(c.chunks), func(i int) bool { return c.prefix[i+1] > offset })
	return i, int(offset - c.prefix[i]), nil
}

// Mapped reports whether the column lives in a file mapping.
func (c *ChunkedColumn) Mapped() bool { return c.mapping != nil }

// Size returns the bytes backing the column.
func (c *ChunkedColumn) Size() int64 { return c.size }

// IsValid reports whether the row at offset holds a value.
func (c *ChunkedColumn) IsValid(offset int64) (bool, error) {
	ci, li, err := c.Locate(offset)
	if err != nil {
		return false, err
	}
	return c.chunks[ci].IsValid(li), nil
}

// Row returns a view of the encoded row at offset.
func (c *ChunkedColumn) Row(offset int64) ([]byte, error) {
	ci, li, err := c.Locate(offset)
	if err != nil {
		return nil, err
	}
	return c.chunks[ci].Row(li), nil
}

// Gather collects the rows at offsets into one Column. Offsets may be
// unsorted and repeated. Fixed-width values are copied; variable-length
// values are views aliasing chunk memory.
func (c *ChunkedColumn) Gather(offsets []int64) (*Column, error) {
	out := newColumn(c.field, len(offsets))
	stride := c.field.RowSize()

	for i, off := range offsets {
		ci, li, err := c.Locate(off)
		if err != nil {
			return nil, err
		}
		ch := c.chunks[ci]
		if out.Valid != nil {
			out.Valid[i] = ch.IsValid(li)
		}
		if out.Views != nil {
			out.Views[i] = ch.Row(li)
			continue
		}
		copy(out.Fixed[i*stride:], ch.Row(li))
	}
	return out, nil
}

// Span returns a view of rows [start, start+n) of chunk i.
func (c *ChunkedColumn) Span(i, start, n int) (*Column, error) {
	rows, err := c.ChunkRows(i)
	if err != nil {
		return nil, err
	}
	if start < 0 || n < 0 || start+n > rows {
		return nil, fmt.Errorf("%w: span [%d, %d) of chunk with %d rows", ErrOffsetOutOfRange, start, start+n, rows)
	}

	ch := c.chunks[i]
	out := &Column{Type: c.field.DataType, Dim: c.field.Dim, Len: n}
	if c.field.Nullable {
		out.Valid = make([]bool, n)
		for j := range out.Valid {
			out.Valid[j] = ch.IsValid(start + j)
		}
	}
	if c.field.DataType.IsVariableLength() {
		out.Views = make([][]byte, n)
		for j := range out.Views {
			out.Views[j] = ch.Row(start + j)
		}
		return out, nil
	}
	out.Fixed = ch.Fixed(start, n)
	return out, nil
}

// StringViews returns zero-copy string views of every row of chunk i.
// The views are valid while the column is pinned.
func (c *ChunkedColumn) StringViews(i int) ([]string, []bool, error) {
	if !c.field.DataType.IsString() {
		return nil, nil, fmt.Errorf("%w: %s is not a string type", ErrUnsupportedType, c.field.DataType)
	}
	span, err := c.Span(i, 0, c.chunks[i].Rows())
	if err != nil {
		return nil, nil, err
	}
	views := make([]string, span.Len)
	for j, b := range span.Views {
		if len(b) > 0 {
			views[j] = unsafe.String(&b[0], len(b))
		}
	}
	return views, span.Valid, nil
}

// Advise passes an access hint to mapped chunks.
func (c *ChunkedColumn) Advise(pattern mmap.AccessPattern) error {
	if c.mapping == nil {
		return nil
	}
	return c.mapping.Advise(pattern)
}

func (c *ChunkedColumn) pin() bool {
	for {
		r := c.refs.Load()
		if r <= 0 {
			return false
		}
		if c.refs.CompareAndSwap(r, r+1) {
			return true
		}
	}
}

// Unpin releases a reference. The last reference frees the column memory.
func (c *ChunkedColumn) Unpin() error {
	if c.refs.Add(-1) != 0 {
		return nil
	}
	var errs []error
	if c.mapping != nil {
		errs = append(errs, c.mapping.Close())
	}
	return errors.Join(errs...)
}
