// Package scalar implements the SORTED scalar index.
//
// The index keeps the raw column together with a permutation of the non-null
// rows ordered by value, answering term and range predicates with binary
// search and reverse lookups by offset.
package scalar

import (
	"errors"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/segcore/internal/binlog"
	"github.com/hupe1980/segcore/internal/column"
	"github.com/hupe1980/segcore/schema"
)

// ErrUnsupportedType is returned for types the SORTED index cannot order.
var ErrUnsupportedType = errors.New("scalar: unsupported data type")

// Supports reports whether t can be indexed.
func Supports(t schema.DataType) bool {
	return t == schema.Bool || t.IsInteger() || t.IsFloating() || t.IsString()
}

// Sorted is a SORTED scalar index.
type Sorted struct {
	data  *column.FieldData
	order []uint32
	nulls *roaring.Bitmap
}

// Build indexes d. The data is retained.
func Build(d *column.FieldData) (*Sorted, error) {
	if !Supports(d.Type) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, d.Type)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	s := &Sorted{data: d, nulls: roaring.New()}
	s.order = make([]uint32, 0, d.Rows)
	for i := 0; i < d.Rows; i++ {
		if d.IsValid(i) {
			s.order = append(s.order, uint32(i))
		} else {
			s.nulls.Add(uint32(i))
		}
	}
	sort.SliceStable(s.order, func(a, b int) bool {
		return s.value(int(s.order[a])).Compare(s.value(int(s.order[b]))) < 0
	})
	return s, nil
}

// Decode restores an index from Encode output.
func Decode(body []byte) (*Sorted, error) {
	d, err := binlog.DecodeFieldData(body)
	if err != nil {
		return nil, fmt.Errorf("scalar: %w", err)
	}
	return Build(d)
}

// Encode serializes the indexed column. The order is rebuilt on decode.
func (s *Sorted) Encode() ([]byte, error) {
	return binlog.EncodeFieldData(s.data, binlog.CompressionZstd)
}

func (s *Sorted) value(off int) schema.Value {
	row := s.data.Row(off)
	if s.data.Type.IsString() {
		return schema.Value{Type: s.data.Type, Str: string(row)}
	}
	return schema.DecodeFixed(s.data.Type, row)
}

func (s *Sorted) Kind() string { return "SORTED" }

// DataType returns the indexed type.
func (s *Sorted) DataType() schema.DataType { return s.data.Type }

func (s *Sorted) Rows() int64 { return int64(s.data.Rows) }

func (s *Sorted) HasRawData() bool { return true }

func (s *Sorted) MemSize() int64 {
	return s.data.MemSize() + int64(4*len(s.order)) + int64(s.nulls.GetSizeInBytes())
}

// Raw returns the indexed column.
func (s *Sorted) Raw() *column.FieldData { return s.data }

// Reverse returns the value of a row. It reports false for null rows.
func (s *Sorted) Reverse(off int64) (schema.Value, bool) {
	if off < 0 || off >= int64(s.data.Rows) || !s.data.IsValid(int(off)) {
		return schema.Value{Type: s.data.Type}, false
	}
	return s.value(int(off)), true
}

// lower returns the first position in order whose value is >= v (> v when strict).
func (s *Sorted) lower(v schema.Value, strict bool) int {
	return sort.Search(len(s.order), func(i int) bool {
		c := s.value(int(s.order[i])).Compare(v)
		if strict {
			return c > 0
		}
		return c >= 0
	})
}

func (s *Sorted) collect(from, to int, out *roaring.Bitmap) {
	for i := from; i < to; i++ {
		out.Add(s.order[i])
	}
}

// In returns the rows whose value equals one of values.
func (s *Sorted) In(values ...schema.Value) *roaring.Bitmap {
	out := roaring.New()
	for _, v := range values {
		v = v.Convert(s.data.Type)
		s.collect(s.lower(v, false), s.lower(v, true), out)
	}
	return out
}

// NotIn returns the non-null rows whose value equals none of values.
func (s *Sorted) NotIn(values ...schema.Value) *roaring.Bitmap {
	out := roaring.New()
	s.collect(0, len(s.order), out)
	out.AndNot(s.In(values...))
	return out
}

// Range returns the rows with lo <(=) value <(=) hi. A nil bound is open.
func (s *Sorted) Range(lo *schema.Value, loInclusive bool, hi *schema.Value, hiInclusive bool) *roaring.Bitmap {
	from, to := 0, len(s.order)
	if lo != nil {
		from = s.lower(lo.Convert(s.data.Type), !loInclusive)
	}
	if hi != nil {
		to = s.lower(hi.Convert(s.data.Type), hiInclusive)
	}
	out := roaring.New()
	if from < to {
		s.collect(from, to, out)
	}
	return out
}

// Nulls returns the null rows.
func (s *Sorted) Nulls() *roaring.Bitmap { return s.nulls.Clone() }
