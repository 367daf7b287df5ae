package column

import (
	"encoding/binary"
	"math"

	"github.com/hupe1980/segcore/internal/f16"
	"github.com/hupe1980/segcore/schema"
)

// Column is a typed result of gathering rows of one field.
type Column struct {
	Type schema.DataType
	Dim  int
	Len  int
	// Fixed holds Len*RowSize bytes for fixed-width types.
	Fixed []byte
	// Views holds one entry per row for variable-length types.
	Views [][]byte
	// Valid is non-nil for nullable fields and has Len entries.
	Valid []bool
}

func newColumn(field schema.Field, n int) *Column {
	out := &Column{Type: field.DataType, Dim: field.Dim, Len: n}
	if field.Nullable {
		out.Valid = make([]bool, n)
	}
	if field.DataType.IsVariableLength() {
		out.Views = make([][]byte, n)
	} else {
		out.Fixed = make([]byte, n*field.RowSize())
	}
	return out
}

// FromFieldData wraps decoded data as a Column without copying.
func FromFieldData(d *FieldData, nullable bool) *Column {
	out := &Column{Type: d.Type, Dim: d.Dim, Len: d.Rows, Fixed: d.Fixed, Views: d.Var, Valid: d.Valid}
	if nullable && out.Valid == nil {
		out.Valid = make([]bool, d.Rows)
		for i := range out.Valid {
			out.Valid[i] = true
		}
	}
	return out
}

// FromValues builds a Column of field's type from decoded values. Rows whose
// valid entry is false are null and keep a zero encoding.
func FromValues(field schema.Field, vals []schema.Value, valid []bool) *Column {
	out := newColumn(field, len(vals))
	stride := field.RowSize()
	for i, v := range vals {
		ok := valid == nil || valid[i]
		if out.Valid != nil {
			out.Valid[i] = ok
		}
		if !ok {
			continue
		}
		v = v.Convert(field.DataType)
		if out.Views != nil {
			out.Views[i] = v.VarBytes()
			continue
		}
		v.AppendFixed(out.Fixed[i*stride : i*stride : (i+1)*stride])
	}
	return out
}

// IsNull reports whether row i is null.
func (c *Column) IsNull(i int) bool {
	return c.Valid != nil && !c.Valid[i]
}

// Row returns the encoded bytes of row i.
func (c *Column) Row(i int) []byte {
	if c.Views != nil {
		return c.Views[i]
	}
	stride := c.Type.RowSize(c.Dim)
	return c.Fixed[i*stride : (i+1)*stride]
}

// Value decodes row i. Null rows decode to the zero Value of the type.
func (c *Column) Value(i int) schema.Value {
	if c.IsNull(i) {
		return schema.Value{Type: c.Type}
	}
	switch {
	case c.Type.IsString():
		return schema.Value{Type: c.Type, Str: string(c.Views[i])}
	case c.Views != nil || c.Type.IsVector():
		return schema.BytesValue(c.Type, c.Row(i))
	default:
		return schema.DecodeFixed(c.Type, c.Row(i))
	}
}

// Bool returns row i of a Bool column.
func (c *Column) Bool(i int) bool { return c.Fixed[i] != 0 }

// Int returns row i of an integer column sign-extended to int64.
func (c *Column) Int(i int) int64 { return schema.DecodeFixed(c.Type, c.Row(i)).Int }

// Float returns row i of a Float or Double column.
func (c *Column) Float(i int) float64 { return schema.DecodeFixed(c.Type, c.Row(i)).Float }

// String returns a copy of row i of a string column.
func (c *Column) String(i int) string { return string(c.Views[i]) }

// FloatVector decodes row i of a dense float vector column into float32.
func (c *Column) FloatVector(i int) []float32 {
	out := make([]float32, c.Dim)
	row := c.Row(i)
	switch c.Type {
	case schema.FloatVector:
		for j := range out {
			out[j] = math.Float32frombits(binary.LittleEndian.Uint32(row[4*j:]))
		}
	case schema.Float16Vector:
		f16.DecodeFloat16(out, row)
	case schema.BFloat16Vector:
		f16.DecodeBFloat16(out, row)
	}
	return out
}
