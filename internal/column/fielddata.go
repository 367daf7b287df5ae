package column

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/segcore/schema"
)

// FieldData is a decoded run of rows for one field.
type FieldData struct {
	Type schema.DataType
	Dim  int
	Rows int
	// Fixed holds Rows*RowSize bytes for fixed-width types.
	Fixed []byte
	// Var holds one entry per row for variable-length types.
	Var [][]byte
	// Valid has one entry per row for nullable data. Nil means every row is valid.
	Valid []bool
}

// RowSize returns the byte stride of one row, or 0 for variable-length types.
func (d *FieldData) RowSize() int {
	return d.Type.RowSize(d.Dim)
}

// Validate checks that the buffers agree with Rows.
func (d *FieldData) Validate() error {
	if d.Rows < 0 {
		return fmt.Errorf("%w: negative row count %d", ErrInvalidData, d.Rows)
	}
	if d.Valid != nil && len(d.Valid) != d.Rows {
		return fmt.Errorf("%w: %d validity entries for %d rows", ErrInvalidData, len(d.Valid), d.Rows)
	}
	if d.Type.IsVariableLength() {
		if len(d.Var) != d.Rows {
			return fmt.Errorf("%w: %d values for %d rows", ErrInvalidData, len(d.Var), d.Rows)
		}
		return nil
	}
	stride := d.RowSize()
	if stride <= 0 {
		return fmt.Errorf("%w: type %s dim %d has no row size", ErrInvalidData, d.Type, d.Dim)
	}
	if len(d.Fixed) != d.Rows*stride {
		return fmt.Errorf("%w: %d bytes for %d rows of %d bytes", ErrInvalidData, len(d.Fixed), d.Rows, stride)
	}
	return nil
}

// IsValid reports whether row i holds a value.
func (d *FieldData) IsValid(i int) bool {
	return d.Valid == nil || d.Valid[i]
}

// Row returns the encoded bytes of row i.
func (d *FieldData) Row(i int) []byte {
	if d.Type.IsVariableLength() {
		return d.Var[i]
	}
	stride := d.RowSize()
	return d.Fixed[i*stride : (i+1)*stride]
}

// MemSize estimates the bytes held by d.
func (d *FieldData) MemSize() int64 {
	n := int64(len(d.Fixed) + len(d.Valid))
	for _, v := range d.Var {
		n += int64(len(v))
	}
	return n
}

// Merge concatenates parts of the same type into one FieldData.
func Merge(parts ...*FieldData) (*FieldData, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: nothing to merge", ErrInvalidData)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}

	out := &FieldData{Type: parts[0].Type, Dim: parts[0].Dim}
	nullable := false
	for _, p := range parts {
		if p.Type != out.Type || p.Dim != out.Dim {
			return nil, fmt.Errorf("%w: cannot merge %s/%d into %s/%d", ErrInvalidData, p.Type, p.Dim, out.Type, out.Dim)
		}
		if p.Valid != nil {
			nullable = true
		}
		out.Rows += p.Rows
	}

	if nullable {
		out.Valid = make([]bool, 0, out.Rows)
	}
	for _, p := range parts {
		out.Fixed = append(out.Fixed, p.Fixed...)
		out.Var = append(out.Var, p.Var...)
		if nullable {
			for i := 0; i < p.Rows; i++ {
				out.Valid = append(out.Valid, p.IsValid(i))
			}
		}
	}
	return out, nil
}

// Defaults returns n rows of field's default value. Nullable fields without a
// default yield null rows; other fields yield zero values.
func Defaults(field schema.Field, n int) *FieldData {
	d := &FieldData{Type: field.DataType, Dim: field.Dim, Rows: n}

	hasDefault := field.DefaultValue != nil
	if field.Nullable {
		d.Valid = make([]bool, n)
		for i := range d.Valid {
			d.Valid[i] = hasDefault
		}
	}

	var def schema.Value
	if hasDefault {
		def = field.DefaultValue.Convert(field.DataType)
	} else {
		def = schema.Value{Type: field.DataType}
	}

	if field.DataType.IsVariableLength() {
		d.Var = make([][]byte, n)
		row := def.VarBytes()
		for i := range d.Var {
			d.Var[i] = row
		}
		return d
	}

	stride := field.RowSize()
	if !hasDefault {
		d.Fixed = make([]byte, n*stride)
		return d
	}
	row := def.AppendFixed(nil)
	d.Fixed = make([]byte, 0, n*stride)
	for i := 0; i < n; i++ {
		d.Fixed = append(d.Fixed, row...)
	}
	return d
}

// FillMissing pads d with default rows of field until it holds rows rows.
func FillMissing(field schema.Field, d *FieldData, rows int) (*FieldData, error) {
	if d.Rows > rows {
		return nil, fmt.Errorf("%w: %d rows exceed expected %d", ErrRowCountMismatch, d.Rows, rows)
	}
	if d.Rows == rows {
		return d, nil
	}
	return Merge(d, Defaults(field, rows-d.Rows))
}

type fixedNumber interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// FromFixed builds FieldData of type t from numeric values.
func FromFixed[T fixedNumber](t schema.DataType, vals []T, valid []bool) *FieldData {
	buf, err := binary.Append(nil, binary.LittleEndian, vals)
	if err != nil {
		panic(err)
	}
	return &FieldData{Type: t, Rows: len(vals), Fixed: buf, Valid: valid}
}

// Bools builds Bool FieldData.
func Bools(vals []bool, valid []bool) *FieldData {
	buf := make([]byte, len(vals))
	for i, v := range vals {
		if v {
			buf[i] = 1
		}
	}
	return &FieldData{Type: schema.Bool, Rows: len(vals), Fixed: buf, Valid: valid}
}

// Strings builds VarChar or String FieldData.
func Strings(t schema.DataType, vals []string, valid []bool) *FieldData {
	rows := make([][]byte, len(vals))
	for i, v := range vals {
		rows[i] = []byte(v)
	}
	return &FieldData{Type: t, Rows: len(vals), Var: rows, Valid: valid}
}

// Blobs builds variable-length FieldData (JSON, Array, SparseFloatVector).
func Blobs(t schema.DataType, vals [][]byte, valid []bool) *FieldData {
	return &FieldData{Type: t, Rows: len(vals), Var: vals, Valid: valid}
}

// FloatVectors builds FloatVector FieldData.
func FloatVectors(dim int, vecs [][]float32) *FieldData {
	buf := make([]byte, 0, len(vecs)*dim*4)
	for _, v := range vecs {
		buf = append(buf, schema.EncodeFloatVector(v)...)
	}
	return &FieldData{Type: schema.FloatVector, Dim: dim, Rows: len(vecs), Fixed: buf}
}

// Vectors builds fixed-stride vector FieldData from encoded rows.
func Vectors(t schema.DataType, dim int, rows [][]byte) *FieldData {
	buf := make([]byte, 0, len(rows)*t.RowSize(dim))
	for _, r := range rows {
		buf = append(buf, r...)
	}
	return &FieldData{Type: t, Dim: dim, Rows: len(rows), Fixed: buf}
}
