package schema

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Value is a single scalar or opaque value of a DataType.
// Exactly one payload member is meaningful, selected by Type.
type Value struct {
	Type  DataType
	Bool  bool
	Int   int64
	Float float64
	Str   string
	// Bytes holds JSON, Array and vector rows.
	Bytes []byte
}

// BoolValue returns a Bool value.
func BoolValue(b bool) Value { return Value{Type: Bool, Bool: b} }

// IntValue returns an integer value of type t.
func IntValue(t DataType, v int64) Value { return Value{Type: t, Int: v} }

// FloatValue returns a floating point value of type t.
func FloatValue(t DataType, v float64) Value { return Value{Type: t, Float: v} }

// StringValue returns a VarChar value.
func StringValue(s string) Value { return Value{Type: VarChar, Str: s} }

// BytesValue returns an opaque value of type t (JSON, Array or a vector row).
func BytesValue(t DataType, b []byte) Value { return Value{Type: t, Bytes: b} }

// AppendFixed appends the little-endian row encoding of a fixed-width value.
func (v Value) AppendFixed(dst []byte) []byte {
	switch v.Type {
	case Bool:
		if v.Bool {
			return append(dst, 1)
		}
		return append(dst, 0)
	case Int8:
		return append(dst, byte(int8(v.Int)))
	case Int16:
		return binary.LittleEndian.AppendUint16(dst, uint16(int16(v.Int)))
	case Int32:
		return binary.LittleEndian.AppendUint32(dst, uint32(int32(v.Int)))
	case Int64:
		return binary.LittleEndian.AppendUint64(dst, uint64(v.Int))
	case Float:
		return binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(v.Float)))
	case Double:
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(v.Float))
	default:
		return append(dst, v.Bytes...)
	}
}

// VarBytes returns the row encoding of a variable-length value.
func (v Value) VarBytes() []byte {
	if v.Type.IsString() {
		return []byte(v.Str)
	}
	return v.Bytes
}

// DecodeFixed decodes one fixed-width row of type t.
func DecodeFixed(t DataType, row []byte) Value {
	switch t {
	case Bool:
		return BoolValue(row[0] != 0)
	case Int8:
		return IntValue(t, int64(int8(row[0])))
	case Int16:
		return IntValue(t, int64(int16(binary.LittleEndian.Uint16(row))))
	case Int32:
		return IntValue(t, int64(int32(binary.LittleEndian.Uint32(row))))
	case Int64:
		return IntValue(t, int64(binary.LittleEndian.Uint64(row)))
	case Float:
		return FloatValue(t, float64(math.Float32frombits(binary.LittleEndian.Uint32(row))))
	case Double:
		return FloatValue(t, math.Float64frombits(binary.LittleEndian.Uint64(row)))
	default:
		return BytesValue(t, row)
	}
}

// Compare orders two values of the same type family.
func (v Value) Compare(o Value) int {
	switch {
	case v.Type == Bool:
		return cmp.Compare(b2i(v.Bool), b2i(o.Bool))
	case v.Type.IsInteger():
		return cmp.Compare(v.Int, o.Int)
	case v.Type.IsFloating():
		return cmp.Compare(v.Float, o.Float)
	case v.Type.IsString():
		return strings.Compare(v.Str, o.Str)
	default:
		return bytes.Compare(v.Bytes, o.Bytes)
	}
}

// Compatible reports whether v can be stored in a column of type t.
func (v Value) Compatible(t DataType) bool {
	switch {
	case t.IsInteger():
		return v.Type.IsInteger()
	case t.IsFloating():
		return v.Type.IsFloating() || v.Type.IsInteger()
	case t.IsString():
		return v.Type.IsString()
	default:
		return v.Type == t
	}
}

// Convert returns v retyped as t. Callers check Compatible first.
func (v Value) Convert(t DataType) Value {
	if t.IsFloating() && v.Type.IsInteger() {
		return FloatValue(t, float64(v.Int))
	}
	v.Type = t
	return v
}

func (v Value) String() string {
	switch {
	case v.Type == Bool:
		return fmt.Sprint(v.Bool)
	case v.Type.IsInteger():
		return fmt.Sprint(v.Int)
	case v.Type.IsFloating():
		return fmt.Sprint(v.Float)
	case v.Type.IsString():
		return fmt.Sprintf("%q", v.Str)
	case v.Type == JSON:
		return string(v.Bytes)
	default:
		return fmt.Sprintf("%s[%d bytes]", v.Type, len(v.Bytes))
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
