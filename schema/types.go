package schema

import "fmt"

// FieldID identifies a column within a collection.
type FieldID int64

const (
	// RowIDField is the system column holding row ids.
	RowIDField FieldID = 0
	// TimestampField is the system column holding insertion timestamps.
	TimestampField FieldID = 1
	// StartUserFieldID is the smallest id a user field may have.
	StartUserFieldID FieldID = 100
)

// IsSystem reports whether id is a system column.
func (id FieldID) IsSystem() bool {
	return id == RowIDField || id == TimestampField
}

// DataType is the closed set of column types.
type DataType int32

const (
	None DataType = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Float
	Double
	String
	VarChar
	Array
	JSON
	BinaryVector
	FloatVector
	Float16Vector
	BFloat16Vector
	SparseFloatVector
	Int8Vector
)

var dataTypeNames = [...]string{
	None:              "None",
	Bool:              "Bool",
	Int8:              "Int8",
	Int16:             "Int16",
	Int32:             "Int32",
	Int64:             "Int64",
	Float:             "Float",
	Double:            "Double",
	String:            "String",
	VarChar:           "VarChar",
	Array:             "Array",
	JSON:              "JSON",
	BinaryVector:      "BinaryVector",
	FloatVector:       "FloatVector",
	Float16Vector:     "Float16Vector",
	BFloat16Vector:    "BFloat16Vector",
	SparseFloatVector: "SparseFloatVector",
	Int8Vector:        "Int8Vector",
}

func (t DataType) String() string {
	if t >= 0 && int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}
	return fmt.Sprintf("DataType(%d)", int32(t))
}

// Valid reports whether t is a member of the closed set (None excluded).
func (t DataType) Valid() bool {
	return t > None && t <= Int8Vector
}

// IsVector reports whether t is a dense or sparse vector type.
func (t DataType) IsVector() bool {
	switch t {
	case BinaryVector, FloatVector, Float16Vector, BFloat16Vector, SparseFloatVector, Int8Vector:
		return true
	}
	return false
}

// IsDenseFloat reports whether rows decode to float32 vectors.
func (t DataType) IsDenseFloat() bool {
	return t == FloatVector || t == Float16Vector || t == BFloat16Vector
}

// IsVariableLength reports whether rows have no fixed stride.
func (t DataType) IsVariableLength() bool {
	switch t {
	case String, VarChar, Array, JSON, SparseFloatVector:
		return true
	}
	return false
}

// IsString reports whether t holds UTF-8 text.
func (t DataType) IsString() bool {
	return t == String || t == VarChar
}

// IsInteger reports whether t is a signed integer type.
func (t DataType) IsInteger() bool {
	switch t {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

// IsFloating reports whether t is a scalar floating point type.
func (t DataType) IsFloating() bool {
	return t == Float || t == Double
}

// RowSize returns the byte stride of one row, or 0 for variable-length types.
func (t DataType) RowSize(dim int) int {
	switch t {
	case Bool, Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float:
		return 4
	case Int64, Double:
		return 8
	case FloatVector:
		return 4 * dim
	case Float16Vector, BFloat16Vector:
		return 2 * dim
	case BinaryVector:
		return dim / 8
	case Int8Vector:
		return dim
	default:
		return 0
	}
}
