package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidField is returned when a field definition is inconsistent.
	ErrInvalidField = errors.New("invalid field")
	// ErrDuplicateField is returned when two fields share an id or name.
	ErrDuplicateField = errors.New("duplicate field")
)

// Field describes one column.
type Field struct {
	ID       FieldID
	Name     string
	DataType DataType
	// ElementType is the element type of Array fields.
	ElementType DataType
	// Dim is the vector dimension. Binary vectors count bits.
	Dim          int
	Nullable     bool
	DefaultValue *Value
	IsPrimaryKey bool
	// IsDynamic marks the JSON side-channel holding keys outside the schema.
	IsDynamic bool
}

// RowSize returns the byte stride of one row, or 0 for variable-length fields.
func (f Field) RowSize() int {
	return f.DataType.RowSize(f.Dim)
}

// Validate checks the field definition.
func (f Field) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w %d (%s): %s", ErrInvalidField, f.ID, f.Name, fmt.Sprintf(format, args...))
	}

	if !f.DataType.Valid() {
		return invalid("unknown data type %s", f.DataType)
	}
	if f.DataType.IsVector() && f.DataType != SparseFloatVector && f.Dim <= 0 {
		return invalid("vector field needs a positive dimension")
	}
	if f.DataType == BinaryVector && f.Dim%8 != 0 {
		return invalid("binary vector dimension %d is not a multiple of 8", f.Dim)
	}
	if f.DataType == Array && (!f.ElementType.Valid() || f.ElementType.IsVector() || f.ElementType == Array) {
		return invalid("array element type %s not supported", f.ElementType)
	}
	if f.IsPrimaryKey {
		if f.DataType != Int64 && f.DataType != VarChar {
			return invalid("primary key must be Int64 or VarChar, got %s", f.DataType)
		}
		if f.Nullable {
			return invalid("primary key cannot be nullable")
		}
	}
	if f.IsDynamic && f.DataType != JSON {
		return invalid("dynamic field must be JSON")
	}
	if f.DefaultValue != nil {
		if f.DataType.IsVector() {
			return invalid("vector fields have no default value")
		}
		if !f.DefaultValue.Compatible(f.DataType) {
			return invalid("default value of type %s does not match %s", f.DefaultValue.Type, f.DataType)
		}
	}
	return nil
}

// Schema is an immutable ordered set of fields.
type Schema struct {
	fields  []Field
	byID    map[FieldID]int
	pk      int
	dynamic int
}

// New validates fields and builds a Schema. System fields are added
// implicitly and must not be passed.
func New(fields ...Field) (*Schema, error) {
	s := &Schema{
		byID:    make(map[FieldID]int, len(fields)+2),
		pk:      -1,
		dynamic: -1,
	}
	names := make(map[string]struct{}, len(fields))

	all := append([]Field{
		{ID: RowIDField, Name: "RowID", DataType: Int64},
		{ID: TimestampField, Name: "Timestamp", DataType: Int64},
	}, fields...)

	for i, f := range all {
		if i >= 2 && f.ID < StartUserFieldID {
			return nil, fmt.Errorf("%w %d (%s): id below %d is reserved", ErrInvalidField, f.ID, f.Name, StartUserFieldID)
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if _, ok := s.byID[f.ID]; ok {
			return nil, fmt.Errorf("%w: id %d", ErrDuplicateField, f.ID)
		}
		if _, ok := names[f.Name]; ok {
			return nil, fmt.Errorf("%w: name %q", ErrDuplicateField, f.Name)
		}
		if f.IsPrimaryKey {
			if s.pk >= 0 {
				return nil, fmt.Errorf("%w: more than one primary key", ErrInvalidField)
			}
			s.pk = i
		}
		if f.IsDynamic {
			if s.dynamic >= 0 {
				return nil, fmt.Errorf("%w: more than one dynamic field", ErrInvalidField)
			}
			s.dynamic = i
		}
		names[f.Name] = struct{}{}
		s.byID[f.ID] = i
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustNew is like New but panics on error.
func MustNew(fields ...Field) *Schema {
	s, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Field returns the field with the given id.
func (s *Schema) Field(id FieldID) (Field, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Ordinal returns the position of the field in schema order.
func (s *Schema) Ordinal(id FieldID) (int, bool) {
	i, ok := s.byID[id]
	return i, ok
}

// Fields returns a copy of all fields, system fields first.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of fields including system fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// PrimaryKey returns the primary key field.
func (s *Schema) PrimaryKey() (Field, bool) {
	if s.pk < 0 {
		return Field{}, false
	}
	return s.fields[s.pk], true
}

// DynamicField returns the dynamic JSON field.
func (s *Schema) DynamicField() (Field, bool) {
	if s.dynamic < 0 {
		return Field{}, false
	}
	return s.fields[s.dynamic], true
}
