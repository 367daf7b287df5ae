package column

import "errors"

var (
	// ErrNotLoaded is returned when a field has no loaded data.
	ErrNotLoaded = errors.New("field data not loaded")
	// ErrAlreadyLoaded is returned when loading a field that is already loaded.
	ErrAlreadyLoaded = errors.New("field data already loaded")
	// ErrLoadInProgress is returned when another load of the field is running.
	ErrLoadInProgress = errors.New("field data load in progress")
	// ErrOffsetOutOfRange is returned for offsets outside the column.
	ErrOffsetOutOfRange = errors.New("offset out of range")
	// ErrChunkOutOfRange is returned for unknown chunk ids.
	ErrChunkOutOfRange = errors.New("chunk out of range")
	// ErrInvalidData is returned when field data buffers are inconsistent.
	ErrInvalidData = errors.New("invalid field data")
	// ErrRowCountMismatch is returned when data has more rows than the segment.
	ErrRowCountMismatch = errors.New("row count mismatch")
	// ErrUnsupportedType is returned when an operation does not apply to a type.
	ErrUnsupportedType = errors.New("unsupported data type")
)
