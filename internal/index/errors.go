package index

import (
	"errors"
	"fmt"

	"github.com/hupe1980/segcore/schema"
)

var (
	// ErrTypeMismatch is the sentinel behind TypeMismatchError.
	ErrTypeMismatch = errors.New("index: type mismatch")
	// ErrUnsupportedKind is returned for unknown index kinds.
	ErrUnsupportedKind = errors.New("index: unsupported kind")
	// ErrAlreadyLoaded is returned when a field already has a persisted index.
	ErrAlreadyLoaded = errors.New("index: already loaded")
	// ErrLoadInProgress is returned when another load of the field is running.
	ErrLoadInProgress = errors.New("index: load in progress")
	// ErrCorruptArtifact is returned when an artifact cannot be parsed.
	ErrCorruptArtifact = errors.New("index: corrupt artifact")
)

// TypeMismatchError reports an artifact or request that disagrees with the schema.
type TypeMismatchError struct {
	Field schema.FieldID
	// What names the mismatching property, e.g. "dim" or "metric".
	What string
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field %d: %s mismatch: want %s, got %s", e.Field, e.What, e.Want, e.Got)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }
