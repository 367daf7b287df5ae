package segcore

import (
	"errors"

	"github.com/hupe1980/segcore/internal/index"
)

var (
	// ErrFieldNotFound is returned for a field id absent from the schema.
	ErrFieldNotFound = errors.New("segcore: field not found")
	// ErrMissingLoadInfo is returned when a load request lacks required metadata.
	ErrMissingLoadInfo = errors.New("segcore: missing load info")
	// ErrNoRawData is returned when neither raw data nor an index with raw data
	// can answer a read.
	ErrNoRawData = errors.New("segcore: no raw data")
	// ErrIndexNotReady is returned when a field has no index to serve a query
	// and no raw data to fall back on.
	ErrIndexNotReady = errors.New("segcore: index not ready")
	// ErrDropWithoutIndex is returned when raw vector data would be dropped
	// while no index can answer the field.
	ErrDropWithoutIndex = errors.New("segcore: field has no index to replace its raw data")
	// ErrRowIndexNotReady is returned by visibility operations before the
	// timestamp and primary key fields are loaded.
	ErrRowIndexNotReady = errors.New("segcore: timestamps or primary keys not loaded")
	// ErrRowCountMismatch is returned when loaded data disagrees with the
	// segment row count.
	ErrRowCountMismatch = errors.New("segcore: row count mismatch")
	// ErrInvalidK is returned when a search asks for no results.
	ErrInvalidK = errors.New("segcore: topk must be positive")
	// ErrClosed is returned by operations on a closed segment.
	ErrClosed = errors.New("segcore: segment closed")
)

// TypeMismatchError reports index or query metadata inconsistent with the
// schema. It matches ErrTypeMismatch.
type TypeMismatchError = index.TypeMismatchError

// ErrTypeMismatch is matched by every TypeMismatchError.
var ErrTypeMismatch = index.ErrTypeMismatch
