package segcore

import (
	"github.com/hupe1980/segcore/internal/column"
	"github.com/hupe1980/segcore/model"
	"github.com/hupe1980/segcore/schema"
)

// FieldData is decoded data of one field, as held by a binlog.
type FieldData = column.FieldData

// Column is the typed result of a bulk retrieval. Variable length rows are
// views into segment memory and stay valid until the field is dropped.
type Column = column.Column

// FieldBinlog describes where the data of one field lives.
type FieldBinlog struct {
	FieldID schema.FieldID
	// RowCount is the number of rows the field holds in this segment.
	RowCount int64
	// Paths lists binlog files in row order. An empty list with a nil Data
	// loads only default values.
	Paths []string
	// Data carries already decoded rows instead of Paths.
	Data *FieldData
}

// Encoded reports whether the field is read from binlog files.
func (f FieldBinlog) Encoded() bool { return f.Data == nil }

// LoadFieldDataInfo is a request to load field data.
type LoadFieldDataInfo struct {
	Fields []FieldBinlog
}

// LoadIndexInfo is a request to load the persisted index of one field.
type LoadIndexInfo struct {
	FieldID      schema.FieldID
	IndexType    string
	BuildID      int64
	IndexVersion int64
	// Params holds serialized index parameters. metric_type is honored.
	Params map[string]string
	// Paths lists index file slices in order. When empty, every file under
	// the index path prefix of BuildID and IndexVersion is read.
	Paths []string
}

// LoadDeletedRecordInfo is a request to load tombstones.
type LoadDeletedRecordInfo struct {
	PrimaryKeys []model.PK
	Timestamps  []model.Timestamp
	// Paths lists delta log files read in addition to the batch above.
	Paths []string
	// RowCount is the expected number of tombstones; zero skips the check.
	RowCount int64
}

// SegmentMeta carries segment level statistics.
type SegmentMeta struct {
	RowCount int64
}
