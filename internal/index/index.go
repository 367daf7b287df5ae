package index

import (
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/internal/searcher"
	"github.com/hupe1980/segcore/model"
	"github.com/hupe1980/segcore/schema"
)

// Index kinds.
const (
	KindFlat    = "FLAT"
	KindIVFFlat = "IVF_FLAT"
	KindSorted  = "SORTED"
)

// State is the index state of one field.
type State int32

const (
	NoIndex State = iota
	Loading
	InterimReady
	Ready
)

func (s State) String() string {
	switch s {
	case NoIndex:
		return "NoIndex"
	case Loading:
		return "Loading"
	case InterimReady:
		return "InterimReady"
	case Ready:
		return "Ready"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// VectorIndex answers k-nearest-neighbor queries over float vectors.
type VectorIndex interface {
	Kind() string
	Metric() distance.Metric
	Dim() int
	Rows() int64
	// HasRawData reports whether Vector can reconstruct stored vectors.
	HasRawData() bool
	Vector(off int64) []float32
	Search(query []float32, p searcher.Params) ([]model.Candidate, error)
	MemSize() int64
}

// ScalarIndex answers term and range predicates over a scalar field.
type ScalarIndex interface {
	Kind() string
	DataType() schema.DataType
	Rows() int64
	HasRawData() bool
	MemSize() int64
	Reverse(off int64) (schema.Value, bool)
	In(values ...schema.Value) *roaring.Bitmap
	NotIn(values ...schema.Value) *roaring.Bitmap
	Range(lo *schema.Value, loInclusive bool, hi *schema.Value, hiInclusive bool) *roaring.Bitmap
	Nulls() *roaring.Bitmap
}

// Indexable reports whether vector indexes can be built over t.
func Indexable(t schema.DataType) bool {
	return t.IsDenseFloat()
}
