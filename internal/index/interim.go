package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/internal/column"
	"github.com/hupe1980/segcore/internal/index/flat"
	"github.com/hupe1980/segcore/internal/index/ivf"
	"github.com/hupe1980/segcore/internal/searcher"
)

var (
	_ VectorIndex = (*flat.Index)(nil)
	_ VectorIndex = (*ivf.Index)(nil)
)

// ErrTooFewRows is returned when a column is too small for an interim index.
var ErrTooFewRows = errors.New("index: too few rows for interim index")

// InterimConfig controls interim IVF_FLAT builds.
type InterimConfig struct {
	NList   int
	NProbe  int
	MinRows int64
	MaxIter int
	Seed    uint64
}

// DecodeVectors decodes every row of a dense float vector column into one
// flattened slice. Null rows decode to zero vectors.
func DecodeVectors(col *column.ChunkedColumn) ([]float32, error) {
	field := col.Field()
	if !Indexable(field.DataType) {
		return nil, &TypeMismatchError{Field: field.ID, What: "data type", Want: "dense float vector", Got: field.DataType.String()}
	}
	dim := field.Dim
	out := make([]float32, col.Rows()*int64(dim))
	var off int64
	for i := 0; i < col.ChunkCount(); i++ {
		c := col.Chunk(i)
		for j := 0; j < c.Rows(); j++ {
			if c.IsValid(j) {
				searcher.DecodeFloat(field.DataType, out[off*int64(dim):(off+1)*int64(dim)], c.Row(j))
			}
			off++
		}
	}
	return out, nil
}

// BuildInterim trains an IVF_FLAT index over the raw vectors of col.
func BuildInterim(ctx context.Context, col *column.ChunkedColumn, m distance.Metric, cfg InterimConfig) (VectorIndex, error) {
	if rows := col.Rows(); rows < max(cfg.MinRows, 1) {
		return nil, fmt.Errorf("%w: %d < %d", ErrTooFewRows, rows, cfg.MinRows)
	}
	vectors, err := DecodeVectors(col)
	if err != nil {
		return nil, err
	}
	return ivf.Build(ctx, vectors, col.Field().Dim, ivf.Config{
		NList:   cfg.NList,
		NProbe:  cfg.NProbe,
		MaxIter: cfg.MaxIter,
		Seed:    cfg.Seed,
		Metric:  m,
	})
}
