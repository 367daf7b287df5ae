// Package flat provides an exhaustive vector index that keeps raw vectors.
package flat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/internal/searcher"
	"github.com/hupe1980/segcore/model"
)

// ErrDimensionMismatch is returned when vector data does not fit the dimension.
var ErrDimensionMismatch = errors.New("flat: dimension mismatch")

// Index scans every stored vector.
type Index struct {
	dim     int
	metric  distance.Metric
	fn      distance.Func
	vectors []float32
}

// New creates an index over vectors, a flattened rows*dim slice. The slice is
// retained.
func New(dim int, m distance.Metric, vectors []float32) (*Index, error) {
	if dim <= 0 || len(vectors)%dim != 0 {
		return nil, fmt.Errorf("%w: %d values for dim %d", ErrDimensionMismatch, len(vectors), dim)
	}
	fn, err := distance.Provider(m)
	if err != nil {
		return nil, err
	}
	return &Index{dim: dim, metric: m, fn: fn, vectors: vectors}, nil
}

// Decode restores an index from Encode output.
func Decode(dim int, m distance.Metric, body []byte) (*Index, error) {
	if len(body)%4 != 0 {
		return nil, fmt.Errorf("%w: body of %d bytes", ErrDimensionMismatch, len(body))
	}
	vectors := make([]float32, len(body)/4)
	for i := range vectors {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:]))
	}
	return New(dim, m, vectors)
}

// Encode serializes the stored vectors.
func (x *Index) Encode() []byte {
	out, _ := binary.Append(make([]byte, 0, 4*len(x.vectors)), binary.LittleEndian, x.vectors)
	return out
}

func (x *Index) Kind() string { return "FLAT" }
func (x *Index) Metric() distance.Metric { return x.metric }
func (x *Index) Dim() int { return x.dim }
func (x *Index) Rows() int64 { return int64(len(x.vectors) / x.dim) }
func (x *Index) HasRawData() bool { return true }
func (x *Index) MemSize() int64 { return int64(4 * len(x.vectors)) }
func (x *Index) Vector(off int64) []float32 { return x.vectors[off*int64(x.dim) : (off+1)*int64(x.dim)] }

// Search scores every admitted row.
func (x *Index) Search(query []float32, p searcher.Params) ([]model.Candidate, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d values, index dim %d", ErrDimensionMismatch, len(query), x.dim)
	}
	c := searcher.NewCollector(&p, x.metric)
	n := x.Rows()
	for off := int64(0); off < n; off++ {
		if !p.Admits(off) {
			continue
		}
		c.Offer(off, x.fn(query, x.Vector(off)))
	}
	return c.Results(), nil
}
