// Package ivf implements IVF_FLAT: a coarse k-means quantizer over inverted
// lists of raw vectors.
//
// Probing every list returns exactly the results of an exhaustive scan. A
// probe depth of zero means every list, so an index built with the default
// depth answers like brute force.
package ivf

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/internal/kmeans"
	"github.com/hupe1980/segcore/internal/searcher"
	"github.com/hupe1980/segcore/model"
)

var (
	// ErrDimensionMismatch is returned when vectors do not fit the dimension.
	ErrDimensionMismatch = errors.New("ivf: dimension mismatch")
	// ErrCorrupt is returned when an encoded index cannot be decoded.
	ErrCorrupt = errors.New("ivf: corrupt index")
)

// Config controls training.
type Config struct {
	NList   int
	NProbe  int
	MaxIter int
	Seed    uint64
	Metric  distance.Metric
}

// Index is an IVF_FLAT index.
type Index struct {
	dim       int
	metric    distance.Metric
	fn        distance.Func
	nprobe    int
	centroids []float32
	lists     [][]uint32
	vectors   []float32
}

// Build trains centroids on vectors (rows*dim values) and fills the lists.
// NList is capped at the row count.
func Build(ctx context.Context, vectors []float32, dim int, cfg Config) (*Index, error) {
	if dim <= 0 || len(vectors)%dim != 0 {
		return nil, fmt.Errorf("%w: %d values for dim %d", ErrDimensionMismatch, len(vectors), dim)
	}
	rows := len(vectors) / dim
	nlist := min(max(cfg.NList, 1), rows)
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 25
	}

	centroids, err := kmeans.Train(ctx, vectors, dim, kmeans.Config{
		K:       nlist,
		MaxIter: cfg.MaxIter,
		Metric:  cfg.Metric,
		Seed:    cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("ivf: train: %w", err)
	}

	x, err := newIndex(dim, cfg.Metric, cfg.NProbe, centroids, vectors)
	if err != nil {
		return nil, err
	}
	x.lists = make([][]uint32, nlist)
	for off := 0; off < rows; off++ {
		if off%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		l, err := kmeans.Assign(vectors[off*dim:(off+1)*dim], centroids, dim, cfg.Metric)
		if err != nil {
			return nil, err
		}
		x.lists[l] = append(x.lists[l], uint32(off))
	}
	return x, nil
}

func newIndex(dim int, m distance.Metric, nprobe int, centroids, vectors []float32) (*Index, error) {
	fn, err := distance.Provider(m)
	if err != nil {
		return nil, err
	}
	return &Index{dim: dim, metric: m, fn: fn, nprobe: nprobe, centroids: centroids, vectors: vectors}, nil
}

func (x *Index) Kind() string { return "IVF_FLAT" }

func (x *Index) Metric() distance.Metric { return x.metric }

func (x *Index) Dim() int { return x.dim }

func (x *Index) Rows() int64 { return int64(len(x.vectors) / x.dim) }

// NList returns the number of inverted lists.
func (x *Index) NList() int { return len(x.lists) }

// NProbe returns the default probe depth. Zero means every list.
func (x *Index) NProbe() int { return x.nprobe }

func (x *Index) HasRawData() bool { return true }

func (x *Index) MemSize() int64 {
	n := int64(4 * (len(x.vectors) + len(x.centroids)))
	for _, l := range x.lists {
		n += int64(4 * len(l))
	}
	return n
}

// Vector returns the stored vector of a row.
func (x *Index) Vector(off int64) []float32 {
	return x.vectors[off*int64(x.dim) : (off+1)*int64(x.dim)]
}

// Search visits the p.NProbe lists closest to query, falling back to the
// index default.
func (x *Index) Search(query []float32, p searcher.Params) ([]model.Candidate, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d values, index dim %d", ErrDimensionMismatch, len(query), x.dim)
	}
	nprobe := p.NProbe
	if nprobe <= 0 {
		nprobe = x.nprobe
	}
	if nprobe <= 0 {
		nprobe = len(x.lists)
	}
	probe, err := kmeans.Nearest(query, x.centroids, x.dim, nprobe, x.metric)
	if err != nil {
		return nil, err
	}

	c := searcher.NewCollector(&p, x.metric)
	for _, l := range probe {
		for _, off := range x.lists[l] {
			if !p.Admits(int64(off)) {
				continue
			}
			c.Offer(int64(off), x.fn(query, x.Vector(int64(off))))
		}
	}
	return c.Results(), nil
}

// Encode serializes the index:
//
//	nlist u32 | nprobe u32 | centroids f32[nlist*dim] | (len u32, offsets u32[len])*nlist | vectors f32[]
func (x *Index) Encode() []byte {
	buf := make([]byte, 0, x.MemSize()+int64(8+4*len(x.lists)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(x.lists)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(x.nprobe))
	buf, _ = binary.Append(buf, binary.LittleEndian, x.centroids)
	for _, l := range x.lists {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(l)))
		buf, _ = binary.Append(buf, binary.LittleEndian, l)
	}
	buf, _ = binary.Append(buf, binary.LittleEndian, x.vectors)
	return buf
}

type reader struct {
	buf []byte
	err error
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	if len(r.buf) < 4 {
		r.err = fmt.Errorf("%w: unexpected end of data", ErrCorrupt)
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf)
	r.buf = r.buf[4:]
	return v
}

func (r *reader) floats(n int) []float32 {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf) < 4*n {
		r.err = fmt.Errorf("%w: need %d floats, have %d bytes", ErrCorrupt, n, len(r.buf))
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(r.buf[4*i:]))
	}
	r.buf = r.buf[4*n:]
	return out
}

// Decode restores an index from Encode output.
func Decode(dim int, m distance.Metric, body []byte) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dim %d", ErrDimensionMismatch, dim)
	}
	r := &reader{buf: body}
	nlist := int(r.u32())
	nprobe := int(r.u32())
	centroids := r.floats(nlist * dim)
	lists := make([][]uint32, 0, nlist)
	for i := 0; i < nlist && r.err == nil; i++ {
		n := int(r.u32())
		if r.err == nil && len(r.buf) < 4*n {
			r.err = fmt.Errorf("%w: list %d needs %d offsets", ErrCorrupt, i, n)
			break
		}
		l := make([]uint32, n)
		for j := range l {
			l[j] = r.u32()
		}
		lists = append(lists, l)
	}
	if r.err != nil {
		return nil, r.err
	}
	if len(r.buf)%(4*dim) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes for dim %d", ErrCorrupt, len(r.buf), dim)
	}
	vectors := r.floats(len(r.buf) / 4)

	rows := uint32(len(vectors) / dim)
	for _, l := range lists {
		for _, off := range l {
			if off >= rows {
				return nil, fmt.Errorf("%w: offset %d beyond %d rows", ErrCorrupt, off, rows)
			}
		}
	}

	x, err := newIndex(dim, m, nprobe, centroids, vectors)
	if err != nil {
		return nil, err
	}
	x.lists = lists
	return x, nil
}
