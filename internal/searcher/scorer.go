package searcher

import (
	"errors"
	"fmt"

	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/internal/f16"
	"github.com/hupe1980/segcore/schema"
)

// ErrMetricMismatch is returned when a metric does not apply to a vector type.
var ErrMetricMismatch = errors.New("metric not supported for vector type")

// RowScorer scores one encoded row against a prepared query.
type RowScorer func(row []byte) float32

// Scorer scores encoded rows of one vector type under one metric.
type Scorer struct {
	typ    schema.DataType
	dim    int
	metric distance.Metric
}

// NewScorer validates the metric against the vector type.
func NewScorer(t schema.DataType, dim int, m distance.Metric) (*Scorer, error) {
	ok := false
	switch t {
	case schema.FloatVector, schema.Float16Vector, schema.BFloat16Vector, schema.Int8Vector:
		ok = m == distance.MetricL2 || m == distance.MetricIP || m == distance.MetricCosine
	case schema.BinaryVector:
		ok = m.IsBinary()
	case schema.SparseFloatVector:
		ok = m == distance.MetricIP
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s with %s", ErrMetricMismatch, t, m)
	}
	return &Scorer{typ: t, dim: dim, metric: m}, nil
}

// Metric returns the scorer's metric.
func (s *Scorer) Metric() distance.Metric { return s.metric }

// DecodeFloat decodes a dense float-like row into dst, which must have dim entries.
func DecodeFloat(t schema.DataType, dst []float32, row []byte) {
	switch t {
	case schema.FloatVector:
		schema.DecodeFloatVector(dst, row)
	case schema.Float16Vector:
		f16.DecodeFloat16(dst, row)
	case schema.BFloat16Vector:
		f16.DecodeBFloat16(dst, row)
	}
}

// Prepare decodes a query once and returns a function scoring rows against it.
// The returned function is not safe for concurrent use.
func (s *Scorer) Prepare(query []byte) (RowScorer, error) {
	if size := s.typ.RowSize(s.dim); size > 0 && len(query) != size {
		return nil, fmt.Errorf("query has %d bytes, %s dim %d needs %d", len(query), s.typ, s.dim, size)
	}

	switch s.typ {
	case schema.FloatVector, schema.Float16Vector, schema.BFloat16Vector:
		fn, err := distance.Provider(s.metric)
		if err != nil {
			return nil, err
		}
		q := make([]float32, s.dim)
		DecodeFloat(s.typ, q, query)
		scratch := make([]float32, s.dim)
		return func(row []byte) float32 {
			DecodeFloat(s.typ, scratch, row)
			return fn(q, scratch)
		}, nil
	case schema.Int8Vector:
		q := asInt8(query)
		return func(row []byte) float32 {
			d, _ := distance.Int8(s.metric, q, asInt8(row))
			return d
		}, nil
	case schema.BinaryVector:
		fn, err := distance.ProviderBytes(s.metric)
		if err != nil {
			return nil, err
		}
		return func(row []byte) float32 { return fn(query, row) }, nil
	case schema.SparseFloatVector:
		if _, _, err := schema.DecodeSparse(query); err != nil {
			return nil, err
		}
		return func(row []byte) float32 { return distance.SparseDot(query, row) }, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrMetricMismatch, s.typ)
	}
}

func asInt8(b []byte) []int8 {
	out := make([]int8, len(b))
	for i, v := range b {
		out[i] = int8(v)
	}
	return out
}
