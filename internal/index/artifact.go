package index

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/segcore/codec"
	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/internal/binlog"
	"github.com/hupe1980/segcore/internal/index/flat"
	"github.com/hupe1980/segcore/internal/index/ivf"
	"github.com/hupe1980/segcore/internal/index/scalar"
	"github.com/hupe1980/segcore/schema"
)

// Meta describes a persisted index.
type Meta struct {
	Kind     string          `json:"kind"`
	DataType schema.DataType `json:"data_type"`
	Dim      int             `json:"dim,omitempty"`
	Metric   string          `json:"metric,omitempty"`
	Rows     int64           `json:"rows"`
}

// Artifact is a decoded index artifact.
type Artifact struct {
	Meta Meta
	Body []byte
}

// Encode wraps meta and body into an index frame:
//
//	codec name len u8 | codec name | meta len u32 | meta | body
func Encode(meta Meta, body []byte, c binlog.Compression) ([]byte, error) {
	cd := codec.Default
	m, err := cd.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("index: encode meta: %w", err)
	}
	name := cd.Name()
	payload := make([]byte, 0, 1+len(name)+4+len(m)+len(body))
	payload = append(payload, byte(len(name)))
	payload = append(payload, name...)
	payload = binary.LittleEndian.AppendUint32(payload, uint32(len(m)))
	payload = append(payload, m...)
	payload = append(payload, body...)
	return binlog.Seal(binlog.KindIndex, c, payload)
}

// Decode opens an index frame. The body aliases the decompressed payload.
func Decode(frame []byte) (*Artifact, error) {
	payload, err := binlog.Open(binlog.KindIndex, frame)
	if err != nil {
		return nil, err
	}
	if len(payload) < 1 {
		return nil, fmt.Errorf("%w: empty payload", ErrCorruptArtifact)
	}
	n := int(payload[0])
	if len(payload) < 1+n+4 {
		return nil, fmt.Errorf("%w: short header", ErrCorruptArtifact)
	}
	cd, ok := codec.ByName(string(payload[1 : 1+n]))
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrCorruptArtifact, payload[1:1+n])
	}
	rest := payload[1+n:]
	m := int(binary.LittleEndian.Uint32(rest))
	rest = rest[4:]
	if len(rest) < m {
		return nil, fmt.Errorf("%w: meta needs %d bytes, have %d", ErrCorruptArtifact, m, len(rest))
	}

	a := &Artifact{Body: rest[m:]}
	if err := cd.Unmarshal(rest[:m], &a.Meta); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptArtifact, err)
	}
	return a, nil
}

// EncodeVector serializes a FLAT or IVF_FLAT index built for a field of type t.
func EncodeVector(x VectorIndex, t schema.DataType, c binlog.Compression) ([]byte, error) {
	meta := Meta{Kind: x.Kind(), DataType: t, Dim: x.Dim(), Metric: x.Metric().String(), Rows: x.Rows()}
	switch v := x.(type) {
	case *flat.Index:
		return Encode(meta, v.Encode(), c)
	case *ivf.Index:
		return Encode(meta, v.Encode(), c)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, x.Kind())
	}
}

// EncodeScalar serializes a SORTED index.
func EncodeScalar(x *scalar.Sorted, c binlog.Compression) ([]byte, error) {
	body, err := x.Encode()
	if err != nil {
		return nil, err
	}
	return Encode(Meta{Kind: KindSorted, DataType: x.DataType(), Rows: x.Rows()}, body, c)
}

// checkVector validates artifact metadata against a vector field and the
// requested metric.
func checkVector(field schema.Field, want distance.Metric, meta Meta) (distance.Metric, error) {
	if meta.Kind != KindFlat && meta.Kind != KindIVFFlat {
		return 0, &TypeMismatchError{Field: field.ID, What: "index kind", Want: "vector index", Got: meta.Kind}
	}
	if meta.DataType != field.DataType {
		return 0, &TypeMismatchError{Field: field.ID, What: "data type", Want: field.DataType.String(), Got: meta.DataType.String()}
	}
	if meta.Dim != field.Dim {
		return 0, &TypeMismatchError{Field: field.ID, What: "dim", Want: fmt.Sprint(field.Dim), Got: fmt.Sprint(meta.Dim)}
	}
	m, err := distance.ParseMetric(meta.Metric)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCorruptArtifact, err)
	}
	if m != want {
		return 0, &TypeMismatchError{Field: field.ID, What: "metric", Want: want.String(), Got: m.String()}
	}
	return m, nil
}

func decodeVector(meta Meta, m distance.Metric, body []byte) (VectorIndex, error) {
	var (
		x   VectorIndex
		err error
	)
	switch meta.Kind {
	case KindFlat:
		x, err = flat.Decode(meta.Dim, m, body)
	case KindIVFFlat:
		x, err = ivf.Decode(meta.Dim, m, body)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, meta.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptArtifact, err)
	}
	if x.Rows() != meta.Rows {
		return nil, fmt.Errorf("%w: meta says %d rows, body holds %d", ErrCorruptArtifact, meta.Rows, x.Rows())
	}
	return x, nil
}

func checkScalar(field schema.Field, meta Meta) error {
	if meta.Kind != KindSorted {
		return &TypeMismatchError{Field: field.ID, What: "index kind", Want: KindSorted, Got: meta.Kind}
	}
	if meta.DataType != field.DataType {
		return &TypeMismatchError{Field: field.ID, What: "data type", Want: field.DataType.String(), Got: meta.DataType.String()}
	}
	return nil
}
