package schema

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"
)

// ErrInvalidSparseRow is returned for malformed sparse vector rows.
var ErrInvalidSparseRow = errors.New("invalid sparse vector row")

const sparsePairSize = 8

// EncodeSparse encodes a sparse vector row sorted by index.
// indices and values must have equal length.
func EncodeSparse(indices []uint32, values []float32) []byte {
	order := make([]int, len(indices))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return indices[order[a]] < indices[order[b]] })

	out := make([]byte, 0, len(indices)*sparsePairSize)
	for _, i := range order {
		out = binary.LittleEndian.AppendUint32(out, indices[i])
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(values[i]))
	}
	return out
}

// DecodeSparse splits a sparse row into indices and values.
func DecodeSparse(row []byte) ([]uint32, []float32, error) {
	if len(row)%sparsePairSize != 0 {
		return nil, nil, ErrInvalidSparseRow
	}
	n := len(row) / sparsePairSize
	indices := make([]uint32, n)
	values := make([]float32, n)
	for i := 0; i < n; i++ {
		indices[i] = binary.LittleEndian.Uint32(row[i*sparsePairSize:])
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(row[i*sparsePairSize+4:]))
	}
	return indices, values, nil
}

// SparseDim returns one past the largest index in a sparse row.
func SparseDim(row []byte) int {
	if len(row) < sparsePairSize {
		return 0
	}
	return int(binary.LittleEndian.Uint32(row[len(row)-sparsePairSize:])) + 1
}

// EncodeFloatVector encodes a dense float32 vector row.
func EncodeFloatVector(v []float32) []byte {
	out := make([]byte, 0, 4*len(v))
	for _, f := range v {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	return out
}

// DecodeFloatVector decodes len(dst) float32 values from a FloatVector row.
func DecodeFloatVector(dst []float32, row []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(row[4*i:]))
	}
}
