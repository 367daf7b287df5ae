package distance

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"slices"
	"strings"
)

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	MetricL2 Metric = iota
	MetricIP
	MetricCosine
	MetricHamming
	MetricJaccard
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricIP:
		return "IP"
	case MetricCosine:
		return "COSINE"
	case MetricHamming:
		return "HAMMING"
	case MetricJaccard:
		return "JACCARD"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ParseMetric parses a metric name (case-insensitive).
func ParseMetric(s string) (Metric, error) {
	switch strings.ToUpper(s) {
	case "L2":
		return MetricL2, nil
	case "IP":
		return MetricIP, nil
	case "COSINE":
		return MetricCosine, nil
	case "HAMMING":
		return MetricHamming, nil
	case "JACCARD":
		return MetricJaccard, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", s)
	}
}

// LargerIsCloser reports whether a larger score means a closer match.
func (m Metric) LargerIsCloser() bool {
	return m == MetricIP || m == MetricCosine
}

// Closer reports whether score a ranks strictly ahead of score b.
func (m Metric) Closer(a, b float32) bool {
	if m.LargerIsCloser() {
		return a > b
	}
	return a < b
}

// IsBinary reports whether the metric applies to binary vectors.
func (m Metric) IsBinary() bool {
	return m == MetricHamming || m == MetricJaccard
}

// Func is a function type for distance calculation on float32 vectors.
type Func func(a, b []float32) float32

// FuncBytes is a function type for distance calculation on packed binary vectors.
type FuncBytes func(a, b []byte) float32

// Provider returns the float32 distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return SquaredL2, nil
	case MetricIP:
		return Dot, nil
	case MetricCosine:
		return Cosine, nil
	default:
		return nil, fmt.Errorf("unsupported metric for float vectors: %v", m)
	}
}

// ProviderBytes returns the distance function for packed binary vectors.
func ProviderBytes(m Metric) (FuncBytes, error) {
	switch m {
	case MetricHamming:
		return Hamming, nil
	case MetricJaccard:
		return Jaccard, nil
	default:
		return nil, fmt.Errorf("unsupported metric for binary vectors: %v", m)
	}
}

// Dot calculates the dot product of two vectors of equal length.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// SquaredL2 calculates the squared Euclidean distance of two vectors of equal length.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Cosine returns the cosine similarity of a and b (0 when either has zero norm).
func Cosine(a, b []float32) float32 {
	na := Dot(a, a)
	nb := Dot(b, b)
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / float32(math.Sqrt(float64(na)*float64(nb)))
}

// Hamming returns the number of differing bits as a float32.
func Hamming(a, b []byte) float32 {
	n := 0
	for i := range a {
		n += bits.OnesCount8(a[i] ^ b[i])
	}
	return float32(n)
}

// Jaccard returns 1 - |a∩b| / |a∪b| over set bits.
func Jaccard(a, b []byte) float32 {
	inter, union := 0, 0
	for i := range a {
		inter += bits.OnesCount8(a[i] & b[i])
		union += bits.OnesCount8(a[i] | b[i])
	}
	if union == 0 {
		return 0
	}
	return 1 - float32(inter)/float32(union)
}

// Int8 computes the metric over int8 vectors widened to float32.
func Int8(m Metric, a, b []int8) (float32, error) {
	switch m {
	case MetricL2:
		var sum int64
		for i := range a {
			d := int64(a[i]) - int64(b[i])
			sum += d * d
		}
		return float32(sum), nil
	case MetricIP:
		var sum int64
		for i := range a {
			sum += int64(a[i]) * int64(b[i])
		}
		return float32(sum), nil
	case MetricCosine:
		var dot, na, nb int64
		for i := range a {
			dot += int64(a[i]) * int64(b[i])
			na += int64(a[i]) * int64(a[i])
			nb += int64(b[i]) * int64(b[i])
		}
		if na == 0 || nb == 0 {
			return 0, nil
		}
		return float32(float64(dot) / math.Sqrt(float64(na)*float64(nb))), nil
	default:
		return 0, fmt.Errorf("unsupported metric for int8 vectors: %v", m)
	}
}

// SparseDot computes the inner product of two encoded sparse rows.
// A row is a sequence of (uint32 index, float32 value) little-endian pairs
// sorted by index.
func SparseDot(a, b []byte) float32 {
	var sum float32
	i, j := 0, 0
	for i+8 <= len(a) && j+8 <= len(b) {
		ia := binary.LittleEndian.Uint32(a[i:])
		ib := binary.LittleEndian.Uint32(b[j:])
		switch {
		case ia == ib:
			va := math.Float32frombits(binary.LittleEndian.Uint32(a[i+4:]))
			vb := math.Float32frombits(binary.LittleEndian.Uint32(b[j+4:]))
			sum += va * vb
			i += 8
			j += 8
		case ia < ib:
			i += 8
		default:
			j += 8
		}
	}
	return sum
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := Dot(v, v)
	if norm2 == 0 {
		return false
	}
	inv := float32(1 / math.Sqrt(float64(norm2)))
	for i := range v {
		v[i] *= inv
	}
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}
