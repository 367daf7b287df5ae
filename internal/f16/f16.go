// Package f16 converts FLOAT16 and BFLOAT16 vector rows to and from float32.
//
// Half-precision rows are little-endian 16-bit patterns. Distances are always
// computed on the widened float32 values.
package f16

import (
	"encoding/binary"
	"math"
)

// Float16 is an IEEE 754 binary16 bit pattern.
type Float16 uint16

// NewFloat16 narrows f with round-to-nearest-even. Values past the largest
// finite half overflow to infinity and every NaN becomes the quiet NaN 0x7e00.
func NewFloat16(f float32) Float16 {
	const (
		f32Inf   = 0xff << 23
		overflow = (127 + 16) << 23
		minNorm  = (127 - 14) << 23
		// 0.5 has a float32 ulp equal to the smallest half subnormal.
		denorm = (127 - 1) << 23
	)
	b := math.Float32bits(f)
	sign := uint16(b>>16) & 0x8000
	b &^= 1 << 31

	switch {
	case b >= overflow:
		if b > f32Inf {
			return Float16(sign | 0x7e00)
		}
		return Float16(sign | 0x7c00)
	case b < minNorm:
		v := math.Float32bits(math.Float32frombits(b) + math.Float32frombits(denorm))
		return Float16(sign | uint16(v-denorm))
	default:
		odd := (b >> 13) & 1
		b -= (127 - 15) << 23
		b += 0xfff + odd
		return Float16(sign | uint16(b>>13))
	}
}

// Float32 widens h exactly.
func (h Float16) Float32() float32 {
	const (
		exp    = 0x7c00 << 13
		minPos = (127 - 14) << 23
	)
	b := uint32(h&0x7fff) << 13
	e := b & exp
	b += (127 - 15) << 23
	switch e {
	case exp:
		b += (128 - 16) << 23
	case 0:
		b += 1 << 23
		b = math.Float32bits(math.Float32frombits(b) - math.Float32frombits(minPos))
	}
	return math.Float32frombits(b | uint32(h&0x8000)<<16)
}

// BFloat16 is the upper half of a float32.
type BFloat16 uint16

// NewBFloat16 narrows f with round-to-nearest-even and keeps NaN quiet.
func NewBFloat16(f float32) BFloat16 {
	b := math.Float32bits(f)
	if b&0x7fffffff > 0x7f800000 {
		return BFloat16(b>>16) | 0x0040
	}
	b += 0x7fff + (b>>16)&1
	return BFloat16(b >> 16)
}

func (h BFloat16) Float32() float32 { return math.Float32frombits(uint32(h) << 16) }

// DecodeFloat16 widens len(dst) FLOAT16 values from src.
func DecodeFloat16(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = Float16(binary.LittleEndian.Uint16(src[2*i:])).Float32()
	}
}

// DecodeBFloat16 widens len(dst) BFLOAT16 values from src.
func DecodeBFloat16(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = BFloat16(binary.LittleEndian.Uint16(src[2*i:])).Float32()
	}
}

func AppendFloat16(dst []byte, src []float32) []byte {
	for _, v := range src {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(NewFloat16(v)))
	}
	return dst
}

func AppendBFloat16(dst []byte, src []float32) []byte {
	for _, v := range src {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(NewBFloat16(v)))
	}
	return dst
}
