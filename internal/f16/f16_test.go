package f16

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat16Widen(t *testing.T) {
	tests := []struct {
		name string
		in   Float16
		want float32
	}{
		{"zero", 0x0000, 0},
		{"neg_zero", 0x8000, float32(math.Copysign(0, -1))},
		{"one", 0x3c00, 1},
		{"neg_one", 0xbc00, -1},
		{"max", 0x7bff, 65504},
		{"min_normal", 0x0400, float32(math.Ldexp(1, -14))},
		{"min_subnormal", 0x0001, float32(math.Ldexp(1, -24))},
		{"inf", 0x7c00, float32(math.Inf(1))},
		{"neg_inf", 0xfc00, float32(math.Inf(-1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, math.Float32bits(tt.want), math.Float32bits(tt.in.Float32()))
		})
	}
	assert.True(t, math.IsNaN(float64(Float16(0x7e00).Float32())))
}

func TestFloat16Narrow(t *testing.T) {
	step := float32(math.Ldexp(1, -10))
	tests := []struct {
		name string
		in   float32
		want Float16
	}{
		{"zero", 0, 0x0000},
		{"neg_zero", float32(math.Copysign(0, -1)), 0x8000},
		{"inf", float32(math.Inf(1)), 0x7c00},
		{"neg_inf", float32(math.Inf(-1)), 0xfc00},
		{"nan", float32(math.NaN()), 0x7e00},
		{"overflow", 70000, 0x7c00},
		{"rounds_to_inf", 65520, 0x7c00},
		{"max", 65504, 0x7bff},
		{"tie_to_even_down", 1 + step/2, 0x3c00},
		{"tie_to_even_up", 1 + step + step/2, 0x3c02},
		{"subnormal", float32(math.Ldexp(3, -24)), 0x0003},
		{"underflow", float32(math.Ldexp(1, -26)), 0x0000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewFloat16(tt.in), "%04x", uint16(NewFloat16(tt.in)))
		})
	}
}

func TestFloat16PowersOfTwo(t *testing.T) {
	for e := -24; e <= 15; e++ {
		f := float32(math.Ldexp(1, e))
		require.Equal(t, f, NewFloat16(f).Float32(), "2^%d", e)
	}
}

func TestRows(t *testing.T) {
	src := []float32{0, 1, -2, 0.5, 3.140625}

	row := AppendFloat16(nil, src)
	require.Len(t, row, 2*len(src))
	got := make([]float32, len(src))
	DecodeFloat16(got, row)
	assert.Equal(t, src, got)

	row = AppendBFloat16(nil, src)
	require.Len(t, row, 2*len(src))
	DecodeBFloat16(got, row)
	assert.Equal(t, src, got)
}

func TestBFloat16Narrow(t *testing.T) {
	// 1 + 2^-8 sits halfway between 1 and the next bfloat16.
	assert.Equal(t, BFloat16(0x3f80), NewBFloat16(float32(1+math.Ldexp(1, -8))))
	assert.Equal(t, BFloat16(0x3f82), NewBFloat16(float32(1+3*math.Ldexp(1, -8))))
	assert.True(t, math.IsNaN(float64(NewBFloat16(float32(math.NaN())).Float32())))
}
