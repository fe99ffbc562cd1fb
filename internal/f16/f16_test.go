package f16

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToFloat32KnownValues(t *testing.T) {
	tests := []struct {
		name string
		in   Bits
		want float32
	}{
		{"zero", 0x0000, 0},
		{"one", One, 1},
		{"minus one", 0xBC00, -1},
		{"half", 0x3800, 0.5},
		{"max finite", MaxFinite, 65504},
		{"smallest subnormal", 0x0001, float32(math.Ldexp(1, -24))},
		{"smallest normal", 0x0400, float32(math.Ldexp(1, -14))},
		{"+inf", 0x7C00, float32(math.Inf(1))},
		{"-inf", 0xFC00, float32(math.Inf(-1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToFloat32(tt.in))
		})
	}
}

func TestToFloat32NegativeZero(t *testing.T) {
	got := ToFloat32(0x8000)
	assert.Equal(t, uint32(0x80000000), math.Float32bits(got))
}

func TestNaN(t *testing.T) {
	h := Bits(0x7E00)
	assert.True(t, h.IsNaN())
	assert.False(t, h.IsInf())
	assert.True(t, math.IsNaN(float64(h.Float32())))

	back := FromFloat32(float32(math.NaN()))
	assert.True(t, back.IsNaN())
}

func TestFromFloat32Rounding(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want Bits
	}{
		{"one", 1, One},
		{"third", 1.0 / 3.0, 0x3555},
		{"tenth", 0.1, 0x2E66},
		{"max finite", 65504, MaxFinite},
		{"overflow to inf", 65520, 0x7C00},
		{"negative overflow", -1e6, 0xFC00},
		{"smallest subnormal", float32(math.Ldexp(1, -24)), 0x0001},
		{"tie below subnormal rounds to even zero", float32(math.Ldexp(1, -25)), 0x0000},
		{"above tie rounds up", float32(math.Ldexp(1.5, -25)), 0x0001},
		{"underflow", 1e-10, 0x0000},
		{"negative underflow keeps sign", -1e-10, 0x8000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromFloat32(tt.in), "got %04x", uint16(FromFloat32(tt.in)))
		})
	}
}

func TestRoundTripAllFinite(t *testing.T) {
	// Every finite half value survives half -> float32 -> half unchanged.
	for i := 0; i < 1<<16; i++ {
		h := Bits(i)
		if h.IsNaN() {
			continue
		}
		require.Equal(t, h, FromFloat32(ToFloat32(h)), "bits %04x", i)
	}
}

func TestEncodeDecodeSlices(t *testing.T) {
	src := []float32{0, 0.25, 1, -2, 1024}
	enc := make([]Bits, len(src))
	Encode(enc, src)

	dec := make([]float32, len(src))
	Decode(dec, enc)
	assert.Equal(t, src, dec)
}
