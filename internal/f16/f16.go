// Package f16 implements IEEE-754 binary16 (half-float) encoding/decoding.
//
// Packed images hold their texels as binary16 bit patterns; all arithmetic
// happens in float32 before the final conversion.
package f16

import (
	"math"
)

// Bits is the raw IEEE-754 binary16 bit-pattern.
//
// Layout:
//
//	sign: 1 bit
//	exp:  5 bits (bias 15)
//	frac: 10 bits
type Bits uint16

const (
	// Zero is +0.0.
	Zero Bits = 0x0000
	// One is 1.0. Packed images use it for unused alpha channels.
	One Bits = 0x3C00
	// MaxFinite is the largest finite half-float (65504).
	MaxFinite Bits = 0x7BFF

	signMask Bits = 0x8000
	expMask  Bits = 0x7C00
	fracMask Bits = 0x03FF

	f32SignMask uint32 = 0x80000000
	f32ExpMask  uint32 = 0x7F800000
	f32FracMask uint32 = 0x007FFFFF
)

// IsNaN reports whether h encodes a NaN.
func (h Bits) IsNaN() bool {
	return h&expMask == expMask && h&fracMask != 0
}

// IsInf reports whether h encodes +Inf or -Inf.
func (h Bits) IsInf() bool {
	return h&expMask == expMask && h&fracMask == 0
}

// Float32 is shorthand for ToFloat32(h).
func (h Bits) Float32() float32 {
	return ToFloat32(h)
}

// ToFloat32 converts a binary16 bit-pattern to float32. The conversion is exact.
func ToFloat32(h Bits) float32 {
	sign := uint32(h&signMask) << 16
	exp := uint32(h&expMask) >> 10
	frac := uint32(h & fracMask)

	if exp == 0x1F {
		// Inf keeps a zero fraction, NaN keeps its payload.
		return math.Float32frombits(sign | f32ExpMask | frac<<13)
	}

	if exp != 0 {
		return math.Float32frombits(sign | (exp+112)<<23 | frac<<13)
	}

	if frac == 0 {
		return math.Float32frombits(sign)
	}

	// Subnormal half: shift the fraction up until the hidden bit appears.
	e := uint32(113)
	for frac&0x0400 == 0 {
		frac <<= 1
		e--
	}
	return math.Float32frombits(sign | e<<23 | (frac&0x03FF)<<13)
}

// FromFloat32 converts a float32 value into a binary16 bit-pattern using
// round-to-nearest, ties-to-even. Values beyond the half range become ±Inf.
func FromFloat32(f float32) Bits {
	bits := math.Float32bits(f)
	sign := Bits((bits & f32SignMask) >> 16)
	exp := int32((bits & f32ExpMask) >> 23)
	frac := bits & f32FracMask

	switch {
	case exp == 0xFF:
		if frac == 0 {
			return sign | expMask
		}
		payload := Bits(frac>>13) | 0x0200 // quiet, never zero
		return sign | expMask | payload&fracMask
	case exp == 0:
		// float32 subnormals are far below the half range.
		return sign
	}

	e := exp - 127 + 15
	if e >= 0x1F {
		return sign | expMask
	}

	if e <= 0 {
		if e < -10 {
			return sign
		}
		mant := frac | 0x00800000
		shift := uint32(14 - e)
		return sign | Bits(roundShift(mant, shift))
	}

	m := roundShift(frac, 13)
	if m == 0x0400 {
		m = 0
		e++
		if e >= 0x1F {
			return sign | expMask
		}
	}
	return sign | Bits(uint32(e)<<10) | Bits(m)
}

// roundShift shifts v right by s bits, rounding to nearest with ties to even.
func roundShift(v, s uint32) uint32 {
	q := v >> s
	rem := v & (1<<s - 1)
	half := uint32(1) << (s - 1)
	if rem > half || (rem == half && q&1 == 1) {
		q++
	}
	return q
}

// Decode converts a slice of binary16 bit-patterns to float32.
// dst must have length >= len(src).
func Decode(dst []float32, src []Bits) {
	for i, h := range src {
		dst[i] = ToFloat32(h)
	}
}

// Encode converts a slice of float32 to binary16.
// dst must have length >= len(src).
func Encode(dst []Bits, src []float32) {
	for i, f := range src {
		dst[i] = FromFloat32(f)
	}
}
