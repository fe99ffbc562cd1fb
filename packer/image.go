package packer

import (
	"encoding/binary"

	"github.com/hupe1980/fieldpack/internal/f16"
)

// Channels per texel in a packed image. Unused channels keep their fill value.
const TexelChannels = 4

// Image is a padded 3D array of RGBA half-float texels.
//
// DimX/DimY/DimZ describe the interior. Texels holds
// (DimZ+2Pad)·(DimY+2Pad)·(DimX+2Pad)·4 values, depth-major.
type Image struct {
	DimX, DimY, DimZ int
	Pad              int
	Texels           []f16.Bits
}

// NewImage allocates a zeroed image.
func NewImage(dimX, dimY, dimZ, pad int) *Image {
	px, py, pz := dimX+2*pad, dimY+2*pad, dimZ+2*pad
	return &Image{
		DimX:   dimX,
		DimY:   dimY,
		DimZ:   dimZ,
		Pad:    pad,
		Texels: make([]f16.Bits, px*py*pz*TexelChannels),
	}
}

// TexelCount returns the number of interior texels.
func (im *Image) TexelCount() int { return im.DimX * im.DimY * im.DimZ }

func (im *Image) offset(x, y, z int) int {
	px, py := im.DimX+2*im.Pad, im.DimY+2*im.Pad
	return (((z+im.Pad)*py+(y+im.Pad))*px + (x + im.Pad)) * TexelChannels
}

// Texel returns the four channels of the texel at interior coordinates (x,y,z).
// Coordinates may reach into the padding, down to -Pad.
func (im *Image) Texel(x, y, z int) []f16.Bits {
	o := im.offset(x, y, z)
	return im.Texels[o : o+TexelChannels : o+TexelChannels]
}

// FillPadding replicates the nearest interior texel into every padding texel.
func (im *Image) FillPadding() {
	if im.Pad == 0 || im.TexelCount() == 0 {
		return
	}
	p := im.Pad
	for z := -p; z < im.DimZ+p; z++ {
		cz := clamp(z, im.DimZ)
		for y := -p; y < im.DimY+p; y++ {
			cy := clamp(y, im.DimY)
			for x := -p; x < im.DimX+p; x++ {
				cx := clamp(x, im.DimX)
				if cx == x && cy == y && cz == z {
					continue
				}
				copy(im.Texel(x, y, z), im.Texel(cx, cy, cz))
			}
		}
	}
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// Interior returns a copy of im without padding.
func (im *Image) Interior() *Image {
	if im.Pad == 0 {
		out := NewImage(im.DimX, im.DimY, im.DimZ, 0)
		copy(out.Texels, im.Texels)
		return out
	}
	out := NewImage(im.DimX, im.DimY, im.DimZ, 0)
	for z := 0; z < im.DimZ; z++ {
		for y := 0; y < im.DimY; y++ {
			src := im.offset(0, y, z)
			dst := out.offset(0, y, z)
			copy(out.Texels[dst:dst+im.DimX*TexelChannels], im.Texels[src:src+im.DimX*TexelChannels])
		}
	}
	return out
}

// Bytes returns the texels (padding included) as little-endian uint16 values.
func (im *Image) Bytes() []byte {
	out := make([]byte, 2*len(im.Texels))
	for i, h := range im.Texels {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(h))
	}
	return out
}

// ByteLen returns len(im.Bytes()).
func (im *Image) ByteLen() int { return 2 * len(im.Texels) }
