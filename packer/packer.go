// Package packer converts raw multi-component float arrays into padded
// half-float RGBA images ready for block compression, and back.
//
// The component stream of a slice is consumed contiguously: every defined
// texel takes Channels consecutive components and a row that does not divide
// evenly ends in a half texel that takes the remainder. Rows never restart
// the stream, so a half texel is followed by the next row's first component.
package packer

import (
	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/internal/f16"
	"github.com/hupe1980/fieldpack/peaks"
)

// Options controls Pack.
type Options struct {
	// TimeOffset selects the time step.
	TimeOffset int
	// DepthOffset selects the first depth layer.
	DepthOffset int
	// Normalize maps every value to (v-min)/(max-min) using Peaks.
	Normalize bool
	Peaks     peaks.Peaks
	// Refined normalizes each component with its own pair; Peaks must be per-component.
	Refined bool
	// Channels is the number of colour channels per texel (1..4).
	Channels int
	Slice    field.SliceMode
	Padding  int
}

// Geometry is the interior layout of a packed slice.
type Geometry struct {
	DefinedPixels int
	HalfPixel     int
	Width         int
	Height        int
	Depth         int
}

// RowLen is the number of components consumed per image row.
func (g Geometry) RowLen(channels int) int {
	return g.DefinedPixels*channels + g.HalfPixel
}

// Components is the number of components consumed by the whole image.
func (g Geometry) Components(channels int) int {
	return g.Depth * g.Height * g.RowLen(channels)
}

// Layout computes the image geometry for a slice of grid.
func Layout(grid field.Grid, channels int, slice field.SliceMode, depthOffset int) Geometry {
	var g Geometry
	switch grid.Ordering {
	case field.ComponentFirst:
		g.DefinedPixels = grid.X / channels
		g.HalfPixel = grid.X % channels
		g.Height = grid.Y * grid.VecLen
	default:
		g.DefinedPixels = grid.X * grid.VecLen / channels
		g.HalfPixel = grid.X * grid.VecLen % channels
		g.Height = grid.Y
	}
	g.Width = g.DefinedPixels
	if g.HalfPixel > 0 {
		g.Width++
	}
	if slice == field.Line {
		g.Height = 1
	}
	g.Depth = 1
	if slice == field.Volume {
		g.Depth = grid.Z - depthOffset
	}
	return g
}

// ImagesPerStep returns how many images PackField produces for each time step.
func ImagesPerStep(grid field.Grid, slice field.SliceMode) int {
	if slice == field.Volume {
		return 1
	}
	return grid.Z
}

func validateCommon(grid field.Grid, channels int, refined bool, p peaks.Peaks, withPeaks bool) error {
	if err := grid.Validate(); err != nil {
		return err
	}
	if channels < 1 || channels > TexelChannels {
		return field.Errorf("channel count %d outside [1,%d]", channels, TexelChannels)
	}
	if withPeaks && refined != (p.Mode == peaks.ModePerComponent) {
		return field.Errorf("refined=%t does not match %s peaks", refined, p.Mode)
	}
	return nil
}

// peakIndex returns the pair index for a value at stream offset off in unit.
func peakIndex(unit, off, vecLen int, refined bool) int {
	if refined {
		return unit*vecLen + off%vecLen
	}
	return unit
}

func requiredPairs(lastUnit, vecLen int, refined bool) int {
	if refined {
		return (lastUnit + 1) * vecLen
	}
	return lastUnit + 1
}

// Pack converts one time/depth slice of raw into a half-float image.
func Pack(raw []float32, grid field.Grid, opts Options) (*Image, error) {
	if err := validateCommon(grid, opts.Channels, opts.Refined, opts.Peaks, opts.Normalize); err != nil {
		return nil, err
	}
	if opts.TimeOffset < 0 || opts.TimeOffset >= grid.T {
		return nil, field.Errorf("time offset %d outside [0,%d)", opts.TimeOffset, grid.T)
	}
	if opts.DepthOffset < 0 || opts.DepthOffset >= grid.Z {
		return nil, field.Errorf("depth offset %d outside [0,%d)", opts.DepthOffset, grid.Z)
	}
	if opts.Padding < 0 {
		return nil, field.Errorf("negative padding %d", opts.Padding)
	}

	c := opts.Channels
	geo := Layout(grid, c, opts.Slice, opts.DepthOffset)
	base := opts.TimeOffset*grid.StepLen() + opts.DepthOffset*grid.LayerLen()
	if need := base + geo.Components(c); need > len(raw) {
		return nil, field.Errorf("raw data has %d components, slice needs %d", len(raw), need)
	}

	firstUnit := opts.TimeOffset*grid.Z + opts.DepthOffset
	if opts.Normalize {
		need := requiredPairs(firstUnit+geo.Depth-1, grid.VecLen, opts.Refined)
		if len(opts.Peaks.Pairs) < need {
			return nil, field.Errorf("peaks hold %d pairs, slice needs %d", len(opts.Peaks.Pairs), need)
		}
	}

	img := NewImage(geo.Width, geo.Height, geo.Depth, opts.Padding)
	src := raw[base:]
	off := 0

	value := func(unit int) f16.Bits {
		v := src[off]
		if opts.Normalize {
			v = opts.Peaks.Pairs[peakIndex(unit, off, grid.VecLen, opts.Refined)].Normalize(v)
		}
		off++
		return f16.FromFloat32(v)
	}

	for d := 0; d < geo.Depth; d++ {
		unit := firstUnit + d
		for h := 0; h < geo.Height; h++ {
			for w := 0; w < geo.DefinedPixels; w++ {
				tx := img.Texel(w, h, d)
				for i := 0; i < c; i++ {
					tx[i] = value(unit)
				}
				if c < TexelChannels {
					tx[3] = f16.One
				}
			}
			if geo.HalfPixel > 0 {
				tx := img.Texel(geo.DefinedPixels, h, d)
				for k := 0; k < geo.HalfPixel; k++ {
					tx[k] = value(unit)
				}
				tx[3] = f16.One
			}
		}
	}

	img.FillPadding()
	return img, nil
}

// UnpackOptions controls Unpack. The ordering is taken from the grid.
type UnpackOptions struct {
	Denormalize bool
	Peaks       peaks.Peaks
	// PeaksIndex is the unit of the image's first depth layer (t·Z + depthOffset).
	PeaksIndex int
	Refined    bool
	Channels   int
}

// Unpack is the structural inverse of Pack. It returns the components in the
// order Pack consumed them.
func Unpack(img *Image, grid field.Grid, opts UnpackOptions) ([]float32, error) {
	if img == nil {
		return nil, field.Errorf("nil image")
	}
	if err := validateCommon(grid, opts.Channels, opts.Refined, opts.Peaks, opts.Denormalize); err != nil {
		return nil, err
	}
	if opts.PeaksIndex < 0 {
		return nil, field.Errorf("negative peaks index %d", opts.PeaksIndex)
	}

	c := opts.Channels
	geo := Layout(grid, c, field.Plane, 0)
	if img.DimX != geo.Width {
		return nil, field.Errorf("image width %d does not match grid %s with %d channels (want %d)", img.DimX, grid, c, geo.Width)
	}
	if opts.Denormalize {
		need := requiredPairs(opts.PeaksIndex+img.DimZ-1, grid.VecLen, opts.Refined)
		if len(opts.Peaks.Pairs) < need {
			return nil, field.Errorf("peaks hold %d pairs, image needs %d", len(opts.Peaks.Pairs), need)
		}
	}

	out := make([]float32, img.DimZ*img.DimY*geo.RowLen(c))
	off := 0
	put := func(unit int, h f16.Bits) {
		v := f16.ToFloat32(h)
		if opts.Denormalize {
			v = opts.Peaks.Pairs[peakIndex(unit, off, grid.VecLen, opts.Refined)].Denormalize(v)
		}
		out[off] = v
		off++
	}

	for d := 0; d < img.DimZ; d++ {
		unit := opts.PeaksIndex + d
		for h := 0; h < img.DimY; h++ {
			for w := 0; w < geo.DefinedPixels; w++ {
				tx := img.Texel(w, h, d)
				for i := 0; i < c; i++ {
					put(unit, tx[i])
				}
			}
			if geo.HalfPixel > 0 {
				tx := img.Texel(geo.DefinedPixels, h, d)
				for k := 0; k < geo.HalfPixel; k++ {
					put(unit, tx[k])
				}
			}
		}
	}
	return out, nil
}
