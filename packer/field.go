package packer

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/fieldpack/field"
)

// PackField packs every slice of raw, T-major: image t·ImagesPerStep + z.
// TimeOffset and DepthOffset of opts are ignored; Volume images always start at depth 0.
// Line slices hold only the first row of a layer and are rejected; use Pack
// for single rows.
func PackField(ctx context.Context, raw []float32, grid field.Grid, opts Options) ([]*Image, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if opts.Slice == field.Line {
		return nil, field.Errorf("slice mode %s cannot hold a whole field", opts.Slice)
	}
	if len(raw) < grid.Len() {
		return nil, field.Errorf("raw data has %d components, grid %s needs %d", len(raw), grid, grid.Len())
	}

	per := ImagesPerStep(grid, opts.Slice)
	images := make([]*Image, grid.T*per)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range images {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o := opts
			o.TimeOffset = i / per
			o.DepthOffset = 0
			if opts.Slice != field.Volume {
				o.DepthOffset = i % per
			}
			img, err := Pack(raw, grid, o)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

// UnpackAll unpacks images produced by PackField and concatenates the result
// into grid.Len() components. Line slices are rejected.
func UnpackAll(images []*Image, grid field.Grid, slice field.SliceMode, opts UnpackOptions) ([]float32, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if slice == field.Line {
		return nil, field.Errorf("slice mode %s cannot hold a whole field", slice)
	}
	per := ImagesPerStep(grid, slice)
	if len(images) != grid.T*per {
		return nil, field.Errorf("got %d images, grid %s needs %d", len(images), grid, grid.T*per)
	}

	out := make([]float32, 0, grid.Len())
	for i, img := range images {
		o := opts
		o.PeaksIndex = (i/per)*grid.Z + i%per
		if slice == field.Volume {
			o.PeaksIndex = i * grid.Z
		}
		vals, err := Unpack(img, grid, o)
		if err != nil {
			return nil, err
		}
		out = append(out, vals...)
	}
	return out, nil
}

// ErrorStats compares an original and a reconstructed component stream.
type ErrorStats struct {
	MeanAbs float64
	MaxAbs  float64
	RMSE    float64
	// PSNR assumes a [0,1] signal range; +Inf for identical inputs.
	PSNR float64
}

// MeasureError computes ErrorStats over the common prefix of a and b.
func MeasureError(a, b []float32) ErrorStats {
	n := min(len(a), len(b))
	if n == 0 {
		return ErrorStats{PSNR: math.Inf(1)}
	}
	var sumAbs, sumSq, maxAbs float64
	for i := 0; i < n; i++ {
		d := math.Abs(float64(a[i]) - float64(b[i]))
		sumAbs += d
		sumSq += d * d
		if d > maxAbs {
			maxAbs = d
		}
	}
	mse := sumSq / float64(n)
	s := ErrorStats{
		MeanAbs: sumAbs / float64(n),
		MaxAbs:  maxAbs,
		RMSE:    math.Sqrt(mse),
		PSNR:    math.Inf(1),
	}
	if mse > 0 {
		s.PSNR = 10 * math.Log10(1/mse)
	}
	return s
}
