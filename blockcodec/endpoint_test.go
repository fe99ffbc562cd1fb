package blockcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fieldpack/internal/f16"
	"github.com/hupe1980/fieldpack/packer"
	"github.com/hupe1980/fieldpack/testutil"
)

func fill(img *packer.Image, fn func(x, y, z int) [4]float32) {
	for z := 0; z < img.DimZ; z++ {
		for y := 0; y < img.DimY; y++ {
			for x := 0; x < img.DimX; x++ {
				v := fn(x, y, z)
				tx := img.Texel(x, y, z)
				for i := range v {
					tx[i] = f16.FromFloat32(v[i])
				}
			}
		}
	}
}

func roundTrip(t *testing.T, cfg Config, img *packer.Image) *packer.Image {
	t.Helper()
	ctx, err := NewContext(cfg)
	require.NoError(t, err)
	defer func() { _ = ctx.Close() }()

	out := make([]byte, cfg.ImageLen(img.DimX, img.DimY, img.DimZ))
	require.NoError(t, ctx.Compress(img, out))
	require.NoError(t, ctx.Reset())

	dec := packer.NewImage(img.DimX, img.DimY, img.DimZ, 0)
	require.NoError(t, ctx.Decompress(out, dec))
	return dec
}

func assertClose(t *testing.T, want, got *packer.Image, tol float64) {
	t.Helper()
	for z := 0; z < want.DimZ; z++ {
		for y := 0; y < want.DimY; y++ {
			for x := 0; x < want.DimX; x++ {
				w, g := want.Texel(x, y, z), got.Texel(x, y, z)
				for i := range w {
					require.InDelta(t, w[i].Float32(), g[i].Float32(), tol, "texel %d,%d,%d channel %d", x, y, z, i)
				}
			}
		}
	}
}

func mustConfig(t *testing.T, p Profile, x, y, z int, flags Flags) Config {
	t.Helper()
	cfg, err := ConfigInit(p, x, y, z, PresetMedium, flags)
	require.NoError(t, err)
	return cfg
}

func TestConstantImage(t *testing.T) {
	cfg := mustConfig(t, ProfileLDR, 4, 4, 1, 0)
	img := packer.NewImage(8, 8, 1, 0)
	fill(img, func(_, _, _ int) [4]float32 { return [4]float32{0.5, 0.25, 0.75, 1} })

	assertClose(t, img, roundTrip(t, cfg, img), 1.0/255)
}

func TestLinearRampIsExact(t *testing.T) {
	cfg := mustConfig(t, ProfileLDR, 4, 4, 1, 0)
	img := packer.NewImage(4, 4, 1, 0)
	fill(img, func(x, _, _ int) [4]float32 { return [4]float32{float32(x) / 3, 0.2, 0.2, 1} })

	assertClose(t, img, roundTrip(t, cfg, img), 2e-3)
}

func TestPartialBlocks(t *testing.T) {
	cfg := mustConfig(t, ProfileLDR, 4, 4, 1, 0)
	img := packer.NewImage(5, 3, 1, 0)
	fill(img, func(x, y, _ int) [4]float32 { return [4]float32{0.1, float32(y) / 2, 0.6, 1} })

	dec := roundTrip(t, cfg, img)
	assert.Equal(t, 5, dec.DimX)
	assertClose(t, img, dec, 0.05)
}

func TestVolumeFootprint(t *testing.T) {
	cfg := mustConfig(t, ProfileLDR, 3, 3, 3, 0)
	img := packer.NewImage(6, 6, 3, 0)
	fill(img, func(_, _, _ int) [4]float32 { return [4]float32{0.3, 0.3, 0.3, 1} })
	assertClose(t, img, roundTrip(t, cfg, img), 1.0/255)

	rng := testutil.NewRNG(3)
	fill(img, func(_, _, _ int) [4]float32 {
		return [4]float32{rng.Float32(), rng.Float32(), rng.Float32(), 1}
	})
	assertClose(t, img, roundTrip(t, cfg, img), 1)
}

func TestProfiles(t *testing.T) {
	t.Run("hdr", func(t *testing.T) {
		cfg := mustConfig(t, ProfileHDR, 4, 4, 1, 0)
		img := packer.NewImage(4, 4, 1, 0)
		fill(img, func(_, _, _ int) [4]float32 { return [4]float32{100, 2, 0.5, 1} })
		dec := roundTrip(t, cfg, img)
		tx := dec.Texel(1, 1, 0)
		assert.InEpsilon(t, 100, tx[0].Float32(), 0.05)
		assert.InEpsilon(t, 2, tx[1].Float32(), 0.05)
		assert.InEpsilon(t, 1, tx[3].Float32(), 0.05)
	})

	t.Run("srgb", func(t *testing.T) {
		cfg := mustConfig(t, ProfileLDRSRGB, 4, 4, 1, 0)
		img := packer.NewImage(4, 4, 1, 0)
		fill(img, func(_, _, _ int) [4]float32 { return [4]float32{0.25, 0.5, 0.75, 1} })
		assertClose(t, img, roundTrip(t, cfg, img), 0.01)
	})
}

func TestNormalMapSwizzle(t *testing.T) {
	cfg := mustConfig(t, ProfileLDR, 4, 4, 1, FlagMapNormal)
	img := packer.NewImage(4, 4, 1, 0)
	fill(img, func(_, _, _ int) [4]float32 { return [4]float32{0.8, 0.3, 0, 1} })

	tx := roundTrip(t, cfg, img).Texel(0, 0, 0)
	assert.InDelta(t, 0.8, tx[0].Float32(), 0.01)
	assert.InDelta(t, 0.3, tx[1].Float32(), 0.01)
	assert.InDelta(t, 0.846, tx[2].Float32(), 0.02)
	assert.Equal(t, f16.One, tx[3])
}

func TestContextMustBeReset(t *testing.T) {
	cfg := mustConfig(t, ProfileLDR, 4, 4, 1, 0)
	ctx, err := NewContext(cfg)
	require.NoError(t, err)

	img := packer.NewImage(4, 4, 1, 0)
	out := make([]byte, BlockBytes)
	require.NoError(t, ctx.Compress(img, out))

	err = ctx.Compress(img, out)
	assert.Equal(t, StatusBadContext, StatusOf(err))

	require.NoError(t, ctx.Reset())
	assert.NoError(t, ctx.Compress(img, out))
}

func TestCodecErrors(t *testing.T) {
	cfg := mustConfig(t, ProfileLDR, 4, 4, 1, 0)
	ctx, err := NewContext(cfg)
	require.NoError(t, err)

	img := packer.NewImage(8, 4, 1, 0)
	err = ctx.Compress(img, make([]byte, BlockBytes))
	assert.Equal(t, StatusOutOfMem, StatusOf(err))

	assert.Equal(t, StatusBadParam, StatusOf(ctx.Compress(nil, nil)))
	assert.Equal(t, StatusBadParam, StatusOf(ctx.Decompress(make([]byte, BlockBytes), img)))

	_, err = NewContext(Config{BlockX: 5, BlockY: 5, BlockZ: 5, Profile: Profile(7)})
	assert.ErrorIs(t, err, ErrCodec)
}

func TestRefinementNeverHurts(t *testing.T) {
	rng := testutil.NewRNG(11)
	img := packer.NewImage(16, 16, 1, 0)
	fill(img, func(x, y, _ int) [4]float32 {
		return [4]float32{float32(x) / 15, rng.Float32(), float32(y) / 15, 1}
	})

	errFor := func(p Preset) float64 {
		cfg, err := ConfigInit(ProfileLDR, 4, 4, 1, p, 0)
		require.NoError(t, err)
		dec := roundTrip(t, cfg, img)
		var sum float64
		for i := range img.Texels {
			d := float64(img.Texels[i].Float32() - dec.Texels[i].Float32())
			sum += d * d
		}
		return sum
	}
	assert.LessOrEqual(t, errFor(PresetExhaustive), errFor(PresetFastest)+1e-9)
}
