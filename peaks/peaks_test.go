package peaks

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fieldpack/field"
)

func TestGlobalOnePairPerLayer(t *testing.T) {
	g := field.Grid{X: 2, Y: 1, Z: 2, T: 2, VecLen: 2}
	raw := []float32{
		// t0 z0
		1, -2, 3, 0,
		// t0 z1
		5, 5, 5, 5,
		// t1 z0
		-1, 10, 2, 4,
		// t1 z1
		0, 0, 7, -7,
	}

	p, err := Global(raw, g)
	require.NoError(t, err)
	assert.Equal(t, ModeGlobal, p.Mode)
	assert.Equal(t, 4, p.Units())
	assert.Equal(t, []Pair{{-2, 3}, {5, 5}, {-1, 10}, {-7, 7}}, p.Pairs)
	assert.Equal(t, []float32{-2, 3, 5, 5, -1, 10, -7, 7}, p.Flat())
}

func TestPerComponent(t *testing.T) {
	g := field.Grid{X: 3, Y: 1, Z: 1, T: 2, VecLen: 3}
	raw := []float32{
		1, 10, 100,
		2, 20, 200,
		3, 30, 300,

		-1, -10, -100,
		0, 0, 0,
		1, 10, 100,
	}

	p, err := PerComponent(raw, g)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Units())
	assert.Equal(t, []Pair{
		{1, 3}, {10, 30}, {100, 300},
		{-1, 1}, {-10, 10}, {-100, 100},
	}, p.Pairs)

	pr, ok := p.At(1, 2)
	require.True(t, ok)
	assert.Equal(t, Pair{-100, 100}, pr)

	_, ok = p.At(2, 0)
	assert.False(t, ok)
}

func TestPairsAreOrdered(t *testing.T) {
	g := field.Grid{X: 64, Y: 64, Z: 8, T: 10, VecLen: 3}
	raw := make([]float32, g.Len())
	for i := range raw {
		raw[i] = float32((i*7919)%1000) - 500
	}

	for _, extract := range []func([]float32, field.Grid) (Peaks, error){Global, PerComponent} {
		p, err := extract(raw, g)
		require.NoError(t, err)
		for _, pr := range p.Pairs {
			require.GreaterOrEqual(t, pr.Max, pr.Min)
		}
	}
}

func TestExtractErrors(t *testing.T) {
	_, err := Global(nil, field.Grid{X: 1, Y: 1, Z: 0, T: 1, VecLen: 1})
	assert.ErrorIs(t, err, field.ErrInvalidGrid)

	_, err = PerComponent(make([]float32, 3), field.Grid{X: 2, Y: 1, Z: 1, T: 1, VecLen: 2})
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
}

func TestNormalize(t *testing.T) {
	p := Pair{Min: -2, Max: 6}
	assert.InDelta(t, 0.5, p.Normalize(2), 1e-7)
	assert.InDelta(t, 2, p.Denormalize(0.5), 1e-7)
	assert.Equal(t, float32(0), Pair{Min: 3, Max: 3}.Normalize(3))
}

func TestFileRoundTrip(t *testing.T) {
	p := Peaks{Mode: ModePerComponent, VecLen: 2, Pairs: []Pair{{0, 1}, {-3.5, 2.25}, {7, 7}, {-1, 0}}}
	path := filepath.Join(t.TempDir(), "field.peaks")
	require.NoError(t, WriteFile(path, p))

	got, err := ReadFile(path, ModePerComponent, 2)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDecodeCorrupt(t *testing.T) {
	_, err := Decode(make([]byte, 12), ModeGlobal, 1)
	assert.ErrorIs(t, err, ErrCorruptFile)

	p, err := Decode(nil, ModeGlobal, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Units())
}
