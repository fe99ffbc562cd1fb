package field

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridValidate(t *testing.T) {
	good := Grid{X: 4, Y: 3, Z: 2, T: 5, VecLen: 3}
	require.NoError(t, good.Validate())

	tests := []struct {
		name string
		grid Grid
		axis string
	}{
		{"zero X", Grid{X: 0, Y: 1, Z: 1, T: 1, VecLen: 1}, "X"},
		{"zero Y", Grid{X: 1, Y: 0, Z: 1, T: 1, VecLen: 1}, "Y"},
		{"zero Z", Grid{X: 1, Y: 1, Z: 0, T: 1, VecLen: 1}, "Z"},
		{"zero T", Grid{X: 1, Y: 1, Z: 1, T: 0, VecLen: 1}, "T"},
		{"zero VecLen", Grid{X: 1, Y: 1, Z: 1, T: 1, VecLen: 0}, "VecLen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.grid.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidGrid))

			var ge *InvalidGridError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, tt.axis, ge.Axis)
		})
	}
}

func TestGridOffsets(t *testing.T) {
	g := Grid{X: 4, Y: 3, Z: 2, T: 5, VecLen: 3}
	assert.Equal(t, 360, g.Len())
	assert.Equal(t, 72, g.StepLen())
	assert.Equal(t, 36, g.LayerLen())
	assert.Equal(t, 10, g.Layers())
	assert.Equal(t, 0, g.Offset(0, 0, 0, 0, 0))
	assert.Equal(t, g.Len()-1, g.Offset(4, 1, 2, 3, 2))
	assert.Equal(t, 72+36+12+3+1, g.Offset(1, 1, 1, 1, 1))
}

func TestParseModes(t *testing.T) {
	o, err := ParseOrdering("component-first")
	require.NoError(t, err)
	assert.Equal(t, ComponentFirst, o)

	m, err := ParseSliceMode("Volume")
	require.NoError(t, err)
	assert.Equal(t, Volume, m)

	_, err = ParseSliceMode("cube")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWrapRejectsShortData(t *testing.T) {
	g := Grid{X: 2, Y: 2, Z: 1, T: 1, VecLen: 2}
	_, err := Wrap(g, make([]float32, 7))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	f, err := Wrap(g, make([]float32, 9))
	require.NoError(t, err)
	assert.Equal(t, 8, f.Len())
}

func TestLayerAndStep(t *testing.T) {
	g := Grid{X: 2, Y: 1, Z: 2, T: 2, VecLen: 1}
	f, err := New(g)
	require.NoError(t, err)
	for i := range f.Data {
		f.Data[i] = float32(i)
	}
	assert.Equal(t, []float32{4, 5, 6, 7}, f.Step(1))
	assert.Equal(t, []float32{6, 7}, f.Layer(1, 1))
	assert.Equal(t, float32(7), f.At(1, 1, 0, 1, 0))
}

func TestReadWriteRoundTrip(t *testing.T) {
	g := Grid{X: 3, Y: 2, Z: 2, T: 2, VecLen: 2}
	f, err := New(g)
	require.NoError(t, err)
	for i := range f.Data {
		f.Data[i] = float32(i) * 0.5
	}

	var buf bytes.Buffer
	n, err := f.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(g.Len()*4), n)

	got, err := ReadFrom(&buf, g)
	require.NoError(t, err)
	assert.Equal(t, f.Data, got.Data)
}

func TestLoadFile(t *testing.T) {
	g := Grid{X: 2, Y: 2, Z: 1, T: 3, VecLen: 3}
	f, err := New(g)
	require.NoError(t, err)
	f.Set(2, 0, 1, 1, 2, 42)

	path := filepath.Join(t.TempDir(), "field.raw")
	require.NoError(t, f.Save(path))

	got, err := Load(path, g)
	require.NoError(t, err)
	assert.Equal(t, float32(42), got.At(2, 0, 1, 1, 2))

	bigger := g
	bigger.T = 4
	_, err = Load(path, bigger)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
