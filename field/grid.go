package field

import (
	"fmt"
	"strings"
)

// Ordering describes how the components of a vector sample are laid out
// across the texels of a packed image.
type Ordering uint8

const (
	// VectorFirst packs the components of one sample next to each other
	// along the image width.
	VectorFirst Ordering = iota
	// ComponentFirst packs each component as its own band of rows.
	ComponentFirst
)

func (o Ordering) String() string {
	switch o {
	case VectorFirst:
		return "vector-first"
	case ComponentFirst:
		return "component-first"
	default:
		return fmt.Sprintf("Ordering(%d)", uint8(o))
	}
}

// ParseOrdering parses "vector-first" or "component-first".
func ParseOrdering(s string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vector-first", "vector", "":
		return VectorFirst, nil
	case "component-first", "component":
		return ComponentFirst, nil
	}
	return 0, Errorf("unknown ordering %q", s)
}

// SliceMode selects how much of a time step one packed image covers.
type SliceMode uint8

const (
	// Plane packs one depth layer (Y rows) per image.
	Plane SliceMode = iota
	// Line packs a single row per image.
	Line
	// Volume packs every depth layer from the depth offset onwards into one image.
	Volume
)

func (m SliceMode) String() string {
	switch m {
	case Plane:
		return "plane"
	case Line:
		return "line"
	case Volume:
		return "volume"
	default:
		return fmt.Sprintf("SliceMode(%d)", uint8(m))
	}
}

// ParseSliceMode parses "plane", "line" or "volume".
func ParseSliceMode(s string) (SliceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plane", "":
		return Plane, nil
	case "line":
		return Line, nil
	case "volume":
		return Volume, nil
	}
	return 0, Errorf("unknown slice mode %q", s)
}

// Grid is the shape of a time-varying vector field.
type Grid struct {
	X, Y, Z, T int
	VecLen     int
	Ordering   Ordering
}

// Validate reports an *InvalidGridError for the first axis that is not >= 1.
func (g Grid) Validate() error {
	for _, a := range []struct {
		name string
		v    int
	}{{"X", g.X}, {"Y", g.Y}, {"Z", g.Z}, {"T", g.T}, {"VecLen", g.VecLen}} {
		if a.v < 1 {
			return &InvalidGridError{Axis: a.name, Value: a.v}
		}
	}
	if g.Ordering > ComponentFirst {
		return Errorf("unknown ordering %d", g.Ordering)
	}
	return nil
}

// Len is the total number of float32 components, X·Y·Z·T·VecLen.
func (g Grid) Len() int { return g.X * g.Y * g.Z * g.T * g.VecLen }

// StepLen is the number of components in one time step.
func (g Grid) StepLen() int { return g.X * g.Y * g.Z * g.VecLen }

// LayerLen is the number of components in one depth layer.
func (g Grid) LayerLen() int { return g.X * g.Y * g.VecLen }

// Layers is the number of depth layers over all time steps (T·Z).
func (g Grid) Layers() int { return g.T * g.Z }

// Offset returns the flat index of component c of sample (t,z,y,x).
func (g Grid) Offset(t, z, y, x, c int) int {
	return (((t*g.Z+z)*g.Y+y)*g.X+x)*g.VecLen + c
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%dx%dx%d[%d] %s", g.X, g.Y, g.Z, g.T, g.VecLen, g.Ordering)
}
