// Package peaks extracts per-unit minimum/maximum pairs from raw fields.
//
// A normalization unit is one depth layer (t·Z + z). Global peaks carry one
// pair per unit covering every component; per-component peaks carry VecLen
// pairs per unit, one for each component index.
package peaks

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/fieldpack/field"
)

// Mode tells how the pairs of a Peaks value map onto units.
type Mode uint8

const (
	// ModeGlobal holds one pair per unit.
	ModeGlobal Mode = iota
	// ModePerComponent holds VecLen pairs per unit.
	ModePerComponent
)

func (m Mode) String() string {
	if m == ModePerComponent {
		return "per-component"
	}
	return "global"
}

// Pair is a closed [Min, Max] range. Max >= Min for extracted pairs.
type Pair struct {
	Min, Max float32
}

// Range returns Max - Min.
func (p Pair) Range() float32 { return p.Max - p.Min }

// Normalize maps v into [0,1] relative to p. A degenerate range maps to 0.
func (p Pair) Normalize(v float32) float32 {
	r := p.Max - p.Min
	if r == 0 {
		return 0
	}
	return (v - p.Min) / r
}

// Denormalize is the inverse of Normalize.
func (p Pair) Denormalize(v float32) float32 {
	return v*(p.Max-p.Min) + p.Min
}

// Peaks is an immutable ordered list of pairs.
type Peaks struct {
	Mode   Mode
	VecLen int
	Pairs  []Pair
}

// Units returns the number of normalization units covered.
func (p Peaks) Units() int {
	if p.Mode == ModePerComponent {
		if p.VecLen == 0 {
			return 0
		}
		return len(p.Pairs) / p.VecLen
	}
	return len(p.Pairs)
}

// Index returns the pair index for component comp of unit. Global peaks ignore comp.
func (p Peaks) Index(unit, comp int) int {
	if p.Mode == ModePerComponent {
		return unit*p.VecLen + comp
	}
	return unit
}

// At returns the pair for component comp of unit.
func (p Peaks) At(unit, comp int) (Pair, bool) {
	i := p.Index(unit, comp)
	if i < 0 || i >= len(p.Pairs) {
		return Pair{}, false
	}
	return p.Pairs[i], true
}

// Flat returns the [min0,max0,min1,max1,...] layout used by peaks files.
func (p Peaks) Flat() []float32 {
	out := make([]float32, 0, 2*len(p.Pairs))
	for _, pr := range p.Pairs {
		out = append(out, pr.Min, pr.Max)
	}
	return out
}

// FromFlat builds Peaks from the flat layout. flat must have even length.
func FromFlat(flat []float32, mode Mode, vecLen int) (Peaks, error) {
	if len(flat)%2 != 0 {
		return Peaks{}, field.Errorf("flat peaks length %d is odd", len(flat))
	}
	if mode == ModePerComponent && vecLen < 1 {
		return Peaks{}, field.Errorf("per-component peaks need VecLen >= 1, got %d", vecLen)
	}
	pairs := make([]Pair, len(flat)/2)
	for i := range pairs {
		pairs[i] = Pair{Min: flat[2*i], Max: flat[2*i+1]}
	}
	return Peaks{Mode: mode, VecLen: vecLen, Pairs: pairs}, nil
}

// Global extracts one pair per depth layer over all components jointly.
func Global(raw []float32, grid field.Grid) (Peaks, error) {
	return extract(raw, grid, ModeGlobal)
}

// PerComponent extracts VecLen pairs per depth layer. The component of a value is
// its offset modulo VecLen within the layer.
func PerComponent(raw []float32, grid field.Grid) (Peaks, error) {
	return extract(raw, grid, ModePerComponent)
}

// parallelThreshold is the field size below which extraction stays on the caller's goroutine.
const parallelThreshold = 1 << 18

func extract(raw []float32, grid field.Grid, mode Mode) (Peaks, error) {
	if err := grid.Validate(); err != nil {
		return Peaks{}, err
	}
	if len(raw) < grid.Len() {
		return Peaks{}, field.Errorf("raw data has %d components, grid %s needs %d", len(raw), grid, grid.Len())
	}

	per := 1
	if mode == ModePerComponent {
		per = grid.VecLen
	}
	layers := grid.Layers()
	layerLen := grid.LayerLen()
	out := Peaks{Mode: mode, VecLen: grid.VecLen, Pairs: make([]Pair, layers*per)}

	scan := func(u int) {
		layer := raw[u*layerLen : (u+1)*layerLen]
		dst := out.Pairs[u*per : (u+1)*per]
		for i := range dst {
			dst[i] = Pair{Min: math.MaxFloat32, Max: -math.MaxFloat32}
		}
		for i, v := range layer {
			p := &dst[0]
			if per > 1 {
				p = &dst[i%per]
			}
			if v < p.Min {
				p.Min = v
			}
			if v > p.Max {
				p.Max = v
			}
		}
	}

	if grid.Len() < parallelThreshold || layers == 1 {
		for u := 0; u < layers; u++ {
			scan(u)
		}
		return out, nil
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for u := 0; u < layers; u++ {
		g.Go(func() error {
			scan(u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Peaks{}, fmt.Errorf("extract peaks: %w", err)
	}
	return out, nil
}
