package stream

import (
	"fmt"
	"math"

	"github.com/hupe1980/fieldpack/field"
)

// OutputTexelBytes is the size of one stored trajectory point (4 float32).
const OutputTexelBytes = 16

// Plan is the decomposition of an integration into resident-window passes.
//
// F·L + R == Global always holds. 0 <= R < L holds whenever
// Global <= (Slices-1)·L; otherwise the remainder pass covers the steps left
// on the last slice.
type Plan struct {
	Global    int // G, total steps
	Local     int // L, steps per full pass
	Full      int // F, number of full passes
	Remainder int // R, steps of the final pass
	Slices    int // T, time slices of the field
	Steady    bool
}

// ComputePlan splits global steps over t time slices that are timesize apart,
// integrating with step width dt. A single slice yields a steady plan.
func ComputePlan(global int, timesize, dt float64, t int) (Plan, error) {
	switch {
	case global < 0:
		return Plan{}, field.Errorf("negative step count %d", global)
	case t < 1:
		return Plan{}, field.Errorf("time slices %d < 1", t)
	case t > 1 && !(dt > 0):
		return Plan{}, field.Errorf("step width %g must be positive", dt)
	case t > 1 && (timesize < 0 || math.IsNaN(timesize) || math.IsInf(timesize, 0)):
		return Plan{}, field.Errorf("invalid slice spacing %g", timesize)
	}

	if t == 1 {
		return Plan{Global: global, Local: global, Slices: 1, Steady: true}, nil
	}

	p := Plan{Global: global, Slices: t}
	steps := math.Floor(timesize/dt + 0.001)
	if !(steps < math.MaxInt) {
		return Plan{}, field.Errorf("slice spacing %g spans too many steps of width %g", timesize, dt)
	}
	p.Local = int(steps)
	if p.Local > 0 {
		p.Full = min(global/p.Local, t-1)
	}
	p.Remainder = global - p.Full*p.Local
	return p, nil
}

// Passes returns the number of dispatch passes the plan runs.
func (p Plan) Passes() int {
	if p.Steady {
		return 1
	}
	if p.Remainder > 0 {
		return p.Full + 1
	}
	return p.Full
}

// SlicesNeeded returns how many time slices a run of p reads.
func (p Plan) SlicesNeeded() int {
	switch {
	case p.Steady:
		return 1
	case p.Remainder > 0:
		return p.Full + 1
	case p.Full > 0:
		return p.Full + 1
	default:
		return 0
	}
}

// OutputBytes returns the trajectory storage a run needs for seeds particles,
// one point per seed and step.
func (p Plan) OutputBytes(seeds int) int64 {
	return int64(p.Global) * int64(seeds) * OutputTexelBytes
}

func (p Plan) String() string {
	if p.Steady {
		return fmt.Sprintf("steady: %d steps", p.Global)
	}
	return fmt.Sprintf("G=%d L=%d F=%d R=%d T=%d", p.Global, p.Local, p.Full, p.Remainder, p.Slices)
}
