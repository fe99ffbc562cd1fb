package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/fieldpack/field"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call.
func (r *RNG) FillUniform(dst []float32) {
	r.FillUniformRange(dst, 0, 1)
}

// FillUniformRange fills dst with random values in range [minVal, maxVal).
func (r *RNG) FillUniformRange(dst []float32, minVal, maxVal float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := maxVal - minVal
	for i := range dst {
		dst[i] = minVal + r.rand.Float32()*span
	}
}

// UniformField returns a field with components drawn from [minVal, maxVal).
func (r *RNG) UniformField(grid field.Grid, minVal, maxVal float32) *field.RawField {
	f, err := field.New(grid)
	if err != nil {
		panic(err)
	}
	r.FillUniformRange(f.Data, minVal, maxVal)
	return f
}

// RandomGrid returns a small valid grid with every axis in [1, maxAxis] and VecLen in [1,4].
func (r *RNG) RandomGrid(maxAxis int) field.Grid {
	g := field.Grid{
		X:      1 + r.Intn(maxAxis),
		Y:      1 + r.Intn(maxAxis),
		Z:      1 + r.Intn(maxAxis),
		T:      1 + r.Intn(maxAxis),
		VecLen: 1 + r.Intn(4),
	}
	if r.Intn(2) == 1 {
		g.Ordering = field.ComponentFirst
	}
	return g
}

// VortexField returns a smooth rotating field: a swirl around the grid centre whose
// axis precesses over time. Components beyond the third are a scalar magnitude.
func VortexField(grid field.Grid) *field.RawField {
	f, err := field.New(grid)
	if err != nil {
		panic(err)
	}
	cx, cy := float64(grid.X-1)/2, float64(grid.Y-1)/2
	for t := 0; t < grid.T; t++ {
		phase := 2 * math.Pi * float64(t) / float64(grid.T)
		for z := 0; z < grid.Z; z++ {
			lift := math.Sin(phase + float64(z)/float64(grid.Z))
			for y := 0; y < grid.Y; y++ {
				for x := 0; x < grid.X; x++ {
					dx, dy := float64(x)-cx, float64(y)-cy
					v := [3]float64{-dy, dx, lift}
					mag := math.Sqrt(dx*dx + dy*dy + lift*lift)
					for c := 0; c < grid.VecLen; c++ {
						val := mag
						if c < 3 {
							val = v[c] * math.Cos(phase/2)
						}
						f.Set(t, z, y, x, c, float32(val))
					}
				}
			}
		}
	}
	return f
}

// RampField returns a field whose component at flat index i equals i.
// Useful to trace how the packer walks the component stream.
func RampField(grid field.Grid) *field.RawField {
	f, err := field.New(grid)
	if err != nil {
		panic(err)
	}
	for i := range f.Data {
		f.Data[i] = float32(i)
	}
	return f
}
