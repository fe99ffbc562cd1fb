package blockcodec

import (
	"encoding/binary"
	"math"

	"github.com/hupe1980/fieldpack/internal/f16"
	"github.com/hupe1980/fieldpack/packer"
)

// Block layout:
//
//	bytes 0..3   low endpoint, RGBA, 8-bit codes
//	bytes 4..7   high endpoint, RGBA, 8-bit codes
//	bytes 8..15  weight grid, LSB first, weightBits per weight
//
// Texel weights are bilinearly (trilinearly for 3D footprints) infilled from a
// weight grid of at most 4x4 (3x3x3) points.
const (
	endpointBits = 8
	endpointMax  = 1<<endpointBits - 1
	weightBudget = 64
)

type weightGrid struct {
	gx, gy, gz int
	bits       int
	// For every texel the four (eight) contributing grid points and factors.
	idx [][8]int
	fac [][8]float32
}

func newWeightGrid(bx, by, bz int) *weightGrid {
	lim := 4
	if bz > 1 {
		lim = 3
	}
	g := &weightGrid{gx: min(bx, lim), gy: min(by, lim), gz: min(bz, lim)}
	g.bits = min(4, weightBudget/(g.gx*g.gy*g.gz))

	n := bx * by * bz
	g.idx = make([][8]int, n)
	g.fac = make([][8]float32, n)
	pos := func(t, b, gn int) (int, int, float32) {
		if gn == 1 || b == 1 {
			return 0, 0, 0
		}
		f := float32(t) * float32(gn-1) / float32(b-1)
		i := int(f)
		if i >= gn-1 {
			return gn - 1, gn - 1, 0
		}
		return i, i + 1, f - float32(i)
	}
	for z := 0; z < bz; z++ {
		z0, z1, fz := pos(z, bz, g.gz)
		for y := 0; y < by; y++ {
			y0, y1, fy := pos(y, by, g.gy)
			for x := 0; x < bx; x++ {
				x0, x1, fx := pos(x, bx, g.gx)
				t := (z*by+y)*bx + x
				k := 0
				for _, zc := range [2]struct {
					i int
					f float32
				}{{z0, 1 - fz}, {z1, fz}} {
					for _, yc := range [2]struct {
						i int
						f float32
					}{{y0, 1 - fy}, {y1, fy}} {
						for _, xc := range [2]struct {
							i int
							f float32
						}{{x0, 1 - fx}, {x1, fx}} {
							g.idx[t][k] = (zc.i*g.gy+yc.i)*g.gx + xc.i
							g.fac[t][k] = zc.f * yc.f * xc.f
							k++
						}
					}
				}
			}
		}
	}
	return g
}

func (g *weightGrid) points() int { return g.gx * g.gy * g.gz }

func (g *weightGrid) levels() float32 { return float32(int(1)<<g.bits - 1) }

// infill expands grid weights to texel weights.
func (g *weightGrid) infill(grid, texel []float32) {
	for t := range texel {
		var w float32
		for k := 0; k < 8; k++ {
			w += grid[g.idx[t][k]] * g.fac[t][k]
		}
		texel[t] = w
	}
}

// fit projects texel weights onto the grid (weighted average) and quantizes.
func (g *weightGrid) fit(texel, grid, acc []float32) {
	for i := range grid {
		grid[i] = 0
		acc[i] = 0
	}
	for t, w := range texel {
		for k := 0; k < 8; k++ {
			f := g.fac[t][k]
			grid[g.idx[t][k]] += w * f
			acc[g.idx[t][k]] += f
		}
	}
	lv := g.levels()
	for i := range grid {
		if acc[i] > 0 {
			grid[i] /= acc[i]
		}
		grid[i] = float32(math.Round(float64(clamp01(grid[i])*lv))) / lv
	}
}

type endpointContext struct {
	cfg    Config
	grid   *weightGrid
	weight [4]float32

	dirty bool

	// scratch, sized once per context
	texels  [][4]float32
	tw      []float32
	ew      []float32
	gw      []float32
	acc     []float32
	bestGW  []float32
	bestLoC [4]uint8
	bestHiC [4]uint8
}

func newEndpointContext(cfg Config) *endpointContext {
	n := cfg.TexelsPerBlock()
	c := &endpointContext{
		cfg:    cfg,
		grid:   newWeightGrid(cfg.BlockX, cfg.BlockY, cfg.BlockZ),
		texels: make([][4]float32, n),
		tw:     make([]float32, n),
		ew:     make([]float32, n),
	}
	c.gw = make([]float32, c.grid.points())
	c.acc = make([]float32, c.grid.points())
	c.bestGW = make([]float32, c.grid.points())

	c.weight = cfg.ChannelWeights
	if cfg.Flags&FlagMapMask != 0 {
		c.weight = [4]float32{1, 1, 1, 1}
	}
	if c.weight == [4]float32{} {
		c.weight = [4]float32{1, 1, 1, 1}
	}
	return c
}

func (c *endpointContext) Config() Config { return c.cfg }

func (c *endpointContext) Close() error { return nil }

func (c *endpointContext) Reset() error {
	c.dirty = false
	return nil
}

func (c *endpointContext) Compress(img *packer.Image, out []byte) error {
	if img == nil {
		return newError(StatusBadParam, "nil image")
	}
	if c.dirty {
		return newError(StatusBadContext, "compress on a context that was not reset")
	}
	if img.DimX < 1 || img.DimY < 1 || img.DimZ < 1 {
		return newError(StatusBadParam, "invalid image dimensions %dx%dx%d", img.DimX, img.DimY, img.DimZ)
	}
	need := c.cfg.ImageLen(img.DimX, img.DimY, img.DimZ)
	if len(out) < need {
		return newError(StatusOutOfMem, "output holds %d bytes, image needs %d", len(out), need)
	}
	c.dirty = true

	bx, by, bz := c.cfg.BlockX, c.cfg.BlockY, c.cfg.BlockZ
	nx, ny, nz := ceilDiv(img.DimX, bx), ceilDiv(img.DimY, by), ceilDiv(img.DimZ, bz)
	swz := c.cfg.EncodeSwizzle()
	blk := 0
	for z0 := 0; z0 < nz*bz; z0 += bz {
		for y0 := 0; y0 < ny*by; y0 += by {
			for x0 := 0; x0 < nx*bx; x0 += bx {
				c.gather(img, x0, y0, z0, swz)
				c.encodeBlock(out[blk*BlockBytes : (blk+1)*BlockBytes])
				blk++
			}
		}
	}
	return nil
}

func (c *endpointContext) Decompress(data []byte, img *packer.Image) error {
	if img == nil {
		return newError(StatusBadParam, "nil image")
	}
	if img.DimX < 1 || img.DimY < 1 || img.DimZ < 1 {
		return newError(StatusBadParam, "invalid image dimensions %dx%dx%d", img.DimX, img.DimY, img.DimZ)
	}
	need := c.cfg.ImageLen(img.DimX, img.DimY, img.DimZ)
	if len(data) < need {
		return newError(StatusBadParam, "data holds %d bytes, image needs %d", len(data), need)
	}

	bx, by, bz := c.cfg.BlockX, c.cfg.BlockY, c.cfg.BlockZ
	nx, ny, nz := ceilDiv(img.DimX, bx), ceilDiv(img.DimY, by), ceilDiv(img.DimZ, bz)
	swz := c.cfg.DecodeSwizzle()
	blk := 0
	for z0 := 0; z0 < nz*bz; z0 += bz {
		for y0 := 0; y0 < ny*by; y0 += by {
			for x0 := 0; x0 < nx*bx; x0 += bx {
				c.decodeBlock(data[blk*BlockBytes : (blk+1)*BlockBytes])
				c.scatter(img, x0, y0, z0, swz)
				blk++
			}
		}
	}
	return nil
}

// gather loads one block into c.texels in the encoder domain. Texels outside
// the image replicate the nearest edge texel.
func (c *endpointContext) gather(img *packer.Image, x0, y0, z0 int, swz Swizzle) {
	bx, by, bz := c.cfg.BlockX, c.cfg.BlockY, c.cfg.BlockZ
	for z := 0; z < bz; z++ {
		sz := min(z0+z, img.DimZ-1)
		for y := 0; y < by; y++ {
			sy := min(y0+y, img.DimY-1)
			for x := 0; x < bx; x++ {
				sx := min(x0+x, img.DimX-1)
				src := img.Texel(sx, sy, sz)
				var rgba [4]float32
				for i := range rgba {
					rgba[i] = f16.ToFloat32(src[i])
				}
				rgba = applySwizzle(rgba, swz)
				c.texels[(z*by+y)*bx+x] = c.toDomain(rgba)
			}
		}
	}
}

func (c *endpointContext) scatter(img *packer.Image, x0, y0, z0 int, swz Swizzle) {
	bx, by, bz := c.cfg.BlockX, c.cfg.BlockY, c.cfg.BlockZ
	for z := 0; z < bz && z0+z < img.DimZ; z++ {
		for y := 0; y < by && y0+y < img.DimY; y++ {
			for x := 0; x < bx && x0+x < img.DimX; x++ {
				rgba := c.fromDomain(c.texels[(z*by+y)*bx+x])
				rgba = applySwizzle(rgba, swz)
				dst := img.Texel(x0+x, y0+y, z0+z)
				for i := range rgba {
					dst[i] = f16.FromFloat32(rgba[i])
				}
			}
		}
	}
}

func (c *endpointContext) encodeBlock(dst []byte) {
	n := len(c.texels)
	var lo, hi [4]float32
	for i := 0; i < 4; i++ {
		lo[i], hi[i] = math.MaxFloat32, -math.MaxFloat32
	}
	for _, t := range c.texels {
		for i, v := range t {
			lo[i] = min(lo[i], v)
			hi[i] = max(hi[i], v)
		}
	}

	loC, hiC := quantizeEndpoint(lo), quantizeEndpoint(hi)
	c.project(loC, hiC)
	c.grid.fit(c.tw[:n], c.gw, c.acc)
	best := c.blockError(loC, hiC, c.gw)
	c.bestLoC, c.bestHiC = loC, hiC
	copy(c.bestGW, c.gw)

	for it := 0; it < c.cfg.Tuning.RefinementLimit && best > 0; it++ {
		c.grid.infill(c.bestGW, c.tw)
		nlo, nhi, ok := c.refit()
		if !ok {
			break
		}
		nloC, nhiC := quantizeEndpoint(nlo), quantizeEndpoint(nhi)
		c.project(nloC, nhiC)
		c.grid.fit(c.tw[:n], c.gw, c.acc)
		e := c.blockError(nloC, nhiC, c.gw)
		if e >= best {
			break
		}
		best = e
		c.bestLoC, c.bestHiC = nloC, nhiC
		copy(c.bestGW, c.gw)
	}

	copy(dst[0:4], c.bestLoC[:])
	copy(dst[4:8], c.bestHiC[:])
	var bits uint64
	lv := c.grid.levels()
	for i, w := range c.bestGW {
		q := uint64(math.Round(float64(w * lv)))
		bits |= q << (uint(i) * uint(c.grid.bits))
	}
	binary.LittleEndian.PutUint64(dst[8:16], bits)
}

func (c *endpointContext) decodeBlock(src []byte) {
	var loC, hiC [4]uint8
	copy(loC[:], src[0:4])
	copy(hiC[:], src[4:8])
	bits := binary.LittleEndian.Uint64(src[8:16])
	mask := uint64(1)<<uint(c.grid.bits) - 1
	lv := c.grid.levels()
	for i := range c.gw {
		c.gw[i] = float32((bits>>(uint(i)*uint(c.grid.bits)))&mask) / lv
	}
	c.grid.infill(c.gw, c.tw)
	lo, hi := dequantizeEndpoint(loC), dequantizeEndpoint(hiC)
	for t := range c.texels {
		w := c.tw[t]
		for i := 0; i < 4; i++ {
			c.texels[t][i] = lo[i] + w*(hi[i]-lo[i])
		}
	}
}

// project computes per-texel positions along the endpoint axis.
func (c *endpointContext) project(loC, hiC [4]uint8) {
	lo, hi := dequantizeEndpoint(loC), dequantizeEndpoint(hiC)
	var axis [4]float32
	var den float32
	for i := 0; i < 4; i++ {
		axis[i] = hi[i] - lo[i]
		den += c.weight[i] * axis[i] * axis[i]
	}
	for t, tx := range c.texels {
		if den == 0 {
			c.tw[t] = 0
			continue
		}
		var num float32
		for i := 0; i < 4; i++ {
			num += c.weight[i] * (tx[i] - lo[i]) * axis[i]
		}
		c.tw[t] = clamp01(num / den)
	}
}

// refit solves the per-channel least squares problem v = lo·(1-w) + hi·w for
// the current texel weights.
func (c *endpointContext) refit() (lo, hi [4]float32, ok bool) {
	var a, b, d float64
	for _, w := range c.tw {
		u := 1 - float64(w)
		a += u * u
		b += u * float64(w)
		d += float64(w) * float64(w)
	}
	det := a*d - b*b
	if math.Abs(det) < 1e-12 {
		return lo, hi, false
	}
	for i := 0; i < 4; i++ {
		var p, q float64
		for t, w := range c.tw {
			v := float64(c.texels[t][i])
			p += (1 - float64(w)) * v
			q += float64(w) * v
		}
		lo[i] = float32((d*p - b*q) / det)
		hi[i] = float32((a*q - b*p) / det)
	}
	return lo, hi, true
}

func (c *endpointContext) blockError(loC, hiC [4]uint8, gw []float32) float64 {
	lo, hi := dequantizeEndpoint(loC), dequantizeEndpoint(hiC)
	tw := c.ew
	c.grid.infill(gw, tw)
	var e float64
	for t, tx := range c.texels {
		for i := 0; i < 4; i++ {
			d := float64(lo[i] + tw[t]*(hi[i]-lo[i]) - tx[i])
			e += float64(c.weight[i]) * d * d
		}
	}
	return e
}

func quantizeEndpoint(v [4]float32) [4]uint8 {
	var out [4]uint8
	for i, x := range v {
		out[i] = uint8(math.Round(float64(clamp01(x) * endpointMax)))
	}
	return out
}

func dequantizeEndpoint(v [4]uint8) [4]float32 {
	var out [4]float32
	for i, x := range v {
		out[i] = float32(x) / endpointMax
	}
	return out
}

func clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
