package blockcodec

import "math"

// hdrScale maps log2(1+v) for v in [0, 65504] onto [0,1].
var hdrScale = float32(1 / math.Log2(65505))

func (c *endpointContext) toDomain(v [4]float32) [4]float32 {
	p := c.cfg.Profile
	for i := 0; i < 3; i++ {
		switch {
		case p.hdrRGB():
			v[i] = hdrEncode(v[i])
		case p == ProfileLDRSRGB:
			v[i] = linearToSRGB(clamp01(v[i]))
		default:
			v[i] = clamp01(v[i])
		}
	}
	if p.hdrAlpha() {
		v[3] = hdrEncode(v[3])
	} else {
		v[3] = clamp01(v[3])
	}
	return v
}

func (c *endpointContext) fromDomain(v [4]float32) [4]float32 {
	p := c.cfg.Profile
	for i := 0; i < 3; i++ {
		switch {
		case p.hdrRGB():
			v[i] = hdrDecode(v[i])
		case p == ProfileLDRSRGB:
			v[i] = srgbToLinear(v[i])
		}
	}
	if p.hdrAlpha() {
		v[3] = hdrDecode(v[3])
	}
	return v
}

func hdrEncode(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	return clamp01(float32(math.Log2(1+float64(v))) * hdrScale)
}

func hdrDecode(v float32) float32 {
	return float32(math.Exp2(float64(v/hdrScale)) - 1)
}

func linearToSRGB(v float32) float32 {
	if v <= 0.0031308 {
		return v * 12.92
	}
	return float32(1.055*math.Pow(float64(v), 1/2.4) - 0.055)
}

func srgbToLinear(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return float32(math.Pow((float64(v)+0.055)/1.055, 2.4))
}

func applySwizzle(v [4]float32, s Swizzle) [4]float32 {
	if s == SwizzleRGBA {
		return v
	}
	pick := func(c Component) float32 {
		switch c {
		case SwzR, SwzG, SwzB, SwzA:
			return v[c]
		case Swz0:
			return 0
		case Swz1:
			return 1
		case SwzZ:
			x, y := 2*v[0]-1, 2*v[3]-1
			z := 1 - x*x - y*y
			if z < 0 {
				z = 0
			}
			return 0.5 + 0.5*float32(math.Sqrt(float64(z)))
		}
		return 0
	}
	return [4]float32{pick(s.R), pick(s.G), pick(s.B), pick(s.A)}
}
