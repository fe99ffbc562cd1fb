package blockcodec

import (
	"fmt"
	"math"
	"strings"
)

// Profile selects the colour domain the encoder works in.
type Profile uint8

const (
	ProfileLDR Profile = iota
	ProfileLDRSRGB
	ProfileHDRRGBLDRA
	ProfileHDR
)

func (p Profile) String() string {
	switch p {
	case ProfileLDR:
		return "LDR linear"
	case ProfileLDRSRGB:
		return "LDR sRGB"
	case ProfileHDRRGBLDRA:
		return "HDR RGB + LDR A"
	case ProfileHDR:
		return "HDR RGBA"
	default:
		return fmt.Sprintf("Profile(%d)", uint8(p))
	}
}

// ParseProfile parses "ldr", "ldr-srgb", "hdr-rgb-ldr-a" or "hdr".
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ldr", "":
		return ProfileLDR, nil
	case "ldr-srgb", "srgb":
		return ProfileLDRSRGB, nil
	case "hdr-rgb-ldr-a":
		return ProfileHDRRGBLDRA, nil
	case "hdr":
		return ProfileHDR, nil
	}
	return 0, newError(StatusBadProfile, "unknown profile %q", s)
}

func (p Profile) hdrRGB() bool   { return p == ProfileHDRRGBLDRA || p == ProfileHDR }
func (p Profile) hdrAlpha() bool { return p == ProfileHDR }

// Preset is a quality level in [0,100]; the named presets are the table nodes,
// values in between interpolate the tuning limits.
type Preset float32

const (
	PresetFastest    Preset = 0
	PresetFast       Preset = 10
	PresetMedium     Preset = 60
	PresetThorough   Preset = 98
	PresetExhaustive Preset = 100
)

func (p Preset) String() string {
	switch p {
	case PresetFastest:
		return "fastest"
	case PresetFast:
		return "fast"
	case PresetMedium:
		return "medium"
	case PresetThorough:
		return "thorough"
	case PresetExhaustive:
		return "exhaustive"
	default:
		return fmt.Sprintf("quality %.1f", float32(p))
	}
}

// ParsePreset accepts a preset name or a numeric quality.
func ParsePreset(s string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fastest":
		return PresetFastest, nil
	case "fast", "":
		return PresetFast, nil
	case "medium":
		return PresetMedium, nil
	case "thorough":
		return PresetThorough, nil
	case "exhaustive":
		return PresetExhaustive, nil
	}
	var q float32
	if _, err := fmt.Sscanf(s, "%g", &q); err != nil || q < 0 || q > 100 {
		return 0, newError(StatusBadQuality, "unknown preset %q", s)
	}
	return Preset(q), nil
}

// Flags toggle encoder modes.
type Flags uint32

const (
	// FlagMapNormal encodes two-component normal maps (X in RGB, Y in alpha).
	FlagMapNormal Flags = 1 << iota
	// FlagUsePerceptual weights channels by perceived luminance. Requires FlagMapNormal.
	FlagUsePerceptual
	// FlagMapMask treats channels as independent masks.
	FlagMapMask
	// FlagUseAlphaWeight scales RGB error by alpha.
	FlagUseAlphaWeight

	flagsAll = FlagMapNormal | FlagUsePerceptual | FlagMapMask | FlagUseAlphaWeight
)

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, n := range []struct {
		f    Flags
		name string
	}{{FlagMapNormal, "normal"}, {FlagUsePerceptual, "perceptual"}, {FlagMapMask, "mask"}, {FlagUseAlphaWeight, "alpha-weight"}} {
		if f&n.f != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Component is one source selector of a Swizzle.
type Component uint8

const (
	SwzR Component = iota
	SwzG
	SwzB
	SwzA
	Swz0
	Swz1
	// SwzZ reconstructs the third normal component from the stored X (R) and Y (A). Decode only.
	SwzZ
)

// Swizzle maps output channels to source components.
type Swizzle struct {
	R, G, B, A Component
}

var (
	// SwizzleRGBA is the identity swizzle.
	SwizzleRGBA = Swizzle{SwzR, SwzG, SwzB, SwzA}
	// SwizzleNormalEncode stores X in RGB and Y in alpha.
	SwizzleNormalEncode = Swizzle{SwzR, SwzR, SwzR, SwzG}
	// SwizzleNormalDecode restores X, Y and a reconstructed Z.
	SwizzleNormalDecode = Swizzle{SwzR, SwzA, SwzZ, Swz1}
)

func (s Swizzle) String() string {
	const names = "RGBA01Z"
	return string([]byte{names[s.R], names[s.G], names[s.B], names[s.A]})
}

// ErrorWeights configures the per-texel error weighting of RGB and alpha.
type ErrorWeights struct {
	Radius      int
	RGBPower    float32
	RGBBase     float32
	RGBMean     float32
	RGBStdev    float32
	RGBMix      float32
	AlphaPower  float32
	AlphaBase   float32
	AlphaMean   float32
	AlphaStdev  float32
	AlphaRadius int
}

// Tuning holds the search limits derived from the preset.
type Tuning struct {
	PartitionLimit      int
	BlockModeLimit      int
	RefinementLimit     int
	CandidateLimit      int
	DBLimit             float32
	PartitionEarlyOut   float32
	TwoPlaneCorrelation float32
}

// Config is the full encoder configuration.
type Config struct {
	Profile Profile
	Flags   Flags
	BlockX  int
	BlockY  int
	BlockZ  int
	Preset  Preset

	// ChannelWeights scale the error of R, G, B and A.
	ChannelWeights [4]float32
	ErrorWeights   ErrorWeights
	// EdgeScale weights texels near block edges to reduce blocking artifacts.
	EdgeScale float32
	Tuning    Tuning
}

type presetNode struct {
	quality        float32
	partitionLimit int
	blockModeLimit int
	refinement     int
	candidates     int
	dbA, dbB       float32
	earlyOut       float32
	twoPlane       float32
}

var (
	presetsHigh = []presetNode{
		{0, 2, 43, 2, 2, 85.2, 63.2, 1.0, 0.85},
		{10, 3, 55, 3, 3, 85.2, 63.2, 1.0, 0.90},
		{60, 4, 77, 3, 3, 95.0, 70.0, 1.1, 0.95},
		{98, 4, 94, 4, 4, 105.0, 77.0, 1.35, 0.97},
		{99, 4, 98, 4, 6, 200.0, 200.0, 1.6, 0.98},
		{100, 4, 100, 4, 8, 200.0, 200.0, 2.0, 0.99},
	}
	presetsMid = []presetNode{
		{0, 2, 43, 2, 2, 85.2, 63.2, 1.0, 0.80},
		{10, 3, 55, 3, 3, 85.2, 63.2, 1.0, 0.85},
		{60, 3, 77, 3, 3, 95.0, 70.0, 1.1, 0.90},
		{98, 4, 94, 4, 4, 105.0, 77.0, 1.4, 0.95},
		{99, 4, 98, 4, 6, 200.0, 200.0, 1.6, 0.98},
		{100, 4, 100, 4, 8, 200.0, 200.0, 2.0, 0.99},
	}
	presetsLow = []presetNode{
		{0, 2, 40, 2, 2, 85.0, 63.0, 1.0, 0.80},
		{10, 2, 55, 3, 3, 85.0, 63.0, 1.0, 0.85},
		{60, 3, 77, 3, 3, 95.0, 70.0, 1.1, 0.90},
		{98, 4, 93, 4, 4, 105.0, 77.0, 1.3, 0.97},
		{99, 4, 98, 4, 6, 200.0, 200.0, 1.6, 0.98},
		{100, 4, 100, 4, 8, 200.0, 200.0, 2.0, 0.99},
	}
)

// ConfigInit returns a validated configuration with the defaults of the given
// preset, profile and flags applied. blockZ == 0 is treated as 1.
func ConfigInit(profile Profile, blockX, blockY, blockZ int, preset Preset, flags Flags) (Config, error) {
	if blockZ == 0 {
		blockZ = 1
	}
	cfg := Config{
		Profile:        profile,
		Flags:          flags,
		BlockX:         blockX,
		BlockY:         blockY,
		BlockZ:         blockZ,
		Preset:         preset,
		ChannelWeights: [4]float32{1, 1, 1, 1},
		ErrorWeights: ErrorWeights{
			RGBPower:   1,
			RGBBase:    1,
			RGBMix:     1,
			AlphaPower: 1,
			AlphaBase:  1,
		},
	}
	if preset < 0 || preset > 100 {
		return Config{}, newError(StatusBadQuality, "quality %.1f outside [0,100]", float32(preset))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	cfg.Tuning = tuningFor(preset, blockX*blockY*blockZ)

	if profile.hdrRGB() {
		cfg.Tuning.DBLimit = 999
	}
	switch {
	case flags&FlagMapNormal != 0:
		cfg.ChannelWeights[1] = 0
		cfg.ChannelWeights[2] = 0
		if cfg.Tuning.PartitionLimit < 4 {
			cfg.Tuning.PartitionLimit++
		}
		cfg.Tuning.PartitionEarlyOut *= 1.5
		cfg.Tuning.TwoPlaneCorrelation = 0.99
		cfg.Tuning.DBLimit *= 1.03
		if flags&FlagUsePerceptual != 0 {
			cfg.ErrorWeights.Radius = 3
			cfg.ErrorWeights.RGBMean = 0
			cfg.ErrorWeights.RGBStdev = 50
			cfg.ErrorWeights.RGBMix = 0
		}
	case flags&FlagUsePerceptual != 0:
		cfg.ChannelWeights[0] = 0.30 * 2.25
		cfg.ChannelWeights[1] = 0.59 * 2.25
		cfg.ChannelWeights[2] = 0.11 * 2.25
	}
	if flags&FlagMapMask != 0 {
		cfg.ErrorWeights.Radius = 3
		cfg.ErrorWeights.RGBMix = 0.03
		cfg.ErrorWeights.AlphaRadius = 1
	}
	return cfg, nil
}

func tuningFor(q Preset, texels int) Tuning {
	nodes := presetsLow
	switch {
	case texels < 25:
		nodes = presetsHigh
	case texels < 64:
		nodes = presetsMid
	}

	end := 0
	for end < len(nodes) && nodes[end].quality < float32(q) {
		end++
	}
	if end >= len(nodes) {
		end = len(nodes) - 1
	}
	start := end
	if end > 0 && nodes[end].quality != float32(q) {
		start = end - 1
	}

	a, b := nodes[start], nodes[end]
	wb := float32(0)
	if b.quality > a.quality {
		wb = (float32(q) - a.quality) / (b.quality - a.quality)
	}
	wa := 1 - wb
	lerp := func(x, y float32) float32 { return x*wa + y*wb }
	lerpi := func(x, y int) int { return int(lerp(float32(x), float32(y)) + 0.5) }

	lt := math.Log10(float64(texels))
	return Tuning{
		PartitionLimit:  lerpi(a.partitionLimit, b.partitionLimit),
		BlockModeLimit:  lerpi(a.blockModeLimit, b.blockModeLimit),
		RefinementLimit: lerpi(a.refinement, b.refinement),
		CandidateLimit:  lerpi(a.candidates, b.candidates),
		DBLimit: float32(math.Max(
			float64(lerp(a.dbA, b.dbA))-35*lt,
			float64(lerp(a.dbB, b.dbB))-19*lt,
		)),
		PartitionEarlyOut:   lerp(a.earlyOut, b.earlyOut),
		TwoPlaneCorrelation: lerp(a.twoPlane, b.twoPlane),
	}
}

// Validate checks the profile, flags, block footprint and channel weights.
func (c Config) Validate() error {
	if c.Profile > ProfileHDR {
		return newError(StatusBadProfile, "unknown profile %d", c.Profile)
	}
	if c.Flags&^flagsAll != 0 {
		return newError(StatusBadFlags, "unknown flags %#x", uint32(c.Flags))
	}
	if !legalBlockSize(c.BlockX, c.BlockY, c.BlockZ) {
		return newError(StatusBadBlockSize, "illegal block size %dx%dx%d", c.BlockX, c.BlockY, c.BlockZ)
	}
	for _, w := range c.ChannelWeights {
		if w < 0 {
			return newError(StatusBadParam, "negative channel weight %g", w)
		}
	}
	return nil
}

func legalBlockSize(x, y, z int) bool {
	if z <= 1 {
		switch x<<8 | y {
		case 0x0404, 0x0504, 0x0505, 0x0605, 0x0606, 0x0805, 0x0806, 0x0808,
			0x0A05, 0x0A06, 0x0A08, 0x0A0A, 0x0C0A, 0x0C0C:
			return z == 1
		}
		return false
	}
	switch x<<16 | y<<8 | z {
	case 0x030303, 0x040303, 0x040403, 0x040404, 0x050404, 0x050504,
		0x050505, 0x060505, 0x060605, 0x060606:
		return true
	}
	return false
}

// TexelsPerBlock returns BlockX·BlockY·BlockZ.
func (c Config) TexelsPerBlock() int { return c.BlockX * c.BlockY * c.BlockZ }

// BitRate returns bits per texel.
func (c Config) BitRate() float64 { return 128 / float64(c.TexelsPerBlock()) }

// Is3D reports whether the footprint spans more than one depth layer.
func (c Config) Is3D() bool { return c.BlockZ > 1 }

// EncodeSwizzle returns the swizzle applied before encoding.
func (c Config) EncodeSwizzle() Swizzle {
	if c.Flags&FlagMapNormal != 0 {
		return SwizzleNormalEncode
	}
	return SwizzleRGBA
}

// DecodeSwizzle returns the swizzle applied after decoding.
func (c Config) DecodeSwizzle() Swizzle {
	if c.Flags&FlagMapNormal != 0 {
		return SwizzleNormalDecode
	}
	return SwizzleRGBA
}

// BlockCount returns the number of blocks covering an image.
func (c Config) BlockCount(dimX, dimY, dimZ int) int {
	return ceilDiv(dimX, c.BlockX) * ceilDiv(dimY, c.BlockY) * ceilDiv(dimZ, c.BlockZ)
}

// ImageLen returns the compressed size in bytes of an image.
func (c Config) ImageLen(dimX, dimY, dimZ int) int {
	return c.BlockCount(dimX, dimY, dimZ) * BlockBytes
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// Describe renders a human readable summary of the settings.
func (c Config) Describe() string {
	var b strings.Builder
	row := func(k string, format string, args ...any) {
		fmt.Fprintf(&b, "    %-28s%s\n", k+":", fmt.Sprintf(format, args...))
	}
	b.WriteString("Compressor settings\n===================\n\n")
	row("Color profile", "%s", c.Profile)
	if c.Is3D() {
		row("Block size", "%dx%dx%d", c.BlockX, c.BlockY, c.BlockZ)
	} else {
		row("Block size", "%dx%d", c.BlockX, c.BlockY)
	}
	row("Bitrate", "%3.2f bpp", c.BitRate())
	row("Preset", "%s", c.Preset)
	row("Flags", "%s", c.Flags)
	row("Swizzle", "%s -> %s", c.EncodeSwizzle(), c.DecodeSwizzle())
	ew := c.ErrorWeights
	row("Radius mean/stdev", "%d texels", ew.Radius)
	row("RGB power", "%g", ew.RGBPower)
	row("RGB base weight", "%g", ew.RGBBase)
	row("RGB mean weight", "%g", ew.RGBMean)
	row("RGB stdev weight", "%g", ew.RGBStdev)
	row("RGB mean/stdev mixing", "%g", ew.RGBMix)
	row("Alpha power", "%g", ew.AlphaPower)
	row("Alpha base weight", "%g", ew.AlphaBase)
	row("Alpha mean weight", "%g", ew.AlphaMean)
	row("Alpha stdev weight", "%g", ew.AlphaStdev)
	if c.Flags&FlagMapNormal != 0 {
		row("Radius RGB alpha scale", "%d texels", ew.AlphaRadius)
	}
	cw := c.ChannelWeights
	row("Channel weights", "R %g G %g B %g A %g", cw[0], cw[1], cw[2], cw[3])
	row("Deblock artifact setting", "%g", c.EdgeScale)
	t := c.Tuning
	row("Block partition cutoff", "%d partitions", t.PartitionLimit)
	row("PSNR cutoff", "%g dB", t.DBLimit)
	row("1->2 partition cutoff", "%g", t.PartitionEarlyOut)
	row("2 plane correlation cutoff", "%g", t.TwoPlaneCorrelation)
	row("Block mode centile cutoff", "%d%%", t.BlockModeLimit)
	row("Max refinement cutoff", "%d iterations", t.RefinementLimit)
	row("Candidate cutoff", "%d", t.CandidateLimit)
	return b.String()
}
