package peaks

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
)

// ErrCorruptFile is returned when a peaks file is not a whole number of pairs.
var ErrCorruptFile = errors.New("corrupt peaks file")

// Encode serializes p as flat little-endian float32 values, two per pair, no header.
func Encode(p Peaks) []byte {
	out := make([]byte, 8*len(p.Pairs))
	for i, pr := range p.Pairs {
		binary.LittleEndian.PutUint32(out[8*i:], math.Float32bits(pr.Min))
		binary.LittleEndian.PutUint32(out[8*i+4:], math.Float32bits(pr.Max))
	}
	return out
}

// Decode parses the flat peaks layout. The file carries no mode, so the caller supplies it.
func Decode(data []byte, mode Mode, vecLen int) (Peaks, error) {
	if len(data)%8 != 0 {
		return Peaks{}, fmt.Errorf("%w: %d bytes is not a multiple of 8", ErrCorruptFile, len(data))
	}
	flat := make([]float32, len(data)/4)
	for i := range flat {
		flat[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return FromFlat(flat, mode, vecLen)
}

// WriteFile writes p to path.
func WriteFile(path string, p Peaks) error {
	return os.WriteFile(path, Encode(p), 0o644)
}

// ReadFile reads a peaks file written by WriteFile.
func ReadFile(path string, mode Mode, vecLen int) (Peaks, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Peaks{}, err
	}
	p, err := Decode(data, mode, vecLen)
	if err != nil {
		return Peaks{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
