package stream

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/volume"
)

// SliceSource yields the upload payload of each time slice.
type SliceSource interface {
	// Slices returns the number of time slices.
	Slices() int
	// SliceBytes returns the payload size of one slice.
	SliceBytes() int
	// Slice returns slice i. The bytes are valid until the next call.
	Slice(ctx context.Context, i int) ([]byte, error)
}

// VolumeSource serves compressed slices from a volume whose images are stored
// time-major, imagesPerSlice images per time step.
type VolumeSource struct {
	vol      *volume.Volume
	perSlice int
}

// NewVolumeSource returns a source over vol. imagesPerSlice is Z for plane
// slicing and 1 for volume slicing.
func NewVolumeSource(vol *volume.Volume, imagesPerSlice int) (*VolumeSource, error) {
	if err := vol.Validate(); err != nil {
		return nil, err
	}
	if imagesPerSlice < 1 {
		return nil, field.Errorf("images per slice %d < 1", imagesPerSlice)
	}
	if n := vol.Count(); n%imagesPerSlice != 0 {
		return nil, field.Errorf("%d images do not split into slices of %d", n, imagesPerSlice)
	}
	return &VolumeSource{vol: vol, perSlice: imagesPerSlice}, nil
}

func (s *VolumeSource) Slices() int { return s.vol.Count() / s.perSlice }

func (s *VolumeSource) SliceBytes() int { return s.perSlice * s.vol.ImageLen() }

func (s *VolumeSource) Slice(_ context.Context, i int) ([]byte, error) {
	if i < 0 || i >= s.Slices() {
		return nil, field.Errorf("slice %d outside [0,%d)", i, s.Slices())
	}
	return s.vol.Images(i*s.perSlice, s.perSlice), nil
}

// RawSource serves uncompressed float32 slices of a raw field, encoded little
// endian.
type RawSource struct {
	raw *field.RawField
	buf []byte
}

// NewRawSource returns a source over raw.
func NewRawSource(raw *field.RawField) (*RawSource, error) {
	if raw == nil {
		return nil, field.Errorf("nil field")
	}
	if err := raw.Grid.Validate(); err != nil {
		return nil, err
	}
	return &RawSource{raw: raw}, nil
}

func (s *RawSource) Slices() int { return s.raw.Grid.T }

func (s *RawSource) SliceBytes() int { return 4 * s.raw.Grid.StepLen() }

func (s *RawSource) Slice(_ context.Context, i int) ([]byte, error) {
	if i < 0 || i >= s.Slices() {
		return nil, field.Errorf("slice %d outside [0,%d)", i, s.Slices())
	}
	if s.buf == nil {
		s.buf = make([]byte, s.SliceBytes())
	}
	for j, v := range s.raw.Step(i) {
		binary.LittleEndian.PutUint32(s.buf[4*j:], math.Float32bits(v))
	}
	return s.buf, nil
}
