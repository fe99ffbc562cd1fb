package volume

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/fieldpack/field"
)

const (
	// Magic identifies a volume file.
	Magic uint32 = 0x5CA1AB13
	// HeaderSize is the size of the volume header in bytes.
	HeaderSize = 16
	// MaxDim is the largest image extent the header can hold.
	MaxDim = 1<<24 - 1
	// MaxBlock is the largest block extent the header can hold.
	MaxBlock = 255
	// BlockBytes is the compressed size of one block.
	BlockBytes = 16
)

// ErrCorruptFile is returned for data that is not a well-formed volume.
var ErrCorruptFile = errors.New("corrupt volume file")

// Header describes the block and image geometry shared by all images.
type Header struct {
	BlockX, BlockY, BlockZ int
	DimX, DimY, DimZ       int
}

// Blocks returns the number of blocks per image.
func (h Header) Blocks() int {
	return ceilDiv(h.DimX, h.BlockX) * ceilDiv(h.DimY, h.BlockY) * ceilDiv(h.DimZ, h.BlockZ)
}

// ImageLen returns the compressed size of one image in bytes.
func (h Header) ImageLen() int {
	return h.Blocks() * BlockBytes
}

// Validate checks that h can be represented in the header.
func (h Header) Validate() error {
	for _, b := range [...]struct {
		name string
		v    int
	}{{"block x", h.BlockX}, {"block y", h.BlockY}, {"block z", h.BlockZ}} {
		if b.v < 1 || b.v > MaxBlock {
			return field.Errorf("%s %d out of range [1,%d]", b.name, b.v, MaxBlock)
		}
	}
	for _, d := range [...]struct {
		name string
		v    int
	}{{"image x", h.DimX}, {"image y", h.DimY}, {"image z", h.DimZ}} {
		if d.v < 1 || d.v > MaxDim {
			return field.Errorf("%s %d out of range [1,%d]", d.name, d.v, MaxDim)
		}
	}
	return nil
}

func (h Header) String() string {
	return fmt.Sprintf("%dx%dx%d blocks of %dx%dx%d", h.DimX, h.DimY, h.DimZ, h.BlockX, h.BlockY, h.BlockZ)
}

// MarshalHeader encodes h.
func MarshalHeader(h Header) ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:], Magic)
	b[4] = byte(h.BlockX)
	b[5] = byte(h.BlockY)
	b[6] = byte(h.BlockZ)
	put24(b[7:], h.DimX)
	put24(b[10:], h.DimY)
	put24(b[13:], h.DimZ)
	return b, nil
}

// UnmarshalHeader decodes the first HeaderSize bytes of b.
// Block extents of 0 are read as 1.
func UnmarshalHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptFile, len(b))
	}
	if m := binary.LittleEndian.Uint32(b[0:]); m != Magic {
		return Header{}, fmt.Errorf("%w: bad magic %#08x", ErrCorruptFile, m)
	}
	h := Header{
		BlockX: max(int(b[4]), 1),
		BlockY: max(int(b[5]), 1),
		BlockZ: max(int(b[6]), 1),
		DimX:   get24(b[7:]),
		DimY:   get24(b[10:]),
		DimZ:   get24(b[13:]),
	}
	if h.DimX == 0 || h.DimY == 0 || h.DimZ == 0 {
		return Header{}, fmt.Errorf("%w: zero image extent %dx%dx%d", ErrCorruptFile, h.DimX, h.DimY, h.DimZ)
	}
	return h, nil
}

func put24(b []byte, v int) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func get24(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// Serialize writes v to w. With appendOnly set only the image bytes are
// written, for extending an existing file.
func Serialize(w io.Writer, v *Volume, appendOnly bool) (int64, error) {
	if err := v.Validate(); err != nil {
		return 0, err
	}
	var total int64
	if !appendOnly {
		hdr, err := MarshalHeader(v.Header)
		if err != nil {
			return 0, err
		}
		n, err := w.Write(hdr)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	n, err := w.Write(v.Data)
	total += int64(n)
	return total, err
}

// Marshal returns the complete serialized form of v.
func Marshal(v *Volume) ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	hdr, err := MarshalHeader(v.Header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, HeaderSize+len(v.Data))
	out = append(out, hdr...)
	return append(out, v.Data...), nil
}

// Deserialize parses a serialized volume. The returned volume aliases data.
func Deserialize(data []byte) (*Volume, error) {
	h, err := UnmarshalHeader(data)
	if err != nil {
		return nil, err
	}
	body := data[HeaderSize:]
	il := h.ImageLen()
	if len(body)%il != 0 {
		return nil, fmt.Errorf("%w: %d data bytes is not a multiple of the %d byte image", ErrCorruptFile, len(body), il)
	}
	return &Volume{Header: h, Data: body}, nil
}

// Read reads a whole serialized volume from r.
func Read(r io.Reader) (*Volume, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Deserialize(data)
}
