package field

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// RawField is a flat float32 array indexed by (t,z,y,x,component).
// The caller owns Data; nothing in this module mutates it.
type RawField struct {
	Grid Grid
	Data []float32
}

// New allocates a zeroed field for grid.
func New(grid Grid) (*RawField, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	return &RawField{Grid: grid, Data: make([]float32, grid.Len())}, nil
}

// Wrap validates that data covers grid and returns a field referencing it.
func Wrap(grid Grid, data []float32) (*RawField, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if len(data) < grid.Len() {
		return nil, Errorf("raw data has %d components, grid %s needs %d", len(data), grid, grid.Len())
	}
	return &RawField{Grid: grid, Data: data[:grid.Len()]}, nil
}

// Len returns the number of components.
func (f *RawField) Len() int { return len(f.Data) }

// Step returns the components of time step t.
func (f *RawField) Step(t int) []float32 {
	n := f.Grid.StepLen()
	return f.Data[t*n : (t+1)*n]
}

// Layer returns the components of depth layer z of time step t.
func (f *RawField) Layer(t, z int) []float32 {
	n := f.Grid.LayerLen()
	off := (t*f.Grid.Z + z) * n
	return f.Data[off : off+n]
}

// At returns component c of sample (t,z,y,x).
func (f *RawField) At(t, z, y, x, c int) float32 {
	return f.Data[f.Grid.Offset(t, z, y, x, c)]
}

// Set assigns component c of sample (t,z,y,x).
func (f *RawField) Set(t, z, y, x, c int, v float32) {
	f.Data[f.Grid.Offset(t, z, y, x, c)] = v
}

const ioChunk = 1 << 14

// ReadFrom decodes grid.Len() little-endian float32 values from r.
func ReadFrom(r io.Reader, grid Grid) (*RawField, error) {
	f, err := New(grid)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(r, ioChunk*4)
	buf := make([]byte, ioChunk*4)
	for off := 0; off < len(f.Data); {
		n := min(ioChunk, len(f.Data)-off)
		if _, err := io.ReadFull(br, buf[:n*4]); err != nil {
			return nil, fmt.Errorf("read raw field at component %d: %w", off, err)
		}
		for i := 0; i < n; i++ {
			f.Data[off+i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		off += n
	}
	return f, nil
}

// WriteTo encodes the field as little-endian float32 values.
func (f *RawField) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriterSize(w, ioChunk*4)
	var b [4]byte
	var written int64
	for _, v := range f.Data {
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		n, err := bw.Write(b[:])
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}

// Load reads a raw field file (flat little-endian float32 in t,z,y,x,component order).
// The file must hold at least grid.Len() values.
func Load(path string, grid Grid) (*RawField, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()

	st, err := fh.Stat()
	if err != nil {
		return nil, err
	}
	if need := int64(grid.Len()) * 4; st.Size() < need {
		return nil, Errorf("raw file %s has %d bytes, grid %s needs %d", path, st.Size(), grid, need)
	}
	return ReadFrom(fh, grid)
}

// Save writes f to path, replacing any existing file.
func (f *RawField) Save(path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.WriteTo(fh); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}
