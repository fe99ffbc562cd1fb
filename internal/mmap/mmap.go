package mmap

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

// AccessPattern is a hint to the kernel about upcoming reads.
type AccessPattern int

const (
	AccessDefault AccessPattern = iota
	// AccessSequential suits slice-by-slice streaming.
	AccessSequential
	// AccessRandom suits single-image lookups.
	AccessRandom
	AccessWillNeed
)

// ErrClosed is returned when using a closed mapping.
var ErrClosed = errors.New("mmap: mapping closed")

// Mapping is a read-only memory-mapped file.
type Mapping struct {
	data   []byte
	f      *os.File
	closed atomic.Bool
}

// Open maps the file at path into memory as read-only.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &Mapping{f: f}, nil
	}
	if int64(int(size)) != size {
		f.Close()
		return nil, errors.New("mmap: file too large for address space")
	}

	data, err := mmap(f, int(size))
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Mapping{data: data, f: f}, nil
}

// Bytes returns the mapped contents.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Size returns the mapped length in bytes.
func (m *Mapping) Size() int {
	return len(m.data)
}

// ReadAt implements io.ReaderAt.
func (m *Mapping) ReadAt(p []byte, off int64) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Advise passes an access hint for the whole mapping.
func (m *Mapping) Advise(p AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if len(m.data) == 0 {
		return nil
	}
	return madvise(m.data, p)
}

// Close unmaps the memory and closes the file. It is idempotent.
func (m *Mapping) Close() error {
	if m == nil || !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if m.data != nil {
		err = munmap(m.data)
		m.data = nil
	}
	if cerr := m.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
