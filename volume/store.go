package volume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hupe1980/fieldpack/blobstore"
	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/internal/mmap"
)

// Store persists volumes as named blobs.
type Store struct {
	blobs    blobstore.BlobStore
	envelope Envelope
	logger   *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithEnvelope wraps every written volume in the given envelope.
func WithEnvelope(e Envelope) StoreOption {
	return func(s *Store) { s.envelope = e }
}

// WithLogger sets the logger for store operations.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a Store over blobs.
func NewStore(blobs blobstore.BlobStore, opts ...StoreOption) *Store {
	s := &Store{
		blobs:  blobs,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Blobs returns the underlying blob store.
func (s *Store) Blobs() blobstore.BlobStore { return s.blobs }

// Envelope returns the envelope used for writes.
func (s *Store) Envelope() Envelope { return s.envelope }

// Save writes all images of v to name. With appendMode set and name present,
// the images are appended to the existing volume.
func (s *Store) Save(ctx context.Context, name string, v *Volume, appendMode bool) error {
	return s.SaveRange(ctx, name, v, 0, v.Count(), appendMode)
}

// SaveRange writes images [offset, offset+count) of v.
func (s *Store) SaveRange(ctx context.Context, name string, v *Volume, offset, count int, appendMode bool) error {
	if err := v.Validate(); err != nil {
		return err
	}
	part, err := v.Slice(offset, count)
	if err != nil {
		return err
	}

	if appendMode {
		existing, err := s.openHeader(ctx, name)
		switch {
		case errors.Is(err, blobstore.ErrNotFound):
			// Nothing to append to: write a new volume.
		case err != nil:
			return err
		default:
			return s.append(ctx, name, existing, part)
		}
	}

	if err := s.write(ctx, name, part); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "volume saved", "name", name, "images", part.Count(), "bytes", part.Size(), "envelope", s.envelope)
	return nil
}

// storedHead describes the first bytes of a stored blob.
type storedHead struct {
	header Header
	sealed bool
	size   int64
}

func (s *Store) openHeader(ctx context.Context, name string) (storedHead, error) {
	b, err := s.blobs.Open(ctx, name)
	if err != nil {
		return storedHead{}, err
	}
	defer b.Close()

	n := min(int64(envelopeHeaderSize), b.Size())
	head := make([]byte, n)
	if err := blobstore.ReadFull(ctx, b, head, 0); err != nil {
		return storedHead{}, err
	}
	if IsSealed(head) {
		return storedHead{sealed: true, size: b.Size()}, nil
	}
	h, err := UnmarshalHeader(head)
	if err != nil {
		return storedHead{}, err
	}
	return storedHead{header: h, size: b.Size()}, nil
}

func (s *Store) append(ctx context.Context, name string, existing storedHead, part *Volume) error {
	appender, canAppend := s.blobs.(blobstore.Appender)
	if canAppend && !existing.sealed && s.envelope == EnvelopeNone {
		if existing.header != part.Header {
			return field.Errorf("cannot append %s to %s in %q", part.Header, existing.header, name)
		}
		if (existing.size-HeaderSize)%int64(part.ImageLen()) != 0 {
			return fmt.Errorf("%w: %q does not hold whole images", ErrCorruptFile, name)
		}
		err := appender.Append(ctx, name, part.Data)
		if errors.Is(err, errors.ErrUnsupported) {
			return s.rewrite(ctx, name, part)
		}
		if err != nil {
			return err
		}
		s.logger.DebugContext(ctx, "volume appended", "name", name, "images", part.Count())
		return nil
	}
	return s.rewrite(ctx, name, part)
}

// rewrite appends by reading the stored volume and writing it back.
func (s *Store) rewrite(ctx context.Context, name string, part *Volume) error {
	old, err := s.Load(ctx, name)
	if err != nil {
		return err
	}
	if old.Header != part.Header {
		return field.Errorf("cannot append %s to %s in %q", part.Header, old.Header, name)
	}
	if err := old.Append(part); err != nil {
		return err
	}
	if err := s.write(ctx, name, old); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "volume rewritten", "name", name, "images", old.Count())
	return nil
}

func (s *Store) write(ctx context.Context, name string, v *Volume) error {
	if s.envelope != EnvelopeNone {
		raw, err := Marshal(v)
		if err != nil {
			return err
		}
		sealed, err := Seal(raw, s.envelope)
		if err != nil {
			return err
		}
		return s.blobs.Put(ctx, name, sealed)
	}

	w, err := s.blobs.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := Serialize(w, v, false); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Sync(); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Load reads the whole volume stored under name.
func (s *Store) Load(ctx context.Context, name string) (*Volume, error) {
	data, err := blobstore.Get(ctx, s.blobs, name)
	if err != nil {
		return nil, err
	}
	raw, _, err := Unseal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	v, err := Deserialize(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

// Map returns the volume stored under name without copying when the blob is
// memory mapped and unsealed. The volume is valid until the closer is closed.
// Other blobs are loaded into memory.
func (s *Store) Map(ctx context.Context, name string) (*Volume, io.Closer, error) {
	b, err := s.blobs.Open(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	m, ok := b.(blobstore.Mappable)
	if !ok {
		_ = b.Close()
		v, err := s.Load(ctx, name)
		return v, nopCloser{}, err
	}

	data, err := m.Bytes()
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}
	if IsSealed(data) {
		raw, _, err := Unseal(data)
		if err != nil {
			_ = b.Close()
			return nil, nil, fmt.Errorf("%s: %w", name, err)
		}
		// An uncompressed envelope aliases the mapping.
		raw = append([]byte(nil), raw...)
		_ = b.Close()
		v, err := Deserialize(raw)
		return v, nopCloser{}, err
	}

	v, err := Deserialize(data)
	if err != nil {
		_ = b.Close()
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	if a, ok := b.(interface{ Advise(mmap.AccessPattern) error }); ok {
		_ = a.Advise(mmap.AccessSequential)
	}
	return v, b, nil
}

// LoadImage reads image i of name. Unsealed blobs are read with a single
// range request.
func (s *Store) LoadImage(ctx context.Context, name string, i int) ([]byte, error) {
	v, err := s.LoadImages(ctx, name, i, 1)
	if err != nil {
		return nil, err
	}
	return v.Data, nil
}

// LoadImages reads images [start, start+count) of name.
func (s *Store) LoadImages(ctx context.Context, name string, start, count int) (*Volume, error) {
	b, err := s.blobs.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	head := make([]byte, min(int64(envelopeHeaderSize), b.Size()))
	if err := blobstore.ReadFull(ctx, b, head, 0); err != nil {
		return nil, err
	}
	if IsSealed(head) {
		v, err := s.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		part, err := v.Slice(start, count)
		if err != nil {
			return nil, err
		}
		return &Volume{Header: part.Header, Data: append([]byte(nil), part.Data...)}, nil
	}

	h, err := UnmarshalHeader(head)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	il := int64(h.ImageLen())
	body := b.Size() - HeaderSize
	if body%il != 0 {
		return nil, fmt.Errorf("%s: %w: %d data bytes is not a multiple of the %d byte image", name, ErrCorruptFile, body, il)
	}
	total := int(body / il)
	if start < 0 || count < 0 || start+count > total {
		return nil, field.Errorf("image range [%d,%d) outside volume of %d images", start, start+count, total)
	}

	data := make([]byte, int64(count)*il)
	if err := blobstore.ReadFull(ctx, b, data, HeaderSize+int64(start)*il); err != nil {
		return nil, err
	}
	return &Volume{Header: h, Data: data}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Info describes a stored volume.
type Info struct {
	Header
	Images     int
	StoredSize int64
	RawSize    int64
	Envelope   Envelope
	Sealed     bool
}

// Info reads the geometry of name. Sealed volumes are decoded in full.
func (s *Store) Info(ctx context.Context, name string) (Info, error) {
	head, err := s.openHeader(ctx, name)
	if err != nil {
		return Info{}, err
	}
	if !head.sealed {
		il := int64(head.header.ImageLen())
		body := head.size - HeaderSize
		if body%il != 0 {
			return Info{}, fmt.Errorf("%s: %w: %d data bytes is not a multiple of the %d byte image", name, ErrCorruptFile, body, il)
		}
		return Info{
			Header:     head.header,
			Images:     int(body / il),
			StoredSize: head.size,
			RawSize:    head.size,
		}, nil
	}

	data, err := blobstore.Get(ctx, s.blobs, name)
	if err != nil {
		return Info{}, err
	}
	raw, e, err := Unseal(data)
	if err != nil {
		return Info{}, fmt.Errorf("%s: %w", name, err)
	}
	v, err := Deserialize(raw)
	if err != nil {
		return Info{}, fmt.Errorf("%s: %w", name, err)
	}
	return Info{
		Header:     v.Header,
		Images:     v.Count(),
		StoredSize: int64(len(data)),
		RawSize:    int64(len(raw)),
		Envelope:   e,
		Sealed:     true,
	}, nil
}

// Delete removes name.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.blobs.Delete(ctx, name)
}

// List returns the stored volume names with the given prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	return s.blobs.List(ctx, prefix)
}
