package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/fieldpack/internal/cache"
	"github.com/hupe1980/fieldpack/internal/resource"
)

// DefaultCacheBlockSize is the block size used when none is given. It covers a
// few hundred compressed 4x4 blocks, a typical single-image range read.
const DefaultCacheBlockSize = 64 << 10

// CachingStore wraps a remote BlobStore and caches fixed-size blocks of the
// blobs it reads. Writes invalidate the cached blocks of the written blob.
type CachingStore struct {
	inner     BlobStore
	cache     *cache.LRU
	rc        *resource.Controller
	blockSize int64
}

// NewCachingStore creates a new CachingStore.
// blockSize defaults to DefaultCacheBlockSize if <= 0. rc may be nil; when set
// it bounds concurrent fetches.
func NewCachingStore(inner BlobStore, c *cache.LRU, rc *resource.Controller, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = DefaultCacheBlockSize
	}
	return &CachingStore{
		inner:     inner,
		cache:     c,
		rc:        rc,
		blockSize: blockSize,
	}
}

func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &CachingBlob{
		inner:     b,
		cache:     s.cache,
		rc:        s.rc,
		name:      name,
		blockSize: s.blockSize,
	}, nil
}

func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &invalidatingBlob{WritableBlob: w, cache: s.cache, name: name}, nil
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.InvalidatePath(name)
	return s.inner.Put(ctx, name, data)
}

// Append forwards to the inner store when it can append; the returned error
// is errors.ErrUnsupported otherwise.
func (s *CachingStore) Append(ctx context.Context, name string, data []byte) error {
	a, ok := s.inner.(Appender)
	if !ok {
		return errors.ErrUnsupported
	}
	s.cache.InvalidatePath(name)
	return a.Append(ctx, name, data)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.InvalidatePath(name)
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type invalidatingBlob struct {
	WritableBlob
	cache *cache.LRU
	name  string
}

func (w *invalidatingBlob) Close() error {
	err := w.WritableBlob.Close()
	w.cache.InvalidatePath(w.name)
	return err
}

// CachingBlob wraps a Blob and serves reads through the block cache.
type CachingBlob struct {
	inner     Blob
	cache     *cache.LRU
	rc        *resource.Controller
	name      string
	blockSize int64
}

func (b *CachingBlob) Close() error {
	return b.inner.Close()
}

func (b *CachingBlob) Size() int64 {
	return b.inner.Size()
}

func (b *CachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size := b.Size()
	if off < 0 || off >= size {
		return 0, io.EOF
	}

	want := p
	if off+int64(len(p)) > size {
		want = p[:size-off]
	}

	startBlock := off / b.blockSize
	endBlock := (off + int64(len(want)) - 1) / b.blockSize

	if err := b.fillCache(ctx, startBlock, endBlock); err != nil {
		return 0, err
	}

	total := 0
	for blk := startBlock; blk <= endBlock; blk++ {
		blkStart := blk * b.blockSize
		lo := max(blkStart, off)
		hi := min(blkStart+b.blockSize, off+int64(len(want)))

		data, err := b.fetchBlock(ctx, blk)
		if err != nil {
			return total, err
		}
		src := lo - blkStart
		if src >= int64(len(data)) {
			break
		}
		total += copy(want[lo-off:hi-off], data[src:])
	}

	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

// fillCache loads the missing blocks of [startBlock, endBlock], fetching each
// contiguous run of misses with one backend request.
func (b *CachingBlob) fillCache(ctx context.Context, startBlock, endBlock int64) error {
	type run struct{ start, count int64 }
	var runs []run

	for blk := startBlock; blk <= endBlock; blk++ {
		if _, ok := b.cache.Get(cache.Key{Path: b.name, Block: blk}); ok {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].start+runs[n-1].count == blk {
			runs[n-1].count++
		} else {
			runs = append(runs, run{start: blk, count: 1})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range runs {
		g.Go(func() error {
			if err := b.rc.AcquireFetch(gctx); err != nil {
				return err
			}
			defer b.rc.ReleaseFetch()

			byteStart := r.start * b.blockSize
			byteLen := min(r.count*b.blockSize, b.Size()-byteStart)
			if byteLen <= 0 {
				return nil
			}

			buf := make([]byte, byteLen)
			n, err := b.inner.ReadAt(gctx, buf, byteStart)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			buf = buf[:n]

			for i := int64(0); i < r.count; i++ {
				lo := i * b.blockSize
				if lo >= int64(len(buf)) {
					break
				}
				hi := min(lo+b.blockSize, int64(len(buf)))
				// Copy so a cached block does not pin the whole run buffer.
				b.cache.Set(cache.Key{Path: b.name, Block: r.start + i}, append([]byte(nil), buf[lo:hi]...))
			}
			return nil
		})
	}
	return g.Wait()
}

func (b *CachingBlob) fetchBlock(ctx context.Context, blk int64) ([]byte, error) {
	key := cache.Key{Path: b.name, Block: blk}
	if data, ok := b.cache.Get(key); ok {
		return data, nil
	}

	// Evicted between fill and read (or refused by the memory budget).
	buf := make([]byte, b.blockSize)
	n, err := b.inner.ReadAt(ctx, buf, blk*b.blockSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	buf = buf[:n]
	if n > 0 {
		b.cache.Set(key, buf)
	}
	return buf, nil
}

// ReadRange serves the range through ReadAt, and thus through the cache.
func (b *CachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	start, end := clipRange(b.Size(), off, length)
	return io.NopCloser(&sectionReader{blob: b, ctx: ctx, off: start, limit: end}), nil
}

type sectionReader struct {
	blob  Blob
	ctx   context.Context
	off   int64
	limit int64
}

func (r *sectionReader) Read(p []byte) (int, error) {
	if r.off >= r.limit {
		return 0, io.EOF
	}
	if remaining := r.limit - r.off; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	if errors.Is(err, io.EOF) && n > 0 {
		err = nil
	}
	return n, err
}
