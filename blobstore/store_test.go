package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreSuite checks the behaviour every BlobStore shares.
func runStoreSuite(t *testing.T, s BlobStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("OpenMissing", func(t *testing.T) {
		_, err := s.Open(ctx, "missing.vol")
		assert.ErrorIs(t, err, ErrNotFound)

		ok, err := Exists(ctx, s, "missing.vol")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("PutOpenRead", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "a.vol", []byte("hello world")))

		b, err := s.Open(ctx, "a.vol")
		require.NoError(t, err)
		defer b.Close()
		assert.Equal(t, int64(11), b.Size())

		buf := make([]byte, 5)
		n, err := b.ReadAt(ctx, buf, 6)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "world", string(buf))

		n, err = b.ReadAt(ctx, make([]byte, 8), 6)
		assert.Equal(t, 5, n)
		assert.ErrorIs(t, err, io.EOF)

		r, err := b.ReadRange(ctx, 2, 3)
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		assert.Equal(t, "llo", string(got))

		r, err = b.ReadRange(ctx, 8, 100)
		require.NoError(t, err)
		got, err = io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "rld", string(got))
	})

	t.Run("PutReplaces", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "b.vol", []byte("first")))
		require.NoError(t, s.Put(ctx, "b.vol", []byte("second!")))

		data, err := Get(ctx, s, "b.vol")
		require.NoError(t, err)
		assert.Equal(t, "second!", string(data))
	})

	t.Run("Create", func(t *testing.T) {
		w, err := s.Create(ctx, "runs/c.vol")
		require.NoError(t, err)
		_, err = w.Write([]byte("part1-"))
		require.NoError(t, err)
		_, err = w.Write([]byte("part2"))
		require.NoError(t, err)
		require.NoError(t, w.Sync())
		require.NoError(t, w.Close())

		data, err := Get(ctx, s, "runs/c.vol")
		require.NoError(t, err)
		assert.Equal(t, "part1-part2", string(data))
	})

	t.Run("List", func(t *testing.T) {
		names, err := s.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"a.vol", "b.vol", "runs/c.vol"}, names)

		names, err = s.List(ctx, "runs/")
		require.NoError(t, err)
		assert.Equal(t, []string{"runs/c.vol"}, names)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "a.vol"))
		require.NoError(t, s.Delete(ctx, "a.vol"))

		_, err := s.Open(ctx, "a.vol")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	runStoreSuite(t, NewLocalStore(t.TempDir()))
}

func TestMemoryStore_NotAppender(t *testing.T) {
	var s BlobStore = NewMemoryStore()
	_, ok := s.(Appender)
	assert.False(t, ok)
}

func TestMemoryStore_PutCopiesInput(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	data := []byte("abc")
	require.NoError(t, s.Put(ctx, "x", data))
	data[0] = 'z'

	got, err := Get(ctx, s, "x")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestReadFull_Short(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "x", []byte("abc")))

	b, err := s.Open(ctx, "x")
	require.NoError(t, err)
	defer b.Close()

	err = ReadFull(ctx, b, make([]byte, 4), 0)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.NoError(t, ReadFull(ctx, b, make([]byte, 2), 1))
}

func TestMemoryBlob_CancelledContext(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Put(context.Background(), "x", []byte("abc")))
	b, err := s.Open(context.Background(), "x")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.ReadAt(ctx, make([]byte, 1), 0)
	assert.ErrorIs(t, err, context.Canceled)
}
