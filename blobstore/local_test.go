package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vfs "github.com/hupe1980/fieldpack/internal/fs"
)

func TestLocalStore_Append(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(t.TempDir())

	var a Appender = s
	require.NoError(t, a.Append(ctx, "nested/run.vol", []byte("head")))
	require.NoError(t, a.Append(ctx, "nested/run.vol", []byte("-tail")))

	data, err := Get(ctx, s, "nested/run.vol")
	require.NoError(t, err)
	assert.Equal(t, "head-tail", string(data))
}

func TestLocalStore_OpenIsMapped(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(t.TempDir())
	require.NoError(t, s.Put(ctx, "m.vol", []byte("mapped")))

	b, err := s.Open(ctx, "m.vol")
	require.NoError(t, err)
	defer b.Close()

	m, ok := b.(Mappable)
	require.True(t, ok)
	data, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "mapped", string(data))
}

func TestLocalStore_EmptyBlob(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(t.TempDir())
	require.NoError(t, s.Put(ctx, "empty.vol", nil))

	data, err := Get(ctx, s, "empty.vol")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	s := NewLocalStore(filepath.Join(t.TempDir(), "does-not-exist"))
	names, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalStore_CreateIsInvisibleUntilClose(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewLocalStore(dir)

	w, err := s.Create(ctx, "pending.vol")
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "pending.vol"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, w.Close())
	ok, err := Exists(ctx, s, "pending.vol")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalStore_WriteFaults(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ffs := vfs.NewFaultyFS(nil)
	ffs.AddRule("sync.vol", vfs.Fault{FailAfterBytes: -1, FailOnSync: true})
	ffs.AddRule("close.vol", vfs.Fault{FailAfterBytes: -1, FailOnClose: true})
	ffs.AddRule("short.vol", vfs.Fault{FailAfterBytes: 8})
	s := NewLocalStore(dir, WithFileSystem(ffs))

	require.ErrorIs(t, s.Put(ctx, "sync.vol", []byte("payload")), vfs.ErrInjected)
	require.ErrorIs(t, s.Put(ctx, "close.vol", []byte("payload")), vfs.ErrInjected)
	require.ErrorIs(t, s.Put(ctx, "short.vol", []byte("more than eight bytes")), vfs.ErrInjected)

	// Failed puts leave neither the blob nor a temporary file behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, s.Append(ctx, "short.vol", []byte("12345678")))
	// The limit applies per opened file.
	require.ErrorIs(t, s.Append(ctx, "short.vol", []byte("123456789")), vfs.ErrInjected)
	data, err := Get(ctx, s, "short.vol")
	require.NoError(t, err)
	assert.Equal(t, "12345678", string(data))

	require.NoError(t, s.Put(ctx, "ok.vol", []byte("payload")))
	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.vol", "short.vol"}, names)
}
