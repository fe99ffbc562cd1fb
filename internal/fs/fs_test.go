package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func create(t *testing.T, fsys FileSystem, name string) File {
	t.Helper()
	f, err := fsys.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	return f
}

func TestLocalFS(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, Default.MkdirAll(dir, 0o755))

	name := filepath.Join(dir, "x.tmp")
	f := create(t, Default, name)
	assert.Equal(t, name, f.Name())
	_, err := f.Write([]byte("volume"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	final := filepath.Join(dir, "x.vol")
	require.NoError(t, Default.Rename(name, final))
	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "volume", string(data))

	require.NoError(t, Default.Remove(final))
	assert.NoFileExists(t, final)
}

func TestFaultyFS(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("disk full")

	ffs := NewFaultyFS(nil)
	ffs.AddRule("limit", Fault{FailAfterBytes: 4, Err: boom})
	ffs.AddRule("sync", Fault{FailAfterBytes: -1, FailOnSync: true})
	ffs.AddRule("close", Fault{FailAfterBytes: -1, FailOnClose: true})

	t.Run("byte limit", func(t *testing.T) {
		f := create(t, ffs, filepath.Join(dir, "limit.vol"))
		defer f.Close()
		_, err := f.Write([]byte("abc"))
		require.NoError(t, err)
		_, err = f.Write([]byte("de"))
		require.ErrorIs(t, err, boom)
	})

	t.Run("sync", func(t *testing.T) {
		f := create(t, ffs, filepath.Join(dir, "sync.vol"))
		defer f.Close()
		require.ErrorIs(t, f.Sync(), ErrInjected)
	})

	t.Run("close", func(t *testing.T) {
		f := create(t, ffs, filepath.Join(dir, "close.vol"))
		require.ErrorIs(t, f.Close(), ErrInjected)
	})

	t.Run("no rule", func(t *testing.T) {
		f := create(t, ffs, filepath.Join(dir, "plain.vol"))
		_, err := f.Write(make([]byte, 64))
		require.NoError(t, err)
		require.NoError(t, f.Sync())
		require.NoError(t, f.Close())
	})

	assert.Equal(t, int64(3+64), ffs.Written())
}

func TestFaultyFS_LastRuleWins(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.AddRule(".vol", Fault{FailAfterBytes: -1, FailOnSync: true})
	ffs.AddRule("ok.vol", Fault{FailAfterBytes: -1})

	f := create(t, ffs, filepath.Join(t.TempDir(), "ok.vol"))
	defer f.Close()
	require.NoError(t, f.Sync())
}
