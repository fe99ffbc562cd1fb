package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fieldpack/blobstore"
	fieldminio "github.com/hupe1980/fieldpack/blobstore/minio"
	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/packer"
	"github.com/hupe1980/fieldpack/testutil"
)

var cliGrid = field.Grid{X: 16, Y: 12, Z: 2, T: 3, VecLen: 3}

const cliConfig = `
[store]
path = "vols"
envelope = "lz4"

[grid]
x = 16
y = 12
z = 2
t = 3
veclen = 3

[pack]
channels = 3
slice = "plane"
normalize = true

[codec]
preset = "fast"
workers = 2

[stream]
memory_limit = "64 MiB"
chunk_steps = 4

[logging]
logfile = "fieldpack.log"
level = "debug"
format = "json"
`

type cliFixture struct {
	dir    string
	config string
	raw    *field.RawField
}

func newCLIFixture(t *testing.T) cliFixture {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "fieldpack.toml")
	require.NoError(t, os.WriteFile(config, []byte(cliConfig), 0o644))

	raw := testutil.RampField(cliGrid)
	require.NoError(t, raw.Save(filepath.Join(dir, "ramp.raw")))
	return cliFixture{dir: dir, config: config, raw: raw}
}

func (f cliFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd, rest := args[0], args[1:]
	err := run(context.Background(), append([]string{cmd, "-config", f.config}, rest...), &stdout, &stderr)
	return stdout.String(), err
}

func (f cliFixture) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := f.run(t, args...)
	require.NoError(t, err)
	return out
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	ctx := context.Background()

	require.ErrorIs(t, run(ctx, nil, &stdout, &stderr), errUsage)
	assert.Contains(t, stderr.String(), "Usage: fieldpack")

	stderr.Reset()
	require.ErrorIs(t, run(ctx, []string{"explode"}, &stdout, &stderr), errUsage)
	assert.Contains(t, stderr.String(), `unknown command "explode"`)

	stderr.Reset()
	require.ErrorIs(t, run(ctx, []string{"info"}, &stdout, &stderr), errUsage)
}

func TestRun_CompressInfoDecompress(t *testing.T) {
	f := newCLIFixture(t)

	out := f.mustRun(t, "compress", filepath.Join(f.dir, "ramp.raw"), "ramp.vol")
	assert.Contains(t, out, "compressed ramp.vol: 6 images 16x12x1 in 4x4 blocks")
	assert.FileExists(t, filepath.Join(f.dir, "vols", "ramp.vol"))
	assert.FileExists(t, filepath.Join(f.dir, "vols", "ramp.vol.peaks"))

	out = f.mustRun(t, "info", "-images", "ramp.vol")
	assert.Contains(t, out, "images:       6 of 16x12x1 texels")
	assert.Contains(t, out, "block:        4x4 (8.00 bpp)")
	assert.Contains(t, out, "(lz4)")
	assert.Contains(t, out, "image    5:")

	rawOut := filepath.Join(f.dir, "back.raw")
	out = f.mustRun(t, "decompress", "ramp.vol", rawOut)
	assert.Contains(t, out, "decompressed ramp.vol")

	back, err := field.Load(rawOut, cliGrid)
	require.NoError(t, err)
	stats := packer.MeasureError(f.raw.Data, back.Data)
	assert.Less(t, stats.MaxAbs, 0.05*float64(cliGrid.LayerLen()-1), "%+v", stats)

	// The rotating log file receives the JSON records.
	logData, err := os.ReadFile(filepath.Join(f.dir, "fieldpack.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), `"msg":"compress completed"`)
}

func TestRun_CompressAppend(t *testing.T) {
	f := newCLIFixture(t)
	rawPath := filepath.Join(f.dir, "ramp.raw")

	f.mustRun(t, "compress", rawPath, "run.vol")
	out := f.mustRun(t, "compress", "-append", rawPath, "run.vol")
	assert.Contains(t, out, "volume now holds 12 images")

	pk, err := os.ReadFile(filepath.Join(f.dir, "vols", "run.vol.peaks"))
	require.NoError(t, err)
	assert.Len(t, pk, 2*cliGrid.Layers()*8)
}

func TestRun_CompressErrors(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.run(t, "compress", filepath.Join(f.dir, "missing.raw"), "x.vol")
	require.Error(t, err)

	_, err = f.run(t, "decompress", "missing.vol", filepath.Join(f.dir, "out.raw"))
	require.Error(t, err)

	_, err = f.run(t, "compress", filepath.Join(f.dir, "ramp.raw"))
	require.ErrorIs(t, err, errUsage)
}

func TestRun_Plan(t *testing.T) {
	f := newCLIFixture(t)

	out := f.mustRun(t, "plan", "-steps", "2000", "-dt", "0.1", "-slices", "201")
	assert.Contains(t, out, "G=2000 L=10 F=200 R=0 T=201")
	assert.Contains(t, out, "passes:       200")

	_, err := f.run(t, "plan", "-steps", "10")
	require.Error(t, err)

	f.mustRun(t, "compress", filepath.Join(f.dir, "ramp.raw"), "ramp.vol")
	out = f.mustRun(t, "plan", "-steps", "25", "-dt", "0.1", "ramp.vol")
	assert.Contains(t, out, "G=25 L=10 F=2 R=5 T=3")
	assert.Contains(t, out, "passes:       3")
}

func TestRun_Trace(t *testing.T) {
	f := newCLIFixture(t)
	f.mustRun(t, "compress", filepath.Join(f.dir, "ramp.raw"), "ramp.vol")

	out := f.mustRun(t, "trace", "-steps", "25", "-dt", "0.1", "-seeds", "8", "-v", "ramp.vol")
	assert.Contains(t, out, "resize   8 seeds x 25 steps")
	assert.Contains(t, out, "upload   slice 0 -> slot 0")
	assert.Contains(t, out, "upload   slice 1 -> slot 1")
	assert.Contains(t, out, "dispatch pass 0: 4 steps at 0 interp=true slots 0/1")
	assert.Contains(t, out, "time     2 final=true")
	assert.Contains(t, out, "passes:       3")
	assert.Contains(t, out, "output:       3.1 KiB for 8 seeds")
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, defaultConfig(), cfg)
	})

	t.Run("relative paths", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "c.toml")
		require.NoError(t, os.WriteFile(path, []byte(cliConfig), 0o644))

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "vols"), cfg.Store.Path)
		assert.Equal(t, filepath.Join(dir, "fieldpack.log"), cfg.Logging.Logfile)
		assert.Equal(t, "64 MiB", cfg.Stream.MemoryLimit)
		assert.Equal(t, 4, cfg.Stream.ChunkSteps)
	})

	t.Run("unknown key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "c.toml")
		require.NoError(t, os.WriteFile(path, []byte("[store]\nbukket = \"x\"\n"), 0o644))
		_, err := loadConfig(path)
		require.ErrorContains(t, err, "store.bukket")
	})

	t.Run("invalid options", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Stream.MemoryLimit = "lots"
		_, err := cfg.pipelineOptions(nil)
		require.Error(t, err)

		cfg = defaultConfig()
		cfg.Store.Envelope = "gzip"
		_, err = cfg.pipelineOptions(nil)
		require.Error(t, err)

		cfg = defaultConfig()
		cfg.Codec.BlockX = 7
		_, err = cfg.pipelineOptions(nil)
		require.Error(t, err)

		_, err = openStore(context.Background(), storeConfig{Kind: "ftp"})
		require.Error(t, err)
		_, err = openStore(context.Background(), storeConfig{Kind: "minio"})
		require.Error(t, err)
	})
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := openStore(ctx, storeConfig{Kind: "local", Path: filepath.Join(t.TempDir(), "vols"), CacheSize: "1 MiB"})
	require.NoError(t, err)
	assert.IsType(t, &blobstore.LocalStore{}, s)

	s, err = openStore(ctx, storeConfig{Kind: "minio", Endpoint: "localhost:9000", Bucket: "fields"})
	require.NoError(t, err)
	assert.IsType(t, &fieldminio.Store{}, s)

	s, err = openStore(ctx, storeConfig{Kind: "minio", Endpoint: "localhost:9000", Bucket: "fields", CacheSize: "1 MiB", CacheBlock: "16 KiB"})
	require.NoError(t, err)
	assert.IsType(t, &blobstore.CachingStore{}, s)

	_, err = openStore(ctx, storeConfig{Kind: "minio", Endpoint: "localhost:9000", Bucket: "fields", CacheSize: "huge"})
	require.Error(t, err)
}
