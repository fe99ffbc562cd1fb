package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/natefinch/lumberjack"

	"github.com/hupe1980/fieldpack"
	"github.com/hupe1980/fieldpack/blobstore"
	fieldminio "github.com/hupe1980/fieldpack/blobstore/minio"
	fields3 "github.com/hupe1980/fieldpack/blobstore/s3"
	"github.com/hupe1980/fieldpack/blockcodec"
	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/internal/cache"
	"github.com/hupe1980/fieldpack/peaks"
	"github.com/hupe1980/fieldpack/volume"
)

type tomlConfig struct {
	Store   storeConfig
	Grid    gridConfig
	Pack    packConfig
	Codec   codecConfig
	Stream  streamConfig
	Logging logConfig
}

type storeConfig struct {
	// Kind is "local", "s3" or "minio".
	Kind      string
	Path      string
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Secure    bool
	Envelope  string

	// CacheSize enables a block cache of this size in front of remote stores.
	CacheSize  string `toml:"cache_size"`
	CacheBlock string `toml:"cache_block"`
}

type gridConfig struct {
	X, Y, Z, T int
	VecLen     int `toml:"veclen"`
	Ordering   string
}

type packConfig struct {
	Channels  int
	Slice     string
	Normalize bool
	Refined   bool
	Padding   int
}

type codecConfig struct {
	Profile string
	Preset  string
	BlockX  int `toml:"block_x"`
	BlockY  int `toml:"block_y"`
	BlockZ  int `toml:"block_z"`
	Workers int
}

type streamConfig struct {
	// MemoryLimit and UploadRate accept sizes like "512 MiB".
	MemoryLimit    string `toml:"memory_limit"`
	UploadRate     string `toml:"upload_rate"`
	ChunkSteps     int    `toml:"chunk_steps"`
	Seeds          int
	ImagesPerSlice int `toml:"images_per_slice"`
}

type logConfig struct {
	Logfile string
	MaxSize int `toml:"max_log_size"`
	MaxAge  int `toml:"max_log_age"`
	Level   string
	Format  string
}

func defaultConfig() tomlConfig {
	return tomlConfig{
		Store: storeConfig{Kind: "local", Path: ".", Envelope: "none"},
		Grid:  gridConfig{X: 1, Y: 1, Z: 1, T: 1, VecLen: 3},
		Pack:  packConfig{Channels: 3, Slice: "plane", Normalize: true},
		Codec: codecConfig{Profile: "ldr", Preset: "fast", BlockX: 4, BlockY: 4, BlockZ: 1},
		Stream: streamConfig{
			Seeds: 1,
		},
		Logging: logConfig{MaxSize: 100, MaxAge: 28, Level: "info", Format: "text"},
	}
}

// loadConfig reads filename over the defaults. An empty filename returns the
// defaults.
func loadConfig(filename string) (tomlConfig, error) {
	tc := defaultConfig()
	if filename == "" {
		return tc, nil
	}
	md, err := toml.DecodeFile(filename, &tc)
	if err != nil {
		return tc, fmt.Errorf("could not decode TOML config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return tc, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := tc.convertPathsToAbsolute(filename); err != nil {
		return tc, err
	}
	return tc, nil
}

// Relative paths in the TOML are taken relative to the file's own directory.
func (c *tomlConfig) convertPathsToAbsolute(configPath string) error {
	configDir := filepath.Dir(configPath)
	for _, p := range []*string{&c.Store.Path, &c.Logging.Logfile} {
		if *p == "" || filepath.IsAbs(*p) {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(configDir, *p))
		if err != nil {
			return fmt.Errorf("converting %q to absolute path: %w", *p, err)
		}
		*p = abs
	}
	return nil
}

func (c gridConfig) grid() (field.Grid, error) {
	ord, err := field.ParseOrdering(c.Ordering)
	if err != nil {
		return field.Grid{}, err
	}
	g := field.Grid{X: c.X, Y: c.Y, Z: c.Z, T: c.T, VecLen: c.VecLen, Ordering: ord}
	return g, g.Validate()
}

func (c packConfig) apply(appendMode bool) (func(*fieldpack.PackOptions), error) {
	mode, err := field.ParseSliceMode(c.Slice)
	if err != nil {
		return nil, err
	}
	return func(o *fieldpack.PackOptions) {
		o.Channels = c.Channels
		o.Slice = mode
		o.Normalize = c.Normalize
		o.Refined = c.Refined
		o.Padding = c.Padding
		o.Append = appendMode
	}, nil
}

func (c packConfig) peaksMode() peaks.Mode {
	if c.Refined {
		return peaks.ModePerComponent
	}
	return peaks.ModeGlobal
}

func (c codecConfig) config() (blockcodec.Config, error) {
	profile, err := blockcodec.ParseProfile(c.Profile)
	if err != nil {
		return blockcodec.Config{}, err
	}
	preset, err := blockcodec.ParsePreset(c.Preset)
	if err != nil {
		return blockcodec.Config{}, err
	}
	return blockcodec.ConfigInit(profile, c.BlockX, c.BlockY, c.BlockZ, preset, 0)
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// logger writes to stderr unless a log file is configured, in which case the
// file is rotated after MaxSize megabytes.
func (c logConfig) logger(stderr io.Writer) (*fieldpack.Logger, io.Closer, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, nil, err
	}
	var (
		w      io.Writer = stderr
		closer io.Closer = nopCloser{}
	)
	if c.Logfile != "" {
		l := &lumberjack.Logger{
			Filename: c.Logfile,
			MaxSize:  c.MaxSize, // megabytes
			MaxAge:   c.MaxAge,  // days
		}
		w, closer = l, l
	}
	switch strings.ToLower(c.Format) {
	case "json":
		return fieldpack.NewJSONLogger(w, level), closer, nil
	case "text", "":
		return fieldpack.NewTextLogger(w, level), closer, nil
	}
	return nil, nil, fmt.Errorf("unknown log format %q", c.Format)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openStore(ctx context.Context, c storeConfig) (blobstore.BlobStore, error) {
	kind := strings.ToLower(c.Kind)
	if kind == "local" || kind == "" {
		if err := os.MkdirAll(c.Path, 0o755); err != nil {
			return nil, err
		}
		return blobstore.NewLocalStore(c.Path), nil
	}

	remote, err := openRemote(ctx, kind, c)
	if err != nil {
		return nil, err
	}
	size, err := parseSize(c.CacheSize)
	if err != nil || size == 0 {
		return remote, err
	}
	block, err := parseSize(c.CacheBlock)
	if err != nil {
		return nil, err
	}
	return blobstore.NewCachingStore(remote, cache.NewLRU(size, nil), nil, block), nil
}

func openRemote(ctx context.Context, kind string, c storeConfig) (blobstore.BlobStore, error) {
	switch kind {
	case "s3":
		if c.Bucket == "" {
			return nil, fmt.Errorf("s3 store needs a bucket")
		}
		var opts []fields3.Option
		if c.Prefix != "" {
			opts = append(opts, fields3.WithPrefix(c.Prefix))
		}
		if c.Region != "" {
			opts = append(opts, fields3.WithRegion(c.Region))
		}
		if c.Endpoint != "" {
			opts = append(opts, fields3.WithEndpoint(c.Endpoint))
		}
		store, err := fields3.New(ctx, c.Bucket, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "minio":
		if c.Bucket == "" || c.Endpoint == "" {
			return nil, fmt.Errorf("minio store needs an endpoint and a bucket")
		}
		client, err := minio.New(c.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
			Secure: c.Secure,
			Region: c.Region,
		})
		if err != nil {
			return nil, err
		}
		return fieldminio.NewStore(client, c.Bucket, c.Prefix), nil
	}
	return nil, fmt.Errorf("unknown store kind %q", c.Kind)
}

func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}

// pipelineOptions turns the config into fieldpack options.
func (c tomlConfig) pipelineOptions(logger *fieldpack.Logger) ([]fieldpack.Option, error) {
	codec, err := c.Codec.config()
	if err != nil {
		return nil, err
	}
	env, err := volume.ParseEnvelope(c.Store.Envelope)
	if err != nil {
		return nil, err
	}
	mem, err := parseSize(c.Stream.MemoryLimit)
	if err != nil {
		return nil, err
	}
	rate, err := parseSize(c.Stream.UploadRate)
	if err != nil {
		return nil, err
	}

	opts := []fieldpack.Option{
		fieldpack.WithLogger(logger),
		fieldpack.WithCodecConfig(codec),
		fieldpack.WithEnvelope(env),
		fieldpack.WithChunkSteps(c.Stream.ChunkSteps),
	}
	if c.Codec.Workers > 0 {
		opts = append(opts, fieldpack.WithWorkers(c.Codec.Workers))
	}
	if mem > 0 {
		opts = append(opts, fieldpack.WithMemoryLimit(mem))
	}
	if rate > 0 {
		opts = append(opts, fieldpack.WithUploadRate(rate))
	}
	return opts, nil
}
