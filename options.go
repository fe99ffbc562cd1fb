package fieldpack

import (
	"log/slog"

	"github.com/hupe1980/fieldpack/blockcodec"
	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/internal/resource"
	"github.com/hupe1980/fieldpack/volume"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	recorder         *PerformanceRecorder
	workers          int
	codec            *blockcodec.Config
	envelope         volume.Envelope
	resource         resource.Config
	chunkSteps       int
}

// Option configures a Pipeline.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := fieldpack.NewJSONLogger(nil, slog.LevelInfo)
//	p, _ := fieldpack.New(store, fieldpack.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(nil, level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(nil, level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithPerformanceRecorder receives the pass timings of Stream runs.
func WithPerformanceRecorder(r *PerformanceRecorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithWorkers sets the number of compression workers. The pool clamps the
// value to [1, runtime.NumCPU()].
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithCodecConfig sets the block codec configuration. Without it the pool
// uses compress.DefaultConfig.
func WithCodecConfig(cfg blockcodec.Config) Option {
	return func(o *options) {
		o.codec = &cfg
	}
}

// WithEnvelope wraps stored volumes in a zstd or lz4 envelope.
func WithEnvelope(e volume.Envelope) Option {
	return func(o *options) {
		o.envelope = e
	}
}

// WithMemoryLimit bounds the memory of the two resident slices of a Stream
// run. 0 means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.resource.MemoryLimitBytes = bytes
	}
}

// WithUploadRate limits slice uploads to bytesPerSec. 0 means unlimited.
func WithUploadRate(bytesPerSec int64) Option {
	return func(o *options) {
		o.resource.IOLimitBytesPerSec = bytesPerSec
	}
}

// WithChunkSteps splits every dispatch of a Stream run into calls of at most
// k steps.
func WithChunkSteps(k int) Option {
	return func(o *options) {
		o.chunkSteps = k
	}
}

// PackOptions controls how a raw field is laid out into images. Decompress
// must use the options the volume was compressed with.
type PackOptions struct {
	// Channels per texel (1..4).
	Channels int
	Slice    field.SliceMode
	// Normalize maps values into [0,1] with peaks extracted per depth layer.
	Normalize bool
	// Refined normalizes every component separately.
	Refined bool
	Padding int
	// Append adds the images to an existing volume of the same geometry.
	Append bool
}

// DefaultPackOptions packs three channels per plane with global normalization.
var DefaultPackOptions = PackOptions{
	Channels:  3,
	Slice:     field.Plane,
	Normalize: true,
}

// TraceOptions controls a Stream run.
type TraceOptions struct {
	// ImagesPerSlice is the number of images of one time step; 0 splits the
	// volume evenly into the slices of the plan.
	ImagesPerSlice int
	// Seeds is the number of traced particles the output is sized for.
	Seeds int
}

// DefaultTraceOptions traces a single seed.
var DefaultTraceOptions = TraceOptions{
	Seeds: 1,
}
