package compress

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/fieldpack/blockcodec"
)

// Option configures a Pool.
type Option func(*options)

type options struct {
	workers int
	factory blockcodec.Factory
	logger  *slog.Logger
	config  *blockcodec.Config
}

// WithWorkers sets the number of encoder contexts. Values are clamped to
// [1, runtime.NumCPU()].
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithFactory replaces the context allocator.
func WithFactory(f blockcodec.Factory) Option {
	return func(o *options) { o.factory = f }
}

// WithLogger sets the logger used for batch reports.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConfig sets the initial pending configuration.
func WithConfig(cfg blockcodec.Config) Option {
	return func(o *options) { o.config = &cfg }
}

func clampWorkers(n int) int {
	return max(1, min(n, runtime.NumCPU()))
}
