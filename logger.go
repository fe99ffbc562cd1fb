package fieldpack

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hupe1980/fieldpack/stream"
)

// Logger wraps slog.Logger with fieldpack-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that writes JSON to w (stderr when nil).
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes human-readable text to w
// (stderr when nil).
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithVolume adds the volume name to the logger.
func (l *Logger) WithVolume(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("volume", name),
	}
}

// WithPass adds a pass index to the logger.
func (l *Logger) WithPass(pass int) *Logger {
	return &Logger{
		Logger: l.Logger.With("pass", pass),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogCompress logs the compression of a field into a volume.
func (l *Logger) LogCompress(ctx context.Context, name string, images int, bytes int64, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "compress failed",
			"volume", name,
			"images", images,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "compress completed",
			"volume", name,
			"images", images,
			"size", humanize.IBytes(uint64(bytes)),
			"duration", d,
		)
	}
}

// LogBatch logs the per-image outcome of a compression batch.
func (l *Logger) LogBatch(ctx context.Context, count, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "batch completed with failures",
			"total", count,
			"failed", failed,
			"success", count-failed,
		)
	} else {
		l.DebugContext(ctx, "batch completed",
			"count", count,
		)
	}
}

// LogStore logs a store operation (save, append, load, delete).
func (l *Logger) LogStore(ctx context.Context, op, name string, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"volume", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, op+" completed",
			"volume", name,
			"size", humanize.IBytes(uint64(bytes)),
		)
	}
}

// LogPass logs one scheduler pass.
func (l *Logger) LogPass(ctx context.Context, pass, steps int, upload, compute time.Duration) {
	l.DebugContext(ctx, "pass completed",
		"pass", pass,
		"steps", steps,
		"upload", upload,
		"compute", compute,
	)
}

// LogRun logs a streamed integration run.
func (l *Logger) LogRun(ctx context.Context, plan stream.Plan, stats stream.Stats, err error) {
	if err != nil {
		l.ErrorContext(ctx, "integration failed",
			"plan", plan.String(),
			"passes_done", stats.Passes,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "integration completed",
			"plan", plan.String(),
			"passes", stats.Passes,
			"uploaded", humanize.IBytes(uint64(stats.UploadedBytes)),
			"duration", stats.Duration,
		)
	}
}
