package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/internal/resource"
)

// Recorder receives timing of a run. Implementations must be cheap; they are
// called on the scheduler goroutine.
type Recorder interface {
	RecordUpload(slice, bytes int, d time.Duration)
	RecordPass(pass, steps int, upload, compute time.Duration)
}

// Stats summarizes a completed run.
type Stats struct {
	Passes        int
	Steps         int
	Dispatches    int
	Uploads       int
	UploadedBytes int64
	Duration      time.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithChunkSteps splits every dispatch into calls of at most k steps, so that
// cancellation is observed between chunks. k <= 0 disables chunking.
func WithChunkSteps(k int) Option {
	return func(s *Scheduler) { s.chunk = k }
}

// WithSeeds sets the particle count the output storage is sized for.
func WithSeeds(n int) Option {
	return func(s *Scheduler) { s.seeds = n }
}

// WithResourceController charges the two resident slices against rc's memory
// budget and paces uploads with its IO limiter.
func WithResourceController(rc *resource.Controller) Option {
	return func(s *Scheduler) { s.rc = rc }
}

// WithRecorder sets the timing recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// Scheduler runs Plans against an Invoker.
type Scheduler struct {
	src      SliceSource
	inv      Invoker
	rc       *resource.Controller
	recorder Recorder
	logger   *slog.Logger
	chunk    int
	seeds    int

	ring  *Ring
	stats Stats
}

// NewScheduler returns a scheduler that feeds slices of src to inv.
func NewScheduler(src SliceSource, inv Invoker, opts ...Option) *Scheduler {
	s := &Scheduler{
		src:   src,
		inv:   inv,
		seeds: 1,
		ring:  NewRing(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Run executes plan. Any failure aborts the run and is returned wrapped;
// invoker allocation failures and an exhausted memory budget match
// ErrResourceExhausted.
func (s *Scheduler) Run(ctx context.Context, plan Plan) (Stats, error) {
	start := time.Now()
	s.stats = Stats{}
	s.ring.Reset()

	if need := plan.SlicesNeeded(); need > s.src.Slices() {
		return Stats{}, field.Errorf("plan %s reads %d slices, source has %d", plan, need, s.src.Slices())
	}

	resident := 2 * int64(s.src.SliceBytes())
	if err := s.rc.AcquireMemory(resident); err != nil {
		return Stats{}, fmt.Errorf("%w: resident window of %d bytes: %w", ErrResourceExhausted, resident, err)
	}
	defer s.rc.ReleaseMemory(resident)

	if err := s.inv.ResizeOutput(s.seeds, plan.Global); err != nil {
		return Stats{}, fmt.Errorf("resize output to %d seeds x %d steps: %w", s.seeds, plan.Global, err)
	}

	var err error
	if plan.Steady {
		err = s.steady(ctx, plan)
	} else {
		err = s.stream(ctx, plan)
	}
	s.stats.Duration = time.Since(start)
	if err != nil {
		return s.stats, err
	}
	s.logger.DebugContext(ctx, "integration finished", "plan", plan.String(), "uploads", s.stats.Uploads, "duration", s.stats.Duration)
	return s.stats, nil
}

func (s *Scheduler) steady(ctx context.Context, plan Plan) error {
	up, err := s.ensure(ctx, 0)
	if err != nil {
		return err
	}
	s.inv.SetGlobalTime(0, false)
	return s.pass(ctx, 0, plan.Global, false, SlotFor(0), SlotFor(0), up)
}

func (s *Scheduler) stream(ctx context.Context, plan Plan) error {
	for p := range plan.Full {
		up, err := s.ensure(ctx, p, p+1)
		if err != nil {
			return err
		}
		s.inv.SetGlobalTime(p, false)
		if err := s.pass(ctx, p, plan.Local, true, SlotFor(p), SlotFor(p+1), up); err != nil {
			return err
		}
	}
	if plan.Remainder > 0 {
		f := plan.Full
		up, err := s.ensure(ctx, f)
		if err != nil {
			return err
		}
		s.inv.SetGlobalTime(f, true)
		if err := s.pass(ctx, f, plan.Remainder, false, SlotFor(f), SlotFor(f), up); err != nil {
			return err
		}
	}
	return nil
}

// ensure uploads the slices the ring does not hold yet.
func (s *Scheduler) ensure(ctx context.Context, slices ...int) (time.Duration, error) {
	var total time.Duration
	for _, i := range slices {
		if s.ring.Holds(i) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
		start := time.Now()
		data, err := s.src.Slice(ctx, i)
		if err != nil {
			return total, fmt.Errorf("read slice %d: %w", i, err)
		}
		if err := s.rc.AcquireIO(ctx, len(data)); err != nil {
			return total, err
		}
		slot := SlotFor(i)
		if err := s.inv.Upload(ctx, slot, i, data); err != nil {
			return total, fmt.Errorf("upload slice %d to slot %d: %w", i, slot, err)
		}
		s.ring.Set(i)
		d := time.Since(start)
		total += d
		s.stats.Uploads++
		s.stats.UploadedBytes += int64(len(data))
		if s.recorder != nil {
			s.recorder.RecordUpload(i, len(data), d)
		}
	}
	return total, nil
}

func (s *Scheduler) pass(ctx context.Context, p, steps int, interp bool, cur, next Slot, upload time.Duration) error {
	start := time.Now()
	chunk := steps
	if s.chunk > 0 {
		chunk = s.chunk
	}
	for off := 0; off < steps; off += chunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		d := Dispatch{
			Pass:        p,
			Steps:       min(chunk, steps-off),
			Offset:      off,
			Interpolate: interp,
			CurrentSlot: cur,
			NextSlot:    next,
		}
		if err := s.inv.Dispatch(ctx, d); err != nil {
			return fmt.Errorf("pass %d dispatch at step %d: %w", p, off, err)
		}
		s.stats.Dispatches++
	}
	compute := time.Since(start)
	s.stats.Passes++
	s.stats.Steps += steps
	if s.recorder != nil {
		s.recorder.RecordPass(p, steps, upload, compute)
	}
	s.logger.DebugContext(ctx, "pass finished", "pass", p, "steps", steps, "interpolate", interp, "upload", upload, "compute", compute)
	return nil
}

// IsResourceExhausted reports whether err stems from an allocation failure.
func IsResourceExhausted(err error) bool {
	return errors.Is(err, ErrResourceExhausted) || errors.Is(err, resource.ErrMemoryLimitExceeded)
}
