package fieldpack

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/fieldpack/blobstore"
	"github.com/hupe1980/fieldpack/compress"
	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/internal/resource"
	"github.com/hupe1980/fieldpack/packer"
	"github.com/hupe1980/fieldpack/peaks"
	"github.com/hupe1980/fieldpack/stream"
	"github.com/hupe1980/fieldpack/volume"
)

// Pipeline ties packing, block compression, volume storage and streaming
// together over one BlobStore. Errors returned by its methods belong to the
// package error taxonomy. Compress and Decompress calls are serialized.
type Pipeline struct {
	mu       sync.Mutex // serializes pool use
	store    *volume.Store
	pool     *compress.Pool
	rc       *resource.Controller
	logger   *Logger
	metrics  MetricsCollector
	recorder *PerformanceRecorder
	chunk    int
	closed   atomic.Bool
}

// New creates a pipeline storing volumes in blobs.
func New(blobs blobstore.BlobStore, optFns ...Option) (*Pipeline, error) {
	var o options
	for _, fn := range optFns {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if blobs == nil {
		return nil, &InputValidationError{cause: field.Errorf("nil blob store")}
	}

	poolOpts := []compress.Option{compress.WithLogger(o.logger.Logger)}
	if o.workers > 0 {
		poolOpts = append(poolOpts, compress.WithWorkers(o.workers))
	}
	if o.codec != nil {
		poolOpts = append(poolOpts, compress.WithConfig(*o.codec))
	}
	pool := compress.NewPool(poolOpts...)
	if err := pool.ApplyConfiguration(); err != nil {
		return nil, translateError(err)
	}

	return &Pipeline{
		store:    volume.NewStore(blobs, volume.WithEnvelope(o.envelope), volume.WithLogger(o.logger.Logger)),
		pool:     pool,
		rc:       resource.NewController(o.resource),
		logger:   o.logger,
		metrics:  o.metricsCollector,
		recorder: o.recorder,
		chunk:    o.chunkSteps,
	}, nil
}

// Pool returns the compression pool. Its configuration can be changed
// between calls.
func (p *Pipeline) Pool() *compress.Pool { return p.pool }

// Store returns the volume store.
func (p *Pipeline) Store() *volume.Store { return p.store }

// CompressResult describes a compressed and stored field.
type CompressResult struct {
	Name   string
	Peaks  peaks.Peaks
	Header volume.Header
	// Images and Bytes describe the stored volume. After an append they
	// include the images that were already stored.
	Images int
	Bytes  int64
	// Appended is the number of images encoded by this call.
	Appended int
	// Batch reports the images that failed to encode; they are stored zeroed.
	Batch    *compress.BatchResult
	Duration time.Duration
}

// Compress packs raw, block-compresses the images and stores them under name.
// Encoder failures of single images do not fail the call; they are reported
// in CompressResult.Batch.
func (p *Pipeline) Compress(ctx context.Context, name string, raw *field.RawField, optFns ...func(*PackOptions)) (*CompressResult, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	opts := DefaultPackOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	start := time.Now()
	res, err := p.compress(ctx, name, raw, opts)
	if err != nil {
		err = translateError(err)
		p.metrics.RecordCompress(0, 0, 0, time.Since(start), err)
		p.logger.LogCompress(ctx, name, 0, 0, time.Since(start), err)
		return nil, err
	}
	res.Duration = time.Since(start)
	p.metrics.RecordCompress(res.Appended, res.Batch.FailedCount(), res.Bytes, res.Duration, nil)
	p.logger.LogCompress(ctx, name, res.Appended, res.Bytes, res.Duration, nil)
	return res, nil
}

func (p *Pipeline) compress(ctx context.Context, name string, raw *field.RawField, opts PackOptions) (*CompressResult, error) {
	if raw == nil {
		return nil, field.Errorf("nil field")
	}
	grid := raw.Grid

	var (
		pk  peaks.Peaks
		err error
	)
	if opts.Normalize {
		if opts.Refined {
			pk, err = peaks.PerComponent(raw.Data, grid)
		} else {
			pk, err = peaks.Global(raw.Data, grid)
		}
		if err != nil {
			return nil, err
		}
	}

	images, err := packer.PackField(ctx, raw.Data, grid, packer.Options{
		Normalize: opts.Normalize,
		Peaks:     pk,
		Refined:   opts.Refined,
		Channels:  opts.Channels,
		Slice:     opts.Slice,
		Padding:   opts.Padding,
	})
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	vol, batch, err := p.pool.Compress(ctx, images)
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	p.logger.LogBatch(ctx, len(images), batch.FailedCount())

	storeStart := time.Now()
	err = p.store.Save(ctx, name, vol, opts.Append)
	p.metrics.RecordStore(vol.Size(), time.Since(storeStart), err)
	p.logger.LogStore(ctx, "save", name, vol.Size(), err)
	if err != nil {
		return nil, err
	}

	res := &CompressResult{
		Name:     name,
		Peaks:    pk,
		Header:   vol.Header,
		Images:   vol.Count(),
		Bytes:    vol.Size(),
		Appended: vol.Count(),
		Batch:    batch,
	}
	if opts.Append {
		info, err := p.store.Info(ctx, name)
		if err != nil {
			return nil, err
		}
		res.Images, res.Bytes = info.Images, info.StoredSize
	}
	return res, nil
}

// Load reads the volume stored under name.
func (p *Pipeline) Load(ctx context.Context, name string) (*volume.Volume, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()
	vol, err := p.store.Load(ctx, name)
	var size int64
	if err == nil {
		size = vol.Size()
	}
	err = translateError(err)
	p.metrics.RecordLoad(size, time.Since(start), err)
	p.logger.LogStore(ctx, "load", name, size, err)
	return vol, err
}

// Info describes the volume stored under name.
func (p *Pipeline) Info(ctx context.Context, name string) (volume.Info, error) {
	if p.closed.Load() {
		return volume.Info{}, ErrClosed
	}
	info, err := p.store.Info(ctx, name)
	return info, translateError(err)
}

// Decompress loads name and reconstructs the raw field of grid. pk and opts
// must match the values used by Compress; pk is ignored without
// normalization.
func (p *Pipeline) Decompress(ctx context.Context, name string, grid field.Grid, pk peaks.Peaks, optFns ...func(*PackOptions)) (*field.RawField, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	opts := DefaultPackOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	vol, err := p.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	images, err := p.pool.Decompress(ctx, vol)
	p.mu.Unlock()
	if err != nil {
		return nil, translateError(err)
	}
	vals, err := packer.UnpackAll(images, grid, opts.Slice, packer.UnpackOptions{
		Denormalize: opts.Normalize,
		Peaks:       pk,
		Refined:     opts.Refined,
		Channels:    opts.Channels,
	})
	if err != nil {
		return nil, translateError(err)
	}
	raw, err := field.Wrap(grid, vals)
	return raw, translateError(err)
}

// Plan computes the integration plan for the volume stored under name,
// holding imagesPerSlice images per time step.
func (p *Pipeline) Plan(ctx context.Context, name string, global int, timesize, dt float64, imagesPerSlice int) (stream.Plan, error) {
	info, err := p.Info(ctx, name)
	if err != nil {
		return stream.Plan{}, err
	}
	if imagesPerSlice < 1 || info.Images%imagesPerSlice != 0 {
		return stream.Plan{}, &InputValidationError{cause: field.Errorf("%d images do not split into slices of %d", info.Images, imagesPerSlice)}
	}
	plan, err := stream.ComputePlan(global, timesize, dt, info.Images/imagesPerSlice)
	return plan, translateError(err)
}

// Stream runs plan over the volume stored under name, feeding inv. Local
// volumes are memory mapped for the duration of the run.
func (p *Pipeline) Stream(ctx context.Context, name string, inv stream.Invoker, plan stream.Plan, optFns ...func(*TraceOptions)) (stream.Stats, error) {
	if p.closed.Load() {
		return stream.Stats{}, ErrClosed
	}
	opts := DefaultTraceOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	stats, err := p.stream(ctx, name, inv, plan, opts)
	err = translateError(err)
	p.metrics.RecordStream(stats.Passes, stats.Steps, stats.UploadedBytes, stats.Duration, err)
	p.logger.LogRun(ctx, plan, stats, err)
	return stats, err
}

func (p *Pipeline) stream(ctx context.Context, name string, inv stream.Invoker, plan stream.Plan, opts TraceOptions) (stream.Stats, error) {
	if inv == nil {
		return stream.Stats{}, field.Errorf("nil invoker")
	}
	vol, closer, err := p.store.Map(ctx, name)
	if err != nil {
		return stream.Stats{}, err
	}
	defer closer.Close()

	per := opts.ImagesPerSlice
	if per == 0 {
		if plan.Slices < 1 || vol.Count()%plan.Slices != 0 {
			return stream.Stats{}, field.Errorf("%d images do not split into %d slices", vol.Count(), plan.Slices)
		}
		per = vol.Count() / plan.Slices
	}
	src, err := stream.NewVolumeSource(vol, per)
	if err != nil {
		return stream.Stats{}, err
	}

	schedOpts := []stream.Option{
		stream.WithSeeds(opts.Seeds),
		stream.WithChunkSteps(p.chunk),
		stream.WithResourceController(p.rc),
		stream.WithRecorder(passLogger{p: p, ctx: ctx}),
	}
	return stream.NewScheduler(src, inv, schedOpts...).Run(ctx, plan)
}

// passLogger forwards pass timings to the logger and the performance recorder.
type passLogger struct {
	p   *Pipeline
	ctx context.Context
}

func (l passLogger) RecordUpload(slice, bytes int, d time.Duration) {
	if l.p.recorder != nil {
		l.p.recorder.RecordUpload(slice, bytes, d)
	}
}

func (l passLogger) RecordPass(pass, steps int, upload, compute time.Duration) {
	l.p.logger.LogPass(l.ctx, pass, steps, upload, compute)
	if l.p.recorder != nil {
		l.p.recorder.RecordPass(pass, steps, upload, compute)
	}
}

// Close releases the compression contexts. The pipeline cannot be used
// afterwards.
func (p *Pipeline) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return translateError(p.pool.Close())
}
