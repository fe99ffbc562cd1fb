package compress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/fieldpack/blockcodec"
	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/packer"
	"github.com/hupe1980/fieldpack/volume"
)

// State is the lifecycle state of a Pool.
type State uint8

const (
	StateUnconfigured State = iota
	StateConfigured
	StateCompressing
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateCompressing:
		return "compressing"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// DefaultConfig returns the configuration a new Pool starts from: LDR, 4x4x1
// blocks, fast preset, no flags.
func DefaultConfig() blockcodec.Config {
	cfg, err := blockcodec.ConfigInit(blockcodec.ProfileLDR, 4, 4, 1, blockcodec.PresetFast, 0)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Pool is a set of encoder contexts with one worker goroutine per context.
//
// Configuration edits a pending Config; ApplyConfiguration allocates the
// contexts from it. Pool is safe for concurrent use, but calls are serialized
// and configuration calls fail while Compress runs.
type Pool struct {
	mu       sync.Mutex
	state    State
	pending  blockcodec.Config
	applied  blockcodec.Config
	contexts []blockcodec.Context
	workers  int
	factory  blockcodec.Factory
	logger   *slog.Logger
}

// NewPool returns an unconfigured pool with runtime.NumCPU() workers unless
// WithWorkers says otherwise.
func NewPool(optFns ...Option) *Pool {
	o := options{
		workers: runtime.NumCPU(),
		factory: blockcodec.NewContext,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.factory == nil {
		o.factory = blockcodec.NewContext
	}

	p := &Pool{
		workers: clampWorkers(o.workers),
		factory: o.factory,
		logger:  o.logger,
	}
	if o.config != nil {
		p.pending = *o.config
	} else {
		p.pending = DefaultConfig()
	}
	return p
}

// State returns the current state.
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Workers returns the number of contexts the pool runs with.
func (p *Pool) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}

// Config returns the pending configuration.
func (p *Pool) Config() blockcodec.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Applied returns the configuration the contexts were allocated with.
func (p *Pool) Applied() blockcodec.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applied
}

// edit runs fn on a copy of the pending configuration and keeps the copy when
// fn succeeds.
func (p *Pool) edit(op string, fn func(cfg *blockcodec.Config) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateCompressing {
		return stateError(op, p.state)
	}
	cfg := p.pending
	if err := fn(&cfg); err != nil {
		return err
	}
	p.pending = cfg
	return nil
}

// Configure replaces the pending configuration. Contexts are not touched until
// ApplyConfiguration.
func (p *Pool) Configure(cfg blockcodec.Config) error {
	return p.edit("configure", func(c *blockcodec.Config) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		*c = cfg
		return nil
	})
}

// SetPreset re-derives the pending configuration for preset, keeping profile,
// block size and flags.
func (p *Pool) SetPreset(preset blockcodec.Preset) error {
	return p.edit("set preset", func(c *blockcodec.Config) error {
		cfg, err := blockcodec.ConfigInit(c.Profile, c.BlockX, c.BlockY, c.BlockZ, preset, c.Flags)
		if err != nil {
			return err
		}
		*c = cfg
		return nil
	})
}

// SetProfile sets the colour profile.
func (p *Pool) SetProfile(profile blockcodec.Profile) error {
	return p.edit("set profile", func(c *blockcodec.Config) error {
		c.Profile = profile
		return c.Validate()
	})
}

// SetBlockSize sets the block footprint. z == 0 is treated as 1.
func (p *Pool) SetBlockSize(x, y, z int) error {
	return p.edit("set block size", func(c *blockcodec.Config) error {
		if z == 0 {
			z = 1
		}
		c.BlockX, c.BlockY, c.BlockZ = x, y, z
		return c.Validate()
	})
}

// SetFlags replaces the encoder flags. FlagUsePerceptual is only accepted
// together with FlagMapNormal.
func (p *Pool) SetFlags(flags blockcodec.Flags) error {
	return p.edit("set flags", func(c *blockcodec.Config) error {
		if flags&blockcodec.FlagUsePerceptual != 0 && flags&blockcodec.FlagMapNormal == 0 {
			return field.Errorf("perceptual flag requires the normal map flag")
		}
		c.Flags = flags
		return c.Validate()
	})
}

// SetErrorWeights replaces the RGB and alpha error weighting.
func (p *Pool) SetErrorWeights(w blockcodec.ErrorWeights) error {
	return p.edit("set error weights", func(c *blockcodec.Config) error {
		c.ErrorWeights = w
		return nil
	})
}

// SetChannelWeights replaces the R, G, B and A error scales.
func (p *Pool) SetChannelWeights(w [4]float32) error {
	return p.edit("set channel weights", func(c *blockcodec.Config) error {
		c.ChannelWeights = w
		return c.Validate()
	})
}

// ApplyConfiguration (re)allocates all contexts from the pending configuration.
// On failure the previous contexts stay in place.
func (p *Pool) ApplyConfiguration() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateCompressing {
		return stateError("apply configuration", p.state)
	}

	fresh, err := p.alloc(p.pending, p.workers)
	if err != nil {
		return err
	}
	closeAll(p.contexts)
	p.contexts = fresh
	p.applied = p.pending
	p.state = StateConfigured
	p.logger.Debug("pool configured", "workers", len(fresh), "block", fmt.Sprintf("%dx%dx%d", p.applied.BlockX, p.applied.BlockY, p.applied.BlockZ), "preset", p.applied.Preset)
	return nil
}

func (p *Pool) alloc(cfg blockcodec.Config, n int) ([]blockcodec.Context, error) {
	out := make([]blockcodec.Context, 0, n)
	for range n {
		c, err := p.factory(cfg)
		if err != nil {
			closeAll(out)
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func closeAll(cs []blockcodec.Context) {
	for _, c := range cs {
		_ = c.Close()
	}
}

// Resize changes the number of contexts, clamped to [1, runtime.NumCPU()].
// A configured pool allocates the added contexts from the applied
// configuration and closes the removed ones.
func (p *Pool) Resize(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateCompressing {
		return stateError("resize", p.state)
	}
	n = clampWorkers(n)
	if p.state == StateConfigured {
		switch {
		case n > len(p.contexts):
			extra, err := p.alloc(p.applied, n-len(p.contexts))
			if err != nil {
				return err
			}
			p.contexts = append(p.contexts, extra...)
		case n < len(p.contexts):
			closeAll(p.contexts[n:])
			clear(p.contexts[n:])
			p.contexts = p.contexts[:n]
		}
	}
	p.workers = n
	return nil
}

// Close releases all contexts and returns the pool to StateUnconfigured.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateCompressing {
		return stateError("close", p.state)
	}
	var errs []error
	for _, c := range p.contexts {
		errs = append(errs, c.Close())
	}
	p.contexts = nil
	p.state = StateUnconfigured
	return errors.Join(errs...)
}

// header checks that all images share their dimensions and returns the
// volume header for the applied block size.
func (p *Pool) header(images []*packer.Image) (volume.Header, error) {
	h := volume.Header{BlockX: p.applied.BlockX, BlockY: p.applied.BlockY, BlockZ: p.applied.BlockZ}
	for i, img := range images {
		if img == nil {
			return volume.Header{}, field.Errorf("image %d is nil", i)
		}
		if i == 0 {
			h.DimX, h.DimY, h.DimZ = img.DimX, img.DimY, img.DimZ
			continue
		}
		if img.DimX != h.DimX || img.DimY != h.DimY || img.DimZ != h.DimZ {
			return volume.Header{}, field.Errorf("image %d is %dx%dx%d, image 0 is %dx%dx%d",
				i, img.DimX, img.DimY, img.DimZ, h.DimX, h.DimY, h.DimZ)
		}
	}
	return h, nil
}

// Compress encodes images into one volume.
//
// Jobs flow through a bounded channel to one goroutine per context. Per-image
// failures are recorded in the BatchResult and do not stop the batch. When ctx
// is cancelled no further images are dispatched, the dispatched ones finish,
// and the returned error is the context error.
func (p *Pool) Compress(ctx context.Context, images []*packer.Image) (*volume.Volume, *BatchResult, error) {
	p.mu.Lock()
	if p.state != StateConfigured {
		s := p.state
		p.mu.Unlock()
		return nil, nil, stateError("compress", s)
	}
	h, err := p.header(images)
	if err != nil {
		p.mu.Unlock()
		return nil, nil, err
	}
	vol := &volume.Volume{Header: h}
	if len(images) > 0 {
		if vol, err = volume.New(h, len(images)); err != nil {
			p.mu.Unlock()
			return nil, nil, err
		}
	}
	contexts := p.contexts
	p.state = StateCompressing
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.state = StateConfigured
		p.mu.Unlock()
	}()

	start := time.Now()
	res, ctxErr := p.run(ctx, contexts, images, vol)

	attrs := []any{"images", len(images), "failed", res.FailedCount(), "workers", len(contexts), "bytes", len(vol.Data), "duration", time.Since(start)}
	if res.OK() {
		p.logger.DebugContext(ctx, "batch compressed", attrs...)
	} else {
		p.logger.WarnContext(ctx, "batch compressed with failures", append(attrs, "indices", res.Failed.ToArray())...)
	}
	if ctxErr != nil {
		return vol, res, ctxErr
	}
	return vol, res, nil
}

func (p *Pool) run(ctx context.Context, contexts []blockcodec.Context, images []*packer.Image, vol *volume.Volume) (*BatchResult, error) {
	n := len(images)
	res := newBatchResult(n)
	il := vol.ImageLen()

	jobs := make(chan int, len(contexts))
	var (
		wg      sync.WaitGroup
		encoded atomic.Int64
	)
	for _, c := range contexts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out := vol.Data[i*il : (i+1)*il]
				if err := c.Compress(images[i], out); err != nil {
					clear(out)
					res.Errors[i] = newEncoderError(i, err)
				}
				encoded.Add(1)
				if err := c.Reset(); err != nil && res.Errors[i] == nil {
					res.Errors[i] = newEncoderError(i, err)
				}
			}
		}()
	}

	dispatched := 0
	var ctxErr error
dispatch:
	for i := range n {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		select {
		case jobs <- i:
			dispatched++
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	for i := dispatched; i < n; i++ {
		res.Errors[i] = fmt.Errorf("image %d not dispatched: %w", i, ctxErr)
	}
	res.Encoded = int(encoded.Load())
	res.seal()
	return res, ctxErr
}

// Decompress decodes every image of vol on the first context.
func (p *Pool) Decompress(ctx context.Context, vol *volume.Volume) ([]*packer.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateConfigured {
		return nil, stateError("decompress", p.state)
	}
	if err := vol.Validate(); err != nil {
		return nil, err
	}
	cfg := p.applied
	if vol.BlockX != cfg.BlockX || vol.BlockY != cfg.BlockY || vol.BlockZ != cfg.BlockZ {
		return nil, field.Errorf("volume blocks %dx%dx%d do not match configured %dx%dx%d",
			vol.BlockX, vol.BlockY, vol.BlockZ, cfg.BlockX, cfg.BlockY, cfg.BlockZ)
	}

	c := p.contexts[0]
	out := make([]*packer.Image, vol.Count())
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img := packer.NewImage(vol.DimX, vol.DimY, vol.DimZ, 0)
		if err := c.Decompress(vol.Image(i), img); err != nil {
			_ = c.Reset()
			return nil, newEncoderError(i, err)
		}
		if err := c.Reset(); err != nil {
			return nil, newEncoderError(i, err)
		}
		out[i] = img
	}
	return out, nil
}
