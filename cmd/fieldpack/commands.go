package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"

	"github.com/hupe1980/fieldpack"
	"github.com/hupe1980/fieldpack/blobstore"
	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/peaks"
	"github.com/hupe1980/fieldpack/stream"
)

func runCompress(ctx context.Context, e *env, args []string) error {
	fs, configPath := e.flagSet("compress")
	appendMode := fs.Bool("append", false, "append to an existing volume")
	if err := parse(fs, args, 2, 2); err != nil {
		return err
	}
	rawPath, name := fs.Arg(0), fs.Arg(1)

	s, err := e.openSession(ctx, *configPath)
	if err != nil {
		return err
	}
	defer s.Close()

	grid, err := s.cfg.Grid.grid()
	if err != nil {
		return err
	}
	packOpt, err := s.cfg.Pack.apply(*appendMode)
	if err != nil {
		return err
	}
	raw, err := field.Load(rawPath, grid)
	if err != nil {
		return err
	}

	res, err := s.pipeline.Compress(ctx, name, raw, packOpt)
	if err != nil {
		return err
	}
	if s.cfg.Pack.Normalize {
		if err := s.savePeaks(ctx, name, res.Peaks, *appendMode); err != nil {
			return fmt.Errorf("store peaks: %w", err)
		}
	}

	fmt.Fprintf(e.stdout, "compressed %s: %d images %dx%dx%d in %s blocks, %s in %s\n",
		name, res.Appended, res.Header.DimX, res.Header.DimY, res.Header.DimZ,
		blockDims(res.Header.BlockX, res.Header.BlockY, res.Header.BlockZ),
		humanize.IBytes(uint64(res.Bytes)), res.Duration)
	if *appendMode {
		fmt.Fprintf(e.stdout, "volume now holds %d images\n", res.Images)
	}
	if !res.Batch.OK() {
		fmt.Fprintf(e.stdout, "%d images failed to encode and were stored zeroed:\n", res.Batch.FailedCount())
		it := res.Batch.Failed.Iterator()
		for it.HasNext() {
			i := it.Next()
			fmt.Fprintf(e.stdout, "  image %d: %v\n", i, res.Batch.Errors[i])
		}
	}
	return nil
}

func runDecompress(ctx context.Context, e *env, args []string) error {
	fs, configPath := e.flagSet("decompress")
	if err := parse(fs, args, 2, 2); err != nil {
		return err
	}
	name, outPath := fs.Arg(0), fs.Arg(1)

	s, err := e.openSession(ctx, *configPath)
	if err != nil {
		return err
	}
	defer s.Close()

	grid, err := s.cfg.Grid.grid()
	if err != nil {
		return err
	}
	packOpt, err := s.cfg.Pack.apply(false)
	if err != nil {
		return err
	}
	pk, err := s.loadPeaksIfNormalized(ctx, name)
	if err != nil {
		return err
	}

	raw, err := s.pipeline.Decompress(ctx, name, grid, pk, packOpt)
	if err != nil {
		return err
	}
	if err := raw.Save(outPath); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "decompressed %s: grid %s, %s written to %s\n",
		name, grid, humanize.IBytes(uint64(raw.Len()*4)), outPath)
	return nil
}

func (s *session) loadPeaksIfNormalized(ctx context.Context, name string) (pk peaks.Peaks, err error) {
	if !s.cfg.Pack.Normalize {
		return pk, nil
	}
	pk, err = s.loadPeaks(ctx, name)
	if err != nil {
		return pk, fmt.Errorf("load peaks: %w", err)
	}
	return pk, nil
}

func runInfo(ctx context.Context, e *env, args []string) error {
	fs, configPath := e.flagSet("info")
	images := fs.Bool("images", false, "print the digest of every image")
	if err := parse(fs, args, 1, 1); err != nil {
		return err
	}
	name := fs.Arg(0)

	s, err := e.openSession(ctx, *configPath)
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := s.pipeline.Info(ctx, name)
	if err != nil {
		return err
	}
	stored, err := blobstore.Get(ctx, s.blobs, name)
	if err != nil {
		return err
	}
	vol, err := s.pipeline.Load(ctx, name)
	if err != nil {
		return err
	}

	w := e.stdout
	fmt.Fprintf(w, "volume:       %s\n", name)
	fmt.Fprintf(w, "images:       %d of %dx%dx%d texels\n", info.Images, info.DimX, info.DimY, info.DimZ)
	fmt.Fprintf(w, "block:        %s (%.2f bpp)\n", blockDims(info.BlockX, info.BlockY, info.BlockZ),
		128/float64(info.BlockX*info.BlockY*info.BlockZ))
	fmt.Fprintf(w, "image size:   %s\n", humanize.IBytes(uint64(info.ImageLen())))
	fmt.Fprintf(w, "raw size:     %s\n", humanize.IBytes(uint64(info.RawSize)))
	fmt.Fprintf(w, "stored size:  %s (%s)\n", humanize.IBytes(uint64(info.StoredSize)), info.Envelope)
	fmt.Fprintf(w, "stored hash:  %016x\n", xxhash.Sum64(stored))
	fmt.Fprintf(w, "image hash:   %016x\n", vol.Digest())
	if *images {
		for i := 0; i < vol.Count(); i++ {
			fmt.Fprintf(w, "  image %4d: %016x\n", i, vol.ImageDigest(i))
		}
	}
	return nil
}

// planFlags are shared by plan and trace.
type planFlags struct {
	steps    *int
	timesize *float64
	dt       *float64
	slices   *int
}

func addPlanFlags(fs *flag.FlagSet) planFlags {
	return planFlags{
		steps:    fs.Int("steps", 0, "global integration steps"),
		timesize: fs.Float64("timesize", 1, "time between two slices"),
		dt:       fs.Float64("dt", 0.1, "integration step width"),
		slices:   fs.Int("slices", 0, "time slices when no volume is given"),
	}
}

func (s *session) plan(ctx context.Context, name string, pf planFlags) (stream.Plan, error) {
	per := s.cfg.Stream.ImagesPerSlice
	if per == 0 {
		info, err := s.pipeline.Info(ctx, name)
		if err != nil {
			return stream.Plan{}, err
		}
		per = info.Images / max(1, s.cfg.Grid.T)
	}
	return s.pipeline.Plan(ctx, name, *pf.steps, *pf.timesize, *pf.dt, per)
}

func runPlan(ctx context.Context, e *env, args []string) error {
	fs, configPath := e.flagSet("plan")
	pf := addPlanFlags(fs)
	if err := parse(fs, args, 0, 1); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	var plan stream.Plan
	if fs.NArg() == 0 {
		if *pf.slices < 1 {
			return fmt.Errorf("plan needs a volume name or -slices")
		}
		plan, err = stream.ComputePlan(*pf.steps, *pf.timesize, *pf.dt, *pf.slices)
	} else {
		s, serr := e.openSession(ctx, *configPath)
		if serr != nil {
			return serr
		}
		defer s.Close()
		plan, err = s.plan(ctx, fs.Arg(0), pf)
	}
	if err != nil {
		return err
	}

	w := e.stdout
	fmt.Fprintf(w, "plan:         %s\n", plan)
	fmt.Fprintf(w, "passes:       %d\n", plan.Passes())
	fmt.Fprintf(w, "slices used:  %d of %d\n", plan.SlicesNeeded(), plan.Slices)
	fmt.Fprintf(w, "output:       %s for %d seeds\n",
		humanize.IBytes(uint64(plan.OutputBytes(cfg.Stream.Seeds))), cfg.Stream.Seeds)
	return nil
}

func runTrace(ctx context.Context, e *env, args []string) error {
	fs, configPath := e.flagSet("trace")
	pf := addPlanFlags(fs)
	seeds := fs.Int("seeds", 0, "traced particles (overrides the config)")
	verbose := fs.Bool("v", false, "print every invoker call")
	if err := parse(fs, args, 1, 1); err != nil {
		return err
	}
	name := fs.Arg(0)

	perf := fieldpack.NewPerformanceRecorder()
	s, err := e.openSession(ctx, *configPath, fieldpack.WithPerformanceRecorder(perf))
	if err != nil {
		return err
	}
	defer s.Close()

	plan, err := s.plan(ctx, name, pf)
	if err != nil {
		return err
	}
	n := s.cfg.Stream.Seeds
	if *seeds > 0 {
		n = *seeds
	}

	inv := &dryRunInvoker{}
	if *verbose {
		inv.w = e.stdout
	}
	stats, err := s.pipeline.Stream(ctx, name, inv, plan, func(o *fieldpack.TraceOptions) {
		o.Seeds = n
		o.ImagesPerSlice = s.cfg.Stream.ImagesPerSlice
	})
	if err != nil {
		return err
	}

	w := e.stdout
	fmt.Fprintf(w, "plan:         %s\n", plan)
	fmt.Fprintf(w, "passes:       %d (%d dispatches, %d steps)\n", stats.Passes, stats.Dispatches, stats.Steps)
	fmt.Fprintf(w, "uploads:      %d (%s)\n", stats.Uploads, humanize.IBytes(uint64(stats.UploadedBytes)))
	fmt.Fprintf(w, "output:       %s for %d seeds\n", humanize.IBytes(uint64(inv.outputBytes)), n)
	fmt.Fprintf(w, "timing:       %s\n", perf.Summary())
	return nil
}

func blockDims(x, y, z int) string {
	if z <= 1 {
		return fmt.Sprintf("%dx%d", x, y)
	}
	return fmt.Sprintf("%dx%dx%d", x, y, z)
}
