package main

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/fieldpack"
	"github.com/hupe1980/fieldpack/blobstore"
	"github.com/hupe1980/fieldpack/peaks"
)

// session is an opened pipeline together with the resources backing it.
type session struct {
	cfg      tomlConfig
	blobs    blobstore.BlobStore
	pipeline *fieldpack.Pipeline
	logger   *fieldpack.Logger
	logFile  io.Closer
}

func (e *env) openSession(ctx context.Context, configPath string, extra ...fieldpack.Option) (*session, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, logFile, err := cfg.Logging.logger(e.stderr)
	if err != nil {
		return nil, err
	}
	blobs, err := openStore(ctx, cfg.Store)
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}
	opts, err := cfg.pipelineOptions(logger)
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}
	p, err := fieldpack.New(blobs, append(opts, extra...)...)
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}
	return &session{cfg: cfg, blobs: blobs, pipeline: p, logger: logger, logFile: logFile}, nil
}

func (s *session) Close() error {
	return errors.Join(s.pipeline.Close(), s.logFile.Close())
}

func peaksName(name string) string { return name + ".peaks" }

// savePeaks stores pk next to the volume. Appending concatenates the pairs,
// since appended images continue the depth layers of the stored ones.
func (s *session) savePeaks(ctx context.Context, name string, pk peaks.Peaks, appendMode bool) error {
	data := peaks.Encode(pk)
	if appendMode {
		prev, err := blobstore.Get(ctx, s.blobs, peaksName(name))
		if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			return err
		}
		data = append(prev, data...)
	}
	return s.blobs.Put(ctx, peaksName(name), data)
}

func (s *session) loadPeaks(ctx context.Context, name string) (peaks.Peaks, error) {
	data, err := blobstore.Get(ctx, s.blobs, peaksName(name))
	if err != nil {
		return peaks.Peaks{}, err
	}
	return peaks.Decode(data, s.cfg.Pack.peaksMode(), s.cfg.Grid.VecLen)
}
