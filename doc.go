// Package fieldpack stores large time-varying 3D vector fields in a lossy,
// fixed-ratio block-compressed form and streams them to a bounded-capacity
// consumer in temporal windows.
//
// # Quick Start
//
//	ctx := context.Background()
//	p, _ := fieldpack.New(blobstore.NewLocalStore("./data"))
//	defer p.Close()
//
//	raw, _ := field.Load("velocity.raw", grid)
//	res, _ := p.Compress(ctx, "velocity.vol", raw)
//	_ = peaks.WriteFile("velocity.peaks", res.Peaks)
//
// # Streaming
//
// A Plan splits G integration steps into passes over consecutive time
// slices. Stream uploads each slice once into a two-slot ring and drives the
// caller's stream.Invoker:
//
//	plan, _ := p.Plan(ctx, "velocity.vol", 2000, 1.0, 0.1, grid.Z)
//	stats, _ := p.Stream(ctx, "velocity.vol", gpu, plan, func(o *fieldpack.TraceOptions) {
//	    o.Seeds = 4096
//	})
//
// # Storage
//
// Volumes live in any blobstore.BlobStore: local files (memory mapped),
// memory, Amazon S3 (blobstore/s3) or MinIO (blobstore/minio). WithEnvelope
// adds zstd or lz4 compression on top of the block codec.
//
// # Errors
//
// Pipeline methods return errors from a small taxonomy that works with
// errors.Is: ErrInvalidArgument, ErrInvalidGrid, ErrCorruptFile, ErrEncoder,
// ErrResourceExhausted and ErrNotFound.
package fieldpack
