// Package s3 stores compressed volumes in Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "sim-output",
//	    s3.WithPrefix("runs/2024-03/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	vs := volume.NewStore(store)
//
// # Features
//
//   - Range reads, so single images and time slices are fetched without the
//     rest of the volume
//   - Multipart uploads with CRC32C checksums for large volumes
//   - Automatic pagination for listing
//   - Configurable prefix to keep datasets apart in one bucket
//
// S3 has no append; volume appends use read-modify-write.
package s3
