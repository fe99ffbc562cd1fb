// Package blobstore provides the storage abstraction behind compressed volumes.
//
// A volume is one named blob: a 16 byte header followed by the compressed
// images. Stores must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, mmap reads, native appends
//   - MemoryStore: in-process, for tests and pipelines that never touch disk
//   - CachingStore: block cache in front of a remote store
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Stores that can extend a blob in place implement Appender; volume appends
// fall back to read-modify-write otherwise.
package blobstore
