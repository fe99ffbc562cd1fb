// Package minio stores compressed volumes in MinIO or any S3-compatible service.
//
// # Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	store := fieldminio.NewStore(client, "sim-output", "runs/")
//
// Reads are ranged GETs. Create streams through PutObject with an unknown
// size, which minio-go splits into a multipart upload.
package minio
