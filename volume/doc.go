// Package volume holds block-compressed image sequences and their on-disk form.
//
// A Volume is a run of equally sized compressed images. The binary format is a
// 16 byte header followed by the concatenated images:
//
//	offset  size  field
//	0       4     magic 0x5CA1AB13, little-endian
//	4       1     block x
//	5       1     block y
//	6       1     block z
//	7       3     image x in texels, little-endian
//	10      3     image y
//	13      3     image z
//	16      ...   images, ImageLen bytes each
//
// The image count is not stored: it follows from the file size. Appending to a
// volume therefore only writes image bytes.
//
// A Store persists volumes in a blobstore.BlobStore, optionally wrapped in a
// zstd or lz4 envelope.
package volume
