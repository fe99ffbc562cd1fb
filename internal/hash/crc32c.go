package hash

import (
	"hash"
	"hash/crc32"

	"github.com/cespare/xxhash/v2"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// NewCRC32C returns a streaming CRC32-Castagnoli hash.Hash32.
func NewCRC32C() hash.Hash32 {
	return crc32.New(crc32cTable)
}

// Digest returns the xxHash64 fingerprint of data.
func Digest(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// NewDigest returns a streaming xxHash64 hasher.
func NewDigest() *xxhash.Digest {
	return xxhash.New()
}
