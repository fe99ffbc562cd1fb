// Package hash provides the checksums and fingerprints used by stored volumes.
//
// CRC32-Castagnoli guards the storage envelope against corruption; it is
// hardware accelerated on x86 (SSE4.2) and ARM64. xxHash64 fingerprints
// individual compressed images so that identical time steps can be spotted
// without comparing their bytes.
//
//	sum := hash.CRC32C(payload)
//	id := hash.Digest(image)
package hash
