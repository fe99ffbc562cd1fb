// Package blockcodec implements fixed-ratio block compression of packed
// half-float images.
//
// Every block of BlockX·BlockY·BlockZ texels compresses to BlockBytes bytes,
// independently of its content, so the compressed size of an image depends on
// its dimensions only. A Context is a single-owner engine instance: it must be
// Reset between two Compress calls.
package blockcodec

import (
	"github.com/hupe1980/fieldpack/packer"
)

// BlockBytes is the compressed size of one block.
const BlockBytes = 16

// Context is one encoder/decoder instance.
//
// Implementations are not safe for concurrent use.
type Context interface {
	// Compress encodes the interior of img into out, which must hold
	// Config().ImageLen(img.DimX, img.DimY, img.DimZ) bytes.
	Compress(img *packer.Image, out []byte) error
	// Decompress decodes data into the interior of img.
	Decompress(data []byte, img *packer.Image) error
	// Reset prepares the context for the next image.
	Reset() error
	Config() Config
	Close() error
}

// Factory allocates a Context for cfg.
type Factory func(cfg Config) (Context, error)

// NewContext allocates the default endpoint codec.
func NewContext(cfg Config) (Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newEndpointContext(cfg), nil
}

var _ Factory = NewContext
