package volume

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/internal/hash"
)

// Envelope selects the entropy coder wrapped around a stored volume.
type Envelope uint8

const (
	// EnvelopeNone stores the plain volume format.
	EnvelopeNone Envelope = 0
	// EnvelopeLZ4 is fast to decode; suited to volumes that are streamed often.
	EnvelopeLZ4 Envelope = 1
	// EnvelopeZSTD has the better ratio; suited to archived volumes.
	EnvelopeZSTD Envelope = 2
)

func (e Envelope) String() string {
	switch e {
	case EnvelopeNone:
		return "none"
	case EnvelopeLZ4:
		return "lz4"
	case EnvelopeZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Envelope(%d)", uint8(e))
	}
}

// ParseEnvelope parses "none", "lz4" or "zstd".
func ParseEnvelope(s string) (Envelope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return EnvelopeNone, nil
	case "lz4":
		return EnvelopeLZ4, nil
	case "zstd":
		return EnvelopeZSTD, nil
	}
	return 0, field.Errorf("unknown envelope %q", s)
}

// Sealed layout: [magic "FPEV"][type u8][crc32c u32][rawLen u64][payload].
// The checksum covers the raw (unwrapped) bytes.
const (
	envelopeMagic      = "FPEV"
	envelopeHeaderSize = 4 + 1 + 4 + 8

	maxSealedLen = 1 << 40
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// IsSealed reports whether data starts with an envelope header.
func IsSealed(data []byte) bool {
	return len(data) >= envelopeHeaderSize && bytes.Equal(data[:4], []byte(envelopeMagic))
}

// Seal wraps raw in an envelope of type e. EnvelopeNone returns raw unchanged.
// When compression does not shrink the data the envelope records EnvelopeNone
// and carries raw as is.
func Seal(raw []byte, e Envelope) ([]byte, error) {
	var payload []byte
	switch e {
	case EnvelopeNone:
		return raw, nil
	case EnvelopeLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, buf, nil)
		if err != nil {
			return nil, err
		}
		payload = buf[:n]
	case EnvelopeZSTD:
		enc := getZstdEncoder()
		payload = enc.EncodeAll(raw, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, field.Errorf("unknown envelope %d", e)
	}

	if len(payload) == 0 || len(payload) >= len(raw) {
		e, payload = EnvelopeNone, raw
	}

	out := make([]byte, envelopeHeaderSize+len(payload))
	copy(out, envelopeMagic)
	out[4] = byte(e)
	binary.LittleEndian.PutUint32(out[5:], hash.CRC32C(raw))
	binary.LittleEndian.PutUint64(out[9:], uint64(len(raw)))
	copy(out[envelopeHeaderSize:], payload)
	return out, nil
}

// Unseal returns the raw bytes inside an envelope and the coder used.
// Data without an envelope header is returned unchanged.
func Unseal(data []byte) ([]byte, Envelope, error) {
	if !IsSealed(data) {
		return data, EnvelopeNone, nil
	}
	e := Envelope(data[4])
	sum := binary.LittleEndian.Uint32(data[5:])
	rawLen := binary.LittleEndian.Uint64(data[9:])
	payload := data[envelopeHeaderSize:]

	if rawLen > maxSealedLen || (e == EnvelopeNone && rawLen != uint64(len(payload))) {
		return nil, e, fmt.Errorf("%w: envelope claims %d bytes from a %d byte payload", ErrCorruptFile, rawLen, len(payload))
	}

	var raw []byte
	switch e {
	case EnvelopeNone:
		raw = payload
	case EnvelopeLZ4:
		raw = make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, e, fmt.Errorf("%w: lz4: %v", ErrCorruptFile, err)
		}
		raw = raw[:n]
	case EnvelopeZSTD:
		dec := getZstdDecoder()
		var err error
		raw, err = dec.DecodeAll(payload, make([]byte, 0, rawLen))
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, e, fmt.Errorf("%w: zstd: %v", ErrCorruptFile, err)
		}
	default:
		return nil, e, fmt.Errorf("%w: unknown envelope type %d", ErrCorruptFile, e)
	}

	if uint64(len(raw)) != rawLen {
		return nil, e, fmt.Errorf("%w: envelope size mismatch: got %d, want %d", ErrCorruptFile, len(raw), rawLen)
	}
	if hash.CRC32C(raw) != sum {
		return nil, e, fmt.Errorf("%w: envelope checksum mismatch", ErrCorruptFile)
	}
	return raw, e, nil
}
