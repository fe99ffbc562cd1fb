package volume

import (
	"fmt"

	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/internal/hash"
)

// Volume is a run of compressed images sharing one Header.
//
// len(Data) is always a multiple of ImageLen(); image i occupies
// Data[i·ImageLen : (i+1)·ImageLen].
type Volume struct {
	Header
	Data []byte
}

// New allocates a zeroed volume of count images.
func New(h Header, count int) (*Volume, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, field.Errorf("negative image count %d", count)
	}
	return &Volume{Header: h, Data: make([]byte, count*h.ImageLen())}, nil
}

// Wrap builds a volume over existing image bytes without copying.
func Wrap(h Header, data []byte) (*Volume, error) {
	v := &Volume{Header: h, Data: data}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks the header and that Data holds whole images.
func (v *Volume) Validate() error {
	if v == nil {
		return field.Errorf("nil volume")
	}
	if err := v.Header.Validate(); err != nil {
		return err
	}
	if il := v.ImageLen(); len(v.Data)%il != 0 {
		return field.Errorf("%d data bytes is not a multiple of the %d byte image", len(v.Data), il)
	}
	return nil
}

// Count returns the number of images.
func (v *Volume) Count() int {
	if v == nil {
		return 0
	}
	il := v.ImageLen()
	if il == 0 {
		return 0
	}
	return len(v.Data) / il
}

// Size returns the serialized size in bytes.
func (v *Volume) Size() int64 {
	return int64(HeaderSize + len(v.Data))
}

// Image returns image i. The slice aliases the volume.
func (v *Volume) Image(i int) []byte {
	il := v.ImageLen()
	return v.Data[i*il : (i+1)*il : (i+1)*il]
}

// Images returns count images starting at start. The slice aliases the volume.
func (v *Volume) Images(start, count int) []byte {
	il := v.ImageLen()
	return v.Data[start*il : (start+count)*il : (start+count)*il]
}

// Slice returns a volume over images [start, start+count) sharing v's data.
func (v *Volume) Slice(start, count int) (*Volume, error) {
	if start < 0 || count < 0 || start+count > v.Count() {
		return nil, field.Errorf("image range [%d,%d) outside volume of %d images", start, start+count, v.Count())
	}
	return &Volume{Header: v.Header, Data: v.Images(start, count)}, nil
}

// Append adds the images of o to v. Both must share a header.
func (v *Volume) Append(o *Volume) error {
	if o.Header != v.Header {
		return field.Errorf("cannot append %s to %s", o.Header, v.Header)
	}
	v.Data = append(v.Data, o.Data...)
	return nil
}

// ImageDigest returns the xxHash64 fingerprint of image i.
func (v *Volume) ImageDigest(i int) uint64 {
	return hash.Digest(v.Image(i))
}

// Digest returns the xxHash64 fingerprint of all images.
func (v *Volume) Digest() uint64 {
	return hash.Digest(v.Data)
}

func (v *Volume) String() string {
	return fmt.Sprintf("volume(%s, %d images of %d bytes)", v.Header, v.Count(), v.ImageLen())
}
