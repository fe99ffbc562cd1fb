package compress

import (
	"errors"

	"github.com/RoaringBitmap/roaring/v2"
)

// BatchResult reports the per-image outcome of Compress.
type BatchResult struct {
	// Errors holds one entry per input image, nil for images that encoded.
	Errors []error
	// Failed is the set of image indices with a non-nil error.
	Failed *roaring.Bitmap
	// Encoded counts the images that reached an encoder.
	Encoded int
}

func newBatchResult(n int) *BatchResult {
	return &BatchResult{
		Errors: make([]error, n),
		Failed: roaring.New(),
	}
}

// seal builds the failed set once all workers are done.
func (r *BatchResult) seal() {
	for i, err := range r.Errors {
		if err != nil {
			r.Failed.Add(uint32(i))
		}
	}
}

// OK reports whether every image encoded.
func (r *BatchResult) OK() bool {
	return r.Failed.IsEmpty()
}

// FailedCount returns the number of failed images.
func (r *BatchResult) FailedCount() int {
	return int(r.Failed.GetCardinality())
}

// Err joins the errors of all failed images in index order, or returns nil.
func (r *BatchResult) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, r.Failed.GetCardinality())
	it := r.Failed.Iterator()
	for it.HasNext() {
		errs = append(errs, r.Errors[it.Next()])
	}
	return errors.Join(errs...)
}
