package fieldpack

import (
	"errors"
	"fmt"

	"github.com/hupe1980/fieldpack/blobstore"
	"github.com/hupe1980/fieldpack/blockcodec"
	"github.com/hupe1980/fieldpack/compress"
	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/peaks"
	"github.com/hupe1980/fieldpack/stream"
	"github.com/hupe1980/fieldpack/volume"
)

var (
	// ErrInvalidArgument is matched by every InputValidationError.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidGrid is matched by InputValidationErrors caused by a bad grid.
	ErrInvalidGrid = errors.New("invalid grid")
	// ErrCorruptFile is matched by every CorruptFileError.
	ErrCorruptFile = errors.New("corrupt file")
	// ErrEncoder is matched by every EncoderError.
	ErrEncoder = errors.New("encoder failure")
	// ErrResourceExhausted is matched by every ResourceExhaustionError.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrNotFound is returned when a named volume does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned for calls the compression pool cannot accept right now.
	ErrInvalidState = errors.New("invalid state")
	// ErrClosed is returned by a closed Pipeline.
	ErrClosed = errors.New("pipeline closed")
)

// InputValidationError reports a rejected grid, offset, buffer or option.
//
// The original underlying error can be accessed via errors.Unwrap.
type InputValidationError struct {
	// Grid is set when the grid itself is invalid.
	Grid  bool
	cause error
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid input: %v", e.cause)
}

func (e *InputValidationError) Unwrap() error { return e.cause }

func (e *InputValidationError) Is(target error) bool {
	return target == ErrInvalidArgument || (e.Grid && target == ErrInvalidGrid)
}

// CorruptFileError reports stored data that cannot be decoded.
type CorruptFileError struct {
	cause error
}

func (e *CorruptFileError) Error() string {
	return fmt.Sprintf("corrupt file: %v", e.cause)
}

func (e *CorruptFileError) Unwrap() error { return e.cause }

func (e *CorruptFileError) Is(target error) bool { return target == ErrCorruptFile }

// EncoderError reports a codec failure. Index is the image of the batch, or
// -1 when the failure is not tied to one image.
type EncoderError struct {
	Index  int
	Status blockcodec.Status
	cause  error
}

func (e *EncoderError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("encoder: %s: %v", e.Status, e.cause)
	}
	return fmt.Sprintf("encoder: image %d: %s: %v", e.Index, e.Status, e.cause)
}

func (e *EncoderError) Unwrap() error { return e.cause }

func (e *EncoderError) Is(target error) bool { return target == ErrEncoder }

// ResourceExhaustionError reports a failed allocation of the consumer or an
// exhausted memory budget.
type ResourceExhaustionError struct {
	cause error
}

func (e *ResourceExhaustionError) Error() string {
	return fmt.Sprintf("resource exhausted: %v", e.cause)
}

func (e *ResourceExhaustionError) Unwrap() error { return e.cause }

func (e *ResourceExhaustionError) Is(target error) bool { return target == ErrResourceExhausted }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Already translated.
	var (
		ive *InputValidationError
		cfe *CorruptFileError
		ee  *EncoderError
		ree *ResourceExhaustionError
	)
	if errors.As(err, &ive) || errors.As(err, &cfe) || errors.As(err, &ee) || errors.As(err, &ree) {
		return err
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidState) || errors.Is(err, ErrClosed) {
		return err
	}

	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if stream.IsResourceExhausted(err) {
		return &ResourceExhaustionError{cause: err}
	}
	if errors.Is(err, volume.ErrCorruptFile) || errors.Is(err, peaks.ErrCorruptFile) {
		return &CorruptFileError{cause: err}
	}

	var cee *compress.EncoderError
	if errors.As(err, &cee) {
		return &EncoderError{Index: cee.Index, Status: cee.Status, cause: err}
	}
	if errors.Is(err, blockcodec.ErrCodec) {
		return &EncoderError{Index: -1, Status: blockcodec.StatusOf(err), cause: err}
	}
	if errors.Is(err, compress.ErrInvalidState) {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	if errors.Is(err, field.ErrInvalidGrid) {
		return &InputValidationError{Grid: true, cause: err}
	}
	if errors.Is(err, field.ErrInvalidArgument) {
		return &InputValidationError{cause: err}
	}
	return err
}
