package compress

import (
	"errors"
	"fmt"

	"github.com/hupe1980/fieldpack/blockcodec"
)

var (
	// ErrInvalidState is returned for calls that the current pool state does not allow.
	ErrInvalidState = errors.New("invalid pool state")

	// ErrEncoder is matched by every *EncoderError.
	ErrEncoder = errors.New("encoder failure")
)

// EncoderError reports the failure of one image of a batch.
type EncoderError struct {
	Index  int
	Status blockcodec.Status
	cause  error
}

func (e *EncoderError) Error() string {
	return fmt.Sprintf("image %d: %s: %v", e.Index, e.Status, e.cause)
}

func (e *EncoderError) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrEncoder) hold for every EncoderError.
func (e *EncoderError) Is(target error) bool { return target == ErrEncoder }

func newEncoderError(i int, err error) *EncoderError {
	return &EncoderError{Index: i, Status: blockcodec.StatusOf(err), cause: err}
}

func stateError(op string, s State) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidState, op, s)
}
