package field

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGrid is returned when a grid has a zero (or negative) axis or component count.
	ErrInvalidGrid = errors.New("invalid grid")

	// ErrInvalidArgument is returned for out-of-range offsets, channel counts and short buffers.
	ErrInvalidArgument = errors.New("invalid argument")
)

// InvalidGridError describes the offending axis of an invalid Grid.
//
// errors.Is(err, ErrInvalidGrid) reports true for it.
type InvalidGridError struct {
	Axis  string
	Value int
}

func (e *InvalidGridError) Error() string {
	return fmt.Sprintf("invalid grid: %s must be >= 1, got %d", e.Axis, e.Value)
}

func (e *InvalidGridError) Unwrap() error { return ErrInvalidGrid }

// Errorf returns an error wrapping ErrInvalidArgument.
func Errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
