package stream

import (
	"context"
	"errors"
)

// ErrResourceExhausted is wrapped by Invoker errors that report a failed
// allocation on the consumer side.
var ErrResourceExhausted = errors.New("resource exhausted")

// Dispatch describes one integration call.
type Dispatch struct {
	// Pass is the pass index; the steady and remainder passes use the slice index.
	Pass int
	// Steps to integrate in this call.
	Steps int
	// Offset is the number of steps of the pass already integrated.
	Offset int
	// Interpolate blends CurrentSlot towards NextSlot over the pass.
	Interpolate bool
	CurrentSlot Slot
	NextSlot    Slot
}

// Invoker is the compute backend the Scheduler drives.
//
// All calls are synchronous. data passed to Upload is only valid for the
// duration of the call.
type Invoker interface {
	Upload(ctx context.Context, slot Slot, slice int, data []byte) error
	SetGlobalTime(t int, final bool)
	Dispatch(ctx context.Context, d Dispatch) error
	ResizeOutput(seeds, steps int) error
}
