package main

import (
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/fieldpack/stream"
)

// dryRunInvoker stands in for a GPU backend: it accepts every call and
// optionally prints it.
type dryRunInvoker struct {
	w           io.Writer
	outputBytes int64
}

var _ stream.Invoker = (*dryRunInvoker)(nil)

func (d *dryRunInvoker) printf(format string, args ...any) {
	if d.w != nil {
		fmt.Fprintf(d.w, format, args...)
	}
}

func (d *dryRunInvoker) Upload(_ context.Context, slot stream.Slot, slice int, data []byte) error {
	d.printf("upload   slice %d -> slot %d (%d bytes)\n", slice, slot, len(data))
	return nil
}

func (d *dryRunInvoker) SetGlobalTime(t int, final bool) {
	d.printf("time     %d final=%t\n", t, final)
}

func (d *dryRunInvoker) Dispatch(_ context.Context, disp stream.Dispatch) error {
	d.printf("dispatch pass %d: %d steps at %d interp=%t slots %d/%d\n",
		disp.Pass, disp.Steps, disp.Offset, disp.Interpolate, disp.CurrentSlot, disp.NextSlot)
	return nil
}

func (d *dryRunInvoker) ResizeOutput(seeds, steps int) error {
	d.outputBytes = int64(seeds) * int64(steps) * stream.OutputTexelBytes
	d.printf("resize   %d seeds x %d steps\n", seeds, steps)
	return nil
}
