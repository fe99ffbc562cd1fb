package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/fieldpack/stream"
)

// CallKind names a recorded Invoker method.
type CallKind string

const (
	CallUpload        CallKind = "upload"
	CallSetGlobalTime CallKind = "set-global-time"
	CallDispatch      CallKind = "dispatch"
	CallResizeOutput  CallKind = "resize-output"
)

// Call is one recorded Invoker call. Only the fields of its kind are set.
type Call struct {
	Kind     CallKind
	Slot     stream.Slot
	Slice    int
	Bytes    int
	Time     int
	Final    bool
	Dispatch stream.Dispatch
	Seeds    int
	Steps    int
}

func (c Call) String() string {
	switch c.Kind {
	case CallUpload:
		return fmt.Sprintf("upload(slot=%d, slice=%d)", c.Slot, c.Slice)
	case CallSetGlobalTime:
		return fmt.Sprintf("time(%d, final=%t)", c.Time, c.Final)
	case CallDispatch:
		d := c.Dispatch
		return fmt.Sprintf("dispatch(steps=%d, interp=%t, cur=%d, next=%d)", d.Steps, d.Interpolate, d.CurrentSlot, d.NextSlot)
	default:
		return fmt.Sprintf("resize(%d, %d)", c.Seeds, c.Steps)
	}
}

// RecordingInvoker is a stream.Invoker that records every call and keeps a
// copy of the data uploaded to each slot.
type RecordingInvoker struct {
	mu    sync.Mutex
	calls []Call
	slots [2][]byte

	// FailUpload, FailDispatch and FailResize are returned by the matching
	// method when set.
	FailUpload   error
	FailDispatch error
	FailResize   error
	// OnDispatch runs before a dispatch is recorded.
	OnDispatch func(d stream.Dispatch)
}

var _ stream.Invoker = (*RecordingInvoker)(nil)

// NewRecordingInvoker returns an empty recorder.
func NewRecordingInvoker() *RecordingInvoker {
	return &RecordingInvoker{}
}

func (r *RecordingInvoker) record(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

func (r *RecordingInvoker) Upload(_ context.Context, slot stream.Slot, slice int, data []byte) error {
	if r.FailUpload != nil {
		return r.FailUpload
	}
	r.mu.Lock()
	r.slots[slot] = append(r.slots[slot][:0], data...)
	r.mu.Unlock()
	r.record(Call{Kind: CallUpload, Slot: slot, Slice: slice, Bytes: len(data)})
	return nil
}

func (r *RecordingInvoker) SetGlobalTime(t int, final bool) {
	r.record(Call{Kind: CallSetGlobalTime, Time: t, Final: final})
}

func (r *RecordingInvoker) Dispatch(_ context.Context, d stream.Dispatch) error {
	if r.OnDispatch != nil {
		r.OnDispatch(d)
	}
	if r.FailDispatch != nil {
		return r.FailDispatch
	}
	r.record(Call{Kind: CallDispatch, Dispatch: d})
	return nil
}

func (r *RecordingInvoker) ResizeOutput(seeds, steps int) error {
	if r.FailResize != nil {
		return r.FailResize
	}
	r.record(Call{Kind: CallResizeOutput, Seeds: seeds, Steps: steps})
	return nil
}

// Calls returns a copy of the recorded calls.
func (r *RecordingInvoker) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsOf returns the recorded calls of one kind.
func (r *RecordingInvoker) CallsOf(kind CallKind) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// DispatchedSteps returns the sum of dispatched steps.
func (r *RecordingInvoker) DispatchedSteps() int {
	n := 0
	for _, c := range r.CallsOf(CallDispatch) {
		n += c.Dispatch.Steps
	}
	return n
}

// SlotData returns a copy of the last data uploaded to slot.
func (r *RecordingInvoker) SlotData(slot stream.Slot) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.slots[slot]...)
}

// Reset forgets all recorded calls and slot data.
func (r *RecordingInvoker) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.slots = [2][]byte{}
}
