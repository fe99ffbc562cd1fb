package stream_test

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/internal/resource"
	"github.com/hupe1980/fieldpack/stream"
	"github.com/hupe1980/fieldpack/testutil"
	"github.com/hupe1980/fieldpack/volume"
)

var sliceHeader = volume.Header{BlockX: 4, BlockY: 4, BlockZ: 1, DimX: 8, DimY: 8, DimZ: 1}

// slicedVolume returns a volume of slices·perSlice images where every byte of
// slice i equals i+1.
func slicedVolume(t *testing.T, slices, perSlice int) *volume.Volume {
	t.Helper()
	v, err := volume.New(sliceHeader, slices*perSlice)
	require.NoError(t, err)
	sliceLen := perSlice * sliceHeader.ImageLen()
	for i := range v.Data {
		v.Data[i] = byte(i/sliceLen + 1)
	}
	return v
}

func newVolumeSource(t *testing.T, slices int) *stream.VolumeSource {
	t.Helper()
	src, err := stream.NewVolumeSource(slicedVolume(t, slices, 2), 2)
	require.NoError(t, err)
	return src
}

func describe(calls []testutil.Call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

func TestScheduler_Steady(t *testing.T) {
	src := newVolumeSource(t, 1)
	inv := testutil.NewRecordingInvoker()
	plan, err := stream.ComputePlan(50, 1, 0.1, 1)
	require.NoError(t, err)

	stats, err := stream.NewScheduler(src, inv, stream.WithSeeds(64)).Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"resize(64, 50)",
		"upload(slot=0, slice=0)",
		"time(0, final=false)",
		"dispatch(steps=50, interp=false, cur=0, next=0)",
	}, describe(inv.Calls()))
	assert.Equal(t, 1, stats.Passes)
	assert.Equal(t, 50, stats.Steps)
}

func TestScheduler_StreamingPasses(t *testing.T) {
	src := newVolumeSource(t, 4)
	inv := testutil.NewRecordingInvoker()
	plan, err := stream.ComputePlan(25, 1, 0.1, 4)
	require.NoError(t, err)

	stats, err := stream.NewScheduler(src, inv).Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"resize(1, 25)",
		"upload(slot=0, slice=0)",
		"upload(slot=1, slice=1)",
		"time(0, final=false)",
		"dispatch(steps=10, interp=true, cur=0, next=1)",
		"upload(slot=0, slice=2)",
		"time(1, final=false)",
		"dispatch(steps=10, interp=true, cur=1, next=0)",
		"time(2, final=true)",
		"dispatch(steps=5, interp=false, cur=0, next=0)",
	}, describe(inv.Calls()))

	assert.Equal(t, 3, stats.Passes)
	assert.Equal(t, 25, stats.Steps)
	assert.Equal(t, 3, stats.Uploads)
	assert.Equal(t, int64(3*src.SliceBytes()), stats.UploadedBytes)

	// The even slot ends up holding slice 2, the odd slot slice 1.
	even := inv.SlotData(stream.SlotEven)
	require.Len(t, even, src.SliceBytes())
	assert.Equal(t, byte(3), even[0])
	assert.Equal(t, byte(2), inv.SlotData(stream.SlotOdd)[0])
}

func TestScheduler_UploadsEachSliceOnce(t *testing.T) {
	src := newVolumeSource(t, 201)
	inv := testutil.NewRecordingInvoker()
	plan, err := stream.ComputePlan(2000, 1, 0.1, 201)
	require.NoError(t, err)

	_, err = stream.NewScheduler(src, inv).Run(context.Background(), plan)
	require.NoError(t, err)

	uploads := inv.CallsOf(testutil.CallUpload)
	require.Len(t, uploads, 201)
	for i, c := range uploads {
		assert.Equal(t, i, c.Slice)
		assert.Equal(t, stream.SlotFor(i), c.Slot)
	}
	assert.Len(t, inv.CallsOf(testutil.CallDispatch), 200)
	assert.Equal(t, 2000, inv.DispatchedSteps())
}

func TestScheduler_ChunkSteps(t *testing.T) {
	src := newVolumeSource(t, 4)
	inv := testutil.NewRecordingInvoker()
	plan, err := stream.ComputePlan(25, 1, 0.1, 4)
	require.NoError(t, err)

	stats, err := stream.NewScheduler(src, inv, stream.WithChunkSteps(3)).Run(context.Background(), plan)
	require.NoError(t, err)

	var steps, offsets []int
	for _, c := range inv.CallsOf(testutil.CallDispatch) {
		steps = append(steps, c.Dispatch.Steps)
		offsets = append(offsets, c.Dispatch.Offset)
	}
	assert.Equal(t, []int{3, 3, 3, 1, 3, 3, 3, 1, 3, 2}, steps)
	assert.Equal(t, []int{0, 3, 6, 9, 0, 3, 6, 9, 0, 3}, offsets)
	assert.Equal(t, 10, stats.Dispatches)
	assert.Equal(t, 25, inv.DispatchedSteps())
}

func TestScheduler_CancelBetweenChunks(t *testing.T) {
	src := newVolumeSource(t, 4)
	inv := testutil.NewRecordingInvoker()
	plan, err := stream.ComputePlan(25, 1, 0.1, 4)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inv.OnDispatch = func(stream.Dispatch) { cancel() }

	_, err = stream.NewScheduler(src, inv, stream.WithChunkSteps(2)).Run(ctx, plan)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, inv.DispatchedSteps())
}

func TestScheduler_Failures(t *testing.T) {
	plan, err := stream.ComputePlan(25, 1, 0.1, 4)
	require.NoError(t, err)
	boom := errors.New("device lost")

	t.Run("upload", func(t *testing.T) {
		inv := testutil.NewRecordingInvoker()
		inv.FailUpload = boom
		_, err := stream.NewScheduler(newVolumeSource(t, 4), inv).Run(context.Background(), plan)
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, inv.CallsOf(testutil.CallDispatch))
	})

	t.Run("dispatch", func(t *testing.T) {
		inv := testutil.NewRecordingInvoker()
		inv.FailDispatch = boom
		_, err := stream.NewScheduler(newVolumeSource(t, 4), inv).Run(context.Background(), plan)
		assert.ErrorIs(t, err, boom)
		assert.Len(t, inv.CallsOf(testutil.CallUpload), 2)
	})

	t.Run("output allocation", func(t *testing.T) {
		inv := testutil.NewRecordingInvoker()
		inv.FailResize = fmt.Errorf("%w: 2 GiB", stream.ErrResourceExhausted)
		_, err := stream.NewScheduler(newVolumeSource(t, 4), inv).Run(context.Background(), plan)
		assert.ErrorIs(t, err, stream.ErrResourceExhausted)
		assert.True(t, stream.IsResourceExhausted(err))
		assert.Empty(t, inv.CallsOf(testutil.CallUpload))
	})

	t.Run("memory budget", func(t *testing.T) {
		src := newVolumeSource(t, 4)
		rc := resource.NewController(resource.Config{MemoryLimitBytes: int64(src.SliceBytes())})
		inv := testutil.NewRecordingInvoker()
		_, err := stream.NewScheduler(src, inv, stream.WithResourceController(rc)).Run(context.Background(), plan)
		assert.ErrorIs(t, err, stream.ErrResourceExhausted)
		assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
		assert.Empty(t, inv.Calls())
	})

	t.Run("short source", func(t *testing.T) {
		inv := testutil.NewRecordingInvoker()
		_, err := stream.NewScheduler(newVolumeSource(t, 2), inv).Run(context.Background(), plan)
		assert.ErrorIs(t, err, field.ErrInvalidArgument)
	})
}

func TestScheduler_ReleasesMemoryBudget(t *testing.T) {
	src := newVolumeSource(t, 4)
	rc := resource.NewController(resource.Config{MemoryLimitBytes: int64(2 * src.SliceBytes())})
	plan, err := stream.ComputePlan(25, 1, 0.1, 4)
	require.NoError(t, err)

	s := stream.NewScheduler(src, testutil.NewRecordingInvoker(), stream.WithResourceController(rc))
	for range 2 {
		_, err := s.Run(context.Background(), plan)
		require.NoError(t, err)
		assert.Zero(t, rc.MemoryUsage())
	}
}

type passRecorder struct {
	uploads []int
	passes  []int
}

func (r *passRecorder) RecordUpload(slice, _ int, _ time.Duration) { r.uploads = append(r.uploads, slice) }

func (r *passRecorder) RecordPass(pass, steps int, _, _ time.Duration) {
	r.passes = append(r.passes, steps)
}

func TestScheduler_Recorder(t *testing.T) {
	rec := &passRecorder{}
	plan, err := stream.ComputePlan(25, 1, 0.1, 4)
	require.NoError(t, err)

	_, err = stream.NewScheduler(newVolumeSource(t, 4), testutil.NewRecordingInvoker(), stream.WithRecorder(rec)).Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, rec.uploads)
	assert.Equal(t, []int{10, 10, 5}, rec.passes)
}

func TestRawSource(t *testing.T) {
	grid := field.Grid{X: 3, Y: 2, Z: 1, T: 2, VecLen: 2}
	raw := testutil.RampField(grid)

	src, err := stream.NewRawSource(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, src.Slices())
	assert.Equal(t, 4*grid.StepLen(), src.SliceBytes())

	data, err := src.Slice(context.Background(), 1)
	require.NoError(t, err)
	step := raw.Step(1)
	for i, want := range step {
		assert.Equal(t, want, math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:])))
	}

	_, err = src.Slice(context.Background(), 2)
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
}

func TestVolumeSource(t *testing.T) {
	v := slicedVolume(t, 3, 2)
	src, err := stream.NewVolumeSource(v, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, src.Slices())
	assert.Equal(t, 2*sliceHeader.ImageLen(), src.SliceBytes())

	data, err := src.Slice(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, v.Images(4, 2), data)

	_, err = stream.NewVolumeSource(v, 4)
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
}
