package fieldpack

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fieldpack/blobstore"
	"github.com/hupe1980/fieldpack/blockcodec"
	"github.com/hupe1980/fieldpack/compress"
	"github.com/hupe1980/fieldpack/field"
	"github.com/hupe1980/fieldpack/internal/resource"
	"github.com/hupe1980/fieldpack/peaks"
	"github.com/hupe1980/fieldpack/stream"
	"github.com/hupe1980/fieldpack/volume"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name   string
		in     error
		is     []error
		isNot  []error
		asType any
	}{
		{
			name:   "invalid grid",
			in:     fmt.Errorf("pack: %w", &field.InvalidGridError{Axis: "X", Value: 0}),
			is:     []error{ErrInvalidGrid, ErrInvalidArgument, field.ErrInvalidGrid},
			asType: new(*InputValidationError),
		},
		{
			name:   "invalid argument",
			in:     field.Errorf("channel count 7"),
			is:     []error{ErrInvalidArgument},
			isNot:  []error{ErrInvalidGrid},
			asType: new(*InputValidationError),
		},
		{
			name:   "corrupt volume",
			in:     fmt.Errorf("x.vol: %w", volume.ErrCorruptFile),
			is:     []error{ErrCorruptFile, volume.ErrCorruptFile},
			asType: new(*CorruptFileError),
		},
		{
			name:   "corrupt peaks",
			in:     peaks.ErrCorruptFile,
			is:     []error{ErrCorruptFile},
			asType: new(*CorruptFileError),
		},
		{
			name:   "batch encoder",
			in:     errors.Join(&compress.EncoderError{Index: 3}),
			is:     []error{ErrEncoder, compress.ErrEncoder},
			asType: new(*EncoderError),
		},
		{
			name:   "codec",
			in:     &blockcodec.Error{Status: blockcodec.StatusBadBlockSize, Msg: "7x3"},
			is:     []error{ErrEncoder, blockcodec.ErrCodec},
			isNot:  []error{ErrInvalidArgument},
			asType: new(*EncoderError),
		},
		{
			name:   "invoker allocation",
			in:     fmt.Errorf("resize: %w", stream.ErrResourceExhausted),
			is:     []error{ErrResourceExhausted},
			asType: new(*ResourceExhaustionError),
		},
		{
			name:   "memory budget",
			in:     resource.ErrMemoryLimitExceeded,
			is:     []error{ErrResourceExhausted},
			asType: new(*ResourceExhaustionError),
		},
		{
			name: "not found",
			in:   fmt.Errorf("open: %w", blobstore.ErrNotFound),
			is:   []error{ErrNotFound, blobstore.ErrNotFound},
		},
		{
			name: "pool state",
			in:   fmt.Errorf("%w: compress while compressing", compress.ErrInvalidState),
			is:   []error{ErrInvalidState},
		},
		{
			name: "context",
			in:   context.Canceled,
			is:   []error{context.Canceled},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.in)
			require.Error(t, got)
			for _, target := range tt.is {
				assert.ErrorIs(t, got, target)
			}
			for _, target := range tt.isNot {
				assert.NotErrorIs(t, got, target)
			}
			assert.ErrorIs(t, got, tt.in)
			if tt.asType != nil {
				assert.ErrorAs(t, got, tt.asType)
			}
			// Translation is idempotent.
			assert.Equal(t, got, translateError(got))
		})
	}

	assert.NoError(t, translateError(nil))
}

func TestEncoderErrorCarriesIndex(t *testing.T) {
	got := translateError(errors.Join(&compress.EncoderError{Index: 5, Status: blockcodec.StatusBadParam}))
	var ee *EncoderError
	require.ErrorAs(t, got, &ee)
	assert.Equal(t, 5, ee.Index)
	assert.Equal(t, blockcodec.StatusBadParam, ee.Status)
	assert.Contains(t, ee.Error(), "image 5")
}
