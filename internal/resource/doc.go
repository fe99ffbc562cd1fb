// Package resource bounds the memory and bandwidth used while streaming a field.
//
// A Controller tracks three budgets:
//
//   - Memory: bytes held by resident time slices and cached blocks. Acquire is
//     non-blocking and fails fast with ErrMemoryLimitExceeded.
//   - Fetches: the number of concurrent remote range reads.
//   - IO: a token bucket throttling slice uploads.
//
// Usage:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   2 << 30,
//	    IOLimitBytesPerSec: 512 << 20,
//	})
//
//	if err := rc.AcquireMemory(int64(len(slice))); err != nil {
//	    return err
//	}
//	defer rc.ReleaseMemory(int64(len(slice)))
//
//	if err := rc.AcquireIO(ctx, len(slice)); err != nil {
//	    return err
//	}
//
// All methods are safe for concurrent use and are no-ops on a nil Controller,
// so callers can leave limiting off without nil checks.
package resource
