// Package testutil provides testing utilities for fieldpack.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Fields
//
//	rng := testutil.NewRNG(seed)
//	f := rng.UniformField(grid, -1, 1)
//
// # Analytic Fields
//
//	f := testutil.VortexField(grid) // smooth, time-varying swirl
//
// # Recording Invoker
//
//	inv := testutil.NewRecordingInvoker()
//	_, err := stream.NewScheduler(src, inv).Run(ctx, plan)
//	calls := inv.Calls()
package testutil
