// Package stream drives particle integration over a time series that does
// not fit resident at once.
//
// ComputePlan splits the requested number of integration steps G into passes
// of L steps. Pass p integrates between time slices p and p+1, which live in
// the two slots of a Ring. A slice always occupies the slot of its parity, so
// moving to the next pass uploads exactly one new slice. A final pass of R
// steps runs on the last slice without interpolation.
//
// The Scheduler is single threaded. Every upload and dispatch is synchronous:
// the Invoker returns only when its effect is visible to the next call.
package stream
