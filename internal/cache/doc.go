// Package cache keeps recently read blocks of remote blobs in memory.
//
// Keys identify a fixed-size block of a named blob. Memory held by the cache is
// charged to a resource.Controller so that cached blocks and resident time
// slices share one budget.
package cache
