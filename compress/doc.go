// Package compress runs block compression of packed images on a pool of
// encoder contexts.
//
// A Pool owns one blockcodec.Context per worker. Compress feeds images through
// a bounded job channel to one goroutine per context; every worker resets its
// context after each image, so a context never holds state of more than one
// job. Each image writes a disjoint region of a pre-sized output volume.
//
// The pool moves through three states:
//
//	Unconfigured --ApplyConfiguration--> Configured --Compress--> Compressing
//	                                         ^                        |
//	                                         +------------------------+
//
// Configuration calls made while a batch is running fail with ErrInvalidState.
//
// Failures of individual images do not abort the batch. They are reported in
// the BatchResult and the failed image keeps a zeroed block range.
package compress
