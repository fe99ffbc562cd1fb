package fieldpack

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hupe1980/fieldpack/stream"
)

// PassTiming is the timing of one scheduler pass.
type PassTiming struct {
	Pass    int
	Steps   int
	Upload  time.Duration
	Compute time.Duration
}

// PerformanceRecorder collects upload and compute timings of streamed runs.
// It is passed by handle to the pipeline and can be Reset between runs.
type PerformanceRecorder struct {
	mu            sync.Mutex
	passes        []PassTiming
	uploads       int
	uploadedBytes int64
	uploadTime    time.Duration
}

var _ stream.Recorder = (*PerformanceRecorder)(nil)

// NewPerformanceRecorder returns an empty recorder.
func NewPerformanceRecorder() *PerformanceRecorder {
	return &PerformanceRecorder{}
}

// RecordUpload implements stream.Recorder.
func (r *PerformanceRecorder) RecordUpload(_ int, bytes int, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads++
	r.uploadedBytes += int64(bytes)
	r.uploadTime += d
}

// RecordPass implements stream.Recorder.
func (r *PerformanceRecorder) RecordPass(pass, steps int, upload, compute time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes = append(r.passes, PassTiming{Pass: pass, Steps: steps, Upload: upload, Compute: compute})
}

// Reset discards all recorded timings.
func (r *PerformanceRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes = nil
	r.uploads = 0
	r.uploadedBytes = 0
	r.uploadTime = 0
}

// Passes returns a copy of the recorded passes.
func (r *PerformanceRecorder) Passes() []PassTiming {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PassTiming(nil), r.passes...)
}

// PerformanceSummary aggregates a PerformanceRecorder.
type PerformanceSummary struct {
	Passes        int
	Steps         int
	Uploads       int
	UploadedBytes int64
	UploadTime    time.Duration
	ComputeTime   time.Duration
}

// Summary aggregates the recorded timings.
func (r *PerformanceRecorder) Summary() PerformanceSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := PerformanceSummary{
		Passes:        len(r.passes),
		Uploads:       r.uploads,
		UploadedBytes: r.uploadedBytes,
		UploadTime:    r.uploadTime,
	}
	for _, p := range r.passes {
		s.Steps += p.Steps
		s.ComputeTime += p.Compute
	}
	return s
}

// StepsPerSecond returns the compute throughput, 0 without compute time.
func (s PerformanceSummary) StepsPerSecond() float64 {
	if s.ComputeTime <= 0 {
		return 0
	}
	return float64(s.Steps) / s.ComputeTime.Seconds()
}

func (s PerformanceSummary) String() string {
	return fmt.Sprintf("%d passes, %d steps, %d uploads (%s) in %s, compute %s (%.0f steps/s)",
		s.Passes, s.Steps, s.Uploads, humanize.IBytes(uint64(s.UploadedBytes)),
		s.UploadTime, s.ComputeTime, s.StepsPerSecond())
}
