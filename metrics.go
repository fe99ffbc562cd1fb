package fieldpack

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordCompress is called after each compression batch. failed counts
	// the images that did not encode; bytes is the compressed size.
	RecordCompress(images, failed int, bytes int64, duration time.Duration, err error)

	// RecordStore is called after each volume write.
	RecordStore(bytes int64, duration time.Duration, err error)

	// RecordLoad is called after each volume read.
	RecordLoad(bytes int64, duration time.Duration, err error)

	// RecordStream is called after each streamed integration run.
	RecordStream(passes, steps int, uploaded int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCompress(int, int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordStore(int64, time.Duration, error)              {}
func (NoopMetricsCollector) RecordLoad(int64, time.Duration, error)               {}
func (NoopMetricsCollector) RecordStream(int, int, int64, time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	CompressCount       atomic.Int64
	CompressErrors      atomic.Int64
	CompressImages      atomic.Int64
	CompressFailed      atomic.Int64
	CompressBytes       atomic.Int64
	CompressTotalNanos  atomic.Int64
	StoreCount          atomic.Int64
	StoreErrors         atomic.Int64
	StoreBytes          atomic.Int64
	LoadCount           atomic.Int64
	LoadErrors          atomic.Int64
	LoadBytes           atomic.Int64
	StreamCount         atomic.Int64
	StreamErrors        atomic.Int64
	StreamPasses        atomic.Int64
	StreamSteps         atomic.Int64
	StreamUploadedBytes atomic.Int64
	StreamTotalNanos    atomic.Int64
}

// RecordCompress implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCompress(images, failed int, bytes int64, duration time.Duration, err error) {
	b.CompressCount.Add(1)
	b.CompressImages.Add(int64(images))
	b.CompressFailed.Add(int64(failed))
	b.CompressBytes.Add(bytes)
	b.CompressTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CompressErrors.Add(1)
	}
}

// RecordStore implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStore(bytes int64, _ time.Duration, err error) {
	b.StoreCount.Add(1)
	if err != nil {
		b.StoreErrors.Add(1)
		return
	}
	b.StoreBytes.Add(bytes)
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(bytes int64, _ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
		return
	}
	b.LoadBytes.Add(bytes)
}

// RecordStream implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStream(passes, steps int, uploaded int64, duration time.Duration, err error) {
	b.StreamCount.Add(1)
	b.StreamPasses.Add(int64(passes))
	b.StreamSteps.Add(int64(steps))
	b.StreamUploadedBytes.Add(uploaded)
	b.StreamTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.StreamErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CompressCount:       b.CompressCount.Load(),
		CompressErrors:      b.CompressErrors.Load(),
		CompressImages:      b.CompressImages.Load(),
		CompressFailed:      b.CompressFailed.Load(),
		CompressBytes:       b.CompressBytes.Load(),
		CompressAvgNanos:    avg(b.CompressTotalNanos.Load(), b.CompressCount.Load()),
		StoreCount:          b.StoreCount.Load(),
		StoreErrors:         b.StoreErrors.Load(),
		StoreBytes:          b.StoreBytes.Load(),
		LoadCount:           b.LoadCount.Load(),
		LoadErrors:          b.LoadErrors.Load(),
		LoadBytes:           b.LoadBytes.Load(),
		StreamCount:         b.StreamCount.Load(),
		StreamErrors:        b.StreamErrors.Load(),
		StreamPasses:        b.StreamPasses.Load(),
		StreamSteps:         b.StreamSteps.Load(),
		StreamUploadedBytes: b.StreamUploadedBytes.Load(),
		StreamAvgNanos:      avg(b.StreamTotalNanos.Load(), b.StreamCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CompressCount       int64
	CompressErrors      int64
	CompressImages      int64
	CompressFailed      int64
	CompressBytes       int64
	CompressAvgNanos    int64
	StoreCount          int64
	StoreErrors         int64
	StoreBytes          int64
	LoadCount           int64
	LoadErrors          int64
	LoadBytes           int64
	StreamCount         int64
	StreamErrors        int64
	StreamPasses        int64
	StreamSteps         int64
	StreamUploadedBytes int64
	StreamAvgNanos      int64
}
