package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics records a process resource snapshot at the end of a run
type RuntimeMetrics struct {
	heapAlloc  metric.Int64Gauge
	totalAlloc metric.Int64Gauge
	gcCount    metric.Int64Gauge
	goroutines metric.Int64Gauge
	runTime    metric.Float64Gauge
}

// RuntimeStats is the snapshot reported in the run summary
type RuntimeStats struct {
	HeapAllocBytes  uint64        `json:"heap_alloc_bytes"`
	TotalAllocBytes uint64        `json:"total_alloc_bytes"`
	GCCount         uint32        `json:"gc_count"`
	Goroutines      int           `json:"goroutines"`
	Elapsed         time.Duration `json:"elapsed_ns"`
	Timestamp       time.Time     `json:"timestamp"`
}

// NewRuntimeMetrics creates the runtime gauges on meter
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	heapAlloc, err := meter.Int64Gauge(
		"wellcast_heap_alloc",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	totalAlloc, err := meter.Int64Gauge(
		"wellcast_total_alloc",
		metric.WithDescription("Cumulative bytes allocated during the run"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcCount, err := meter.Int64Gauge(
		"wellcast_gc_cycles",
		metric.WithDescription("Completed GC cycles"),
	)
	if err != nil {
		return nil, err
	}

	goroutines, err := meter.Int64Gauge(
		"wellcast_goroutines",
		metric.WithDescription("Number of goroutines"),
	)
	if err != nil {
		return nil, err
	}

	runTime, err := meter.Float64Gauge(
		"wellcast_run_duration",
		metric.WithDescription("Wall time of the pipeline run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &RuntimeMetrics{
		heapAlloc:  heapAlloc,
		totalAlloc: totalAlloc,
		gcCount:    gcCount,
		goroutines: goroutines,
		runTime:    runTime,
	}, nil
}

// Collect reads runtime statistics and records them. A nil receiver only
// reads the snapshot.
func (rm *RuntimeMetrics) Collect(ctx context.Context, startTime time.Time) RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := RuntimeStats{
		HeapAllocBytes:  memStats.HeapAlloc,
		TotalAllocBytes: memStats.TotalAlloc,
		GCCount:         memStats.NumGC,
		Goroutines:      runtime.NumGoroutine(),
		Elapsed:         time.Since(startTime),
		Timestamp:       time.Now().UTC(),
	}

	if rm == nil {
		return stats
	}

	rm.heapAlloc.Record(ctx, int64(stats.HeapAllocBytes))
	rm.totalAlloc.Record(ctx, int64(stats.TotalAllocBytes))
	rm.gcCount.Record(ctx, int64(stats.GCCount))
	rm.goroutines.Record(ctx, int64(stats.Goroutines))
	rm.runTime.Record(ctx, stats.Elapsed.Seconds())

	return stats
}
