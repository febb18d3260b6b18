package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics snapshots Go runtime resource usage into gauges so the
// metrics textfile shows what a run cost.
type RuntimeMetrics struct {
	goroutines    metric.Int64Gauge
	heapInUse     metric.Int64Gauge
	totalAlloc    metric.Int64Gauge
	gcCount       metric.Int64Gauge
	processUptime metric.Float64Gauge
}

// RuntimeStats is one snapshot of runtime resource usage
type RuntimeStats struct {
	Goroutines    int64         `json:"goroutines"`
	HeapInUse     int64         `json:"heap_in_use_bytes"`
	TotalAlloc    int64         `json:"total_alloc_bytes"`
	GCCount       uint32        `json:"gc_count"`
	ProcessUptime time.Duration `json:"process_uptime_ns"`
}

// NewRuntimeMetrics registers the runtime gauges on meter
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	var rm RuntimeMetrics
	var err error

	if rm.goroutines, err = meter.Int64Gauge("finpulse_runtime_goroutines",
		metric.WithDescription("Number of live goroutines")); err != nil {
		return nil, err
	}
	if rm.heapInUse, err = meter.Int64Gauge("finpulse_runtime_heap_in_use",
		metric.WithDescription("Heap bytes in use"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if rm.totalAlloc, err = meter.Int64Gauge("finpulse_runtime_total_alloc",
		metric.WithDescription("Cumulative bytes allocated"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if rm.gcCount, err = meter.Int64Gauge("finpulse_runtime_gc_cycles",
		metric.WithDescription("Completed GC cycles")); err != nil {
		return nil, err
	}
	if rm.processUptime, err = meter.Float64Gauge("finpulse_runtime_uptime",
		metric.WithDescription("Time since the process started"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &rm, nil
}

// Collect reads runtime statistics and records them
func (rm *RuntimeMetrics) Collect(ctx context.Context, startTime time.Time) RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := RuntimeStats{
		Goroutines:    int64(runtime.NumGoroutine()),
		HeapInUse:     int64(memStats.HeapInuse),
		TotalAlloc:    int64(memStats.TotalAlloc),
		GCCount:       memStats.NumGC,
		ProcessUptime: time.Since(startTime),
	}

	rm.goroutines.Record(ctx, stats.Goroutines)
	rm.heapInUse.Record(ctx, stats.HeapInUse)
	rm.totalAlloc.Record(ctx, stats.TotalAlloc)
	rm.gcCount.Record(ctx, int64(stats.GCCount))
	rm.processUptime.Record(ctx, stats.ProcessUptime.Seconds())
	return stats
}
