package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatMulDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "matbench_matmul_duration_seconds",
		Help: "Wall-clock time of a single timed matmul invocation",
		// Naive 2048^3 runs for minutes, NPU 256^3 in well under a millisecond.
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 12),
	}, []string{"backend", "size"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matbench_runs_total",
		Help: "Total number of timed matmul invocations",
	}, []string{"backend"})

	SetupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matbench_setup_failures_total",
		Help: "Backend sessions that failed to open or bind",
	}, []string{"backend"})

	DeviceMemoryBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matbench_device_memory_bytes",
		Help: "Accelerator memory currently held by open sessions",
	})
)

// RecordMatMul records one timed invocation of backend at a square size.
func RecordMatMul(backend string, size int, d time.Duration) {
	MatMulDuration.WithLabelValues(backend, strconv.Itoa(size)).Observe(d.Seconds())
	RunsTotal.WithLabelValues(backend).Inc()
}

func RecordSetupFailure(backend string) {
	SetupFailures.WithLabelValues(backend).Inc()
}

// AddDeviceMemory adjusts the device memory gauge by delta bytes.
func AddDeviceMemory(delta int64) {
	DeviceMemoryBytes.Add(float64(delta))
}
