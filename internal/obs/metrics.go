// Package obs wires the writer's ambient observability surface: Prometheus
// counters/histograms for dispatch and buffer activity, plus an OpenTelemetry
// tracer handle for per-record-set spans. Both are optional — a nil
// Registerer or TracerProvider yields working no-ops.
package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every counter/histogram the dispatch and buffer layers
// observe. All fields are always non-nil; when constructed with a nil
// Registerer they are registered against a private, never-scraped registry
// so call sites never need nil checks.
type Metrics struct {
	Records           prometheus.Counter
	DispatchAttempts  prometheus.Counter
	RecordSetsSealed  prometheus.Counter
	RecordSetsFailed  prometheus.Counter
	DispatchLatency   prometheus.Histogram
	BufferFlushReason *prometheus.CounterVec
}

// NewMetrics registers mswriter's metrics against reg. Pass nil to get a
// fully functional but unexported registry, useful in tests and for callers
// that don't want mswriter's metrics on their default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		Records: f.NewCounter(prometheus.CounterOpts{
			Name: "writer_records_total",
			Help: "Total number of records admitted via Write.",
		}),
		DispatchAttempts: f.NewCounter(prometheus.CounterOpts{
			Name: "writer_dispatch_attempts_total",
			Help: "Total number of per-stream write attempts issued, including speculative retries.",
		}),
		RecordSetsSealed: f.NewCounter(prometheus.CounterOpts{
			Name: "writer_recordsets_sealed_total",
			Help: "Total number of record sets that completed successfully.",
		}),
		RecordSetsFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "writer_recordsets_failed_total",
			Help: "Total number of record sets abandoned after exhausting their deadline or stream roster.",
		}),
		DispatchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "writer_dispatch_latency_seconds",
			Help:    "End-to-end latency from seal to settlement of a record set.",
			Buckets: prometheus.DefBuckets,
		}),
		BufferFlushReason: f.NewCounterVec(prometheus.CounterOpts{
			Name: "writer_buffer_flush_reason_total",
			Help: "Buffer flushes broken down by trigger: size, flush, or close.",
		}, []string{"reason"}),
	}
}

// ObserveDispatchLatency records the seal-to-settlement latency of a record
// set once it settles (successfully or not).
func (m *Metrics) ObserveDispatchLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.DispatchLatency.Observe(d.Seconds())
}
