package obs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewMetricsWithNilRegistererIsUsable(t *testing.T) {
	m := NewMetrics(nil)
	m.Records.Inc()
	m.DispatchAttempts.Inc()
	m.RecordSetsSealed.Inc()
	m.RecordSetsFailed.Inc()
	m.ObserveDispatchLatency(10 * time.Millisecond)
	m.BufferFlushReason.WithLabelValues("size").Inc()
}

func TestNewMetricsRegistersUnderGivenRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Records.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var found bool
	for _, f := range families {
		if f.GetName() == "writer_records_total" {
			found = true
			if got := f.GetMetric()[0].GetCounter().GetValue(); got != 1 {
				t.Fatalf("expected counter value 1, got %v", got)
			}
		}
	}
	if !found {
		t.Fatalf("expected writer_records_total to be registered")
	}
}

func TestObserveDispatchLatencyNilReceiverIsNoOp(t *testing.T) {
	var m *Metrics
	m.ObserveDispatchLatency(time.Second) // must not panic
}
