package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCollectorCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ConnectionsAccepted.Inc()
	c.RequestsTotal.WithLabelValues("200").Inc()
	c.RequestsTotal.WithLabelValues("200").Inc()
	c.ConnectionsClosed.WithLabelValues("complete").Inc()
	c.ArenaBlocksAllocated.Add(3)
	c.ActiveConnections.Set(2)

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	found := map[string]float64{}
	for _, mf := range metricFamilies {
		for _, m := range mf.GetMetric() {
			found[mf.GetName()] += metricValue(m)
		}
	}

	if found["staticd_connections_accepted_total"] != 1 {
		t.Errorf("connections_accepted_total = %v, want 1", found["staticd_connections_accepted_total"])
	}
	if found["staticd_requests_total"] != 2 {
		t.Errorf("requests_total = %v, want 2", found["staticd_requests_total"])
	}
	if found["staticd_arena_blocks_allocated_total"] != 3 {
		t.Errorf("arena_blocks_allocated_total = %v, want 3", found["staticd_arena_blocks_allocated_total"])
	}
	if found["staticd_active_connections"] != 2 {
		t.Errorf("active_connections = %v, want 2", found["staticd_active_connections"])
	}
}

func metricValue(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	default:
		return 0
	}
}
