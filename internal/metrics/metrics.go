// Package metrics exposes the Prometheus counters and gauges this
// server tracks: accepted connections, requests by status code, and
// arena allocation activity. Grounded on the teacher's
// pkg/shockwave/memory/arena_pool.go-adjacent buffer_pool_prometheus.go
// use of promauto for pool instrumentation — this repo does the same
// for the arena and the connection lifecycle instead of a buffer pool.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector groups every counter/gauge a worker updates over its
// lifetime. One Collector is created per process and shared
// read-only (Prometheus counters are already safe for concurrent use)
// across all worker goroutines.
type Collector struct {
	ConnectionsAccepted prometheus.Counter
	ConnectionsClosed   *prometheus.CounterVec // labeled by terminal state
	RequestsTotal       *prometheus.CounterVec // labeled by status code
	ArenaBlocksAllocated prometheus.Counter
	ActiveConnections   prometheus.Gauge
}

// NewCollector registers every metric against reg and returns the
// Collector. Passing prometheus.NewRegistry() keeps tests isolated
// from the global default registry; cmd/staticd passes
// prometheus.DefaultRegisterer in production.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		ConnectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "staticd",
			Name:      "connections_accepted_total",
			Help:      "Total TCP connections accepted across all workers.",
		}),
		ConnectionsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staticd",
			Name:      "connections_closed_total",
			Help:      "Total connections closed, labeled by terminal state.",
		}, []string{"state"}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staticd",
			Name:      "requests_total",
			Help:      "Total requests served, labeled by HTTP status code.",
		}, []string{"status"}),
		ArenaBlocksAllocated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "staticd",
			Name:      "arena_blocks_allocated_total",
			Help:      "Total arena blocks allocated across all workers.",
		}),
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "staticd",
			Name:      "active_connections",
			Help:      "Connections currently owned by a worker (any non-terminal state).",
		}),
	}
}
