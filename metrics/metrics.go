//go:build prometheus

// Package metrics exports an App's Stats as Prometheus collectors,
// build-tag gated exactly like the teacher's own optional Prometheus
// instrumentation (shockwave/pkg/shockwave/buffer_pool_prometheus.go),
// so a binary that never imports this package pays no prometheus
// dependency cost.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aurorahttp/aurora"
)

var (
	totalConnections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aurora", Name: "connections_total",
		Help: "Total connections accepted.",
	})
	totalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aurora", Name: "requests_total",
		Help: "Total requests dispatched.",
	})
	rejectedOverload = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aurora", Name: "rejected_overload_total",
		Help: "Connections rejected while the server was in the Overloaded state.",
	})
	rejectedInFlight = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aurora", Name: "rejected_in_flight_total",
		Help: "Requests rejected by the in-flight request cap.",
	})
	rejectedHeadersTooLarge = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aurora", Name: "rejected_headers_too_large_total",
		Help: "Requests rejected for exceeding the header size limit.",
	})
	rejectedDuringShutdown = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aurora", Name: "rejected_during_shutdown_total",
		Help: "Connections rejected because the server was shutting down.",
	})
	rejectedTimeout = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aurora", Name: "rejected_timeout_total",
		Help: "Connections closed for exceeding a read/write timeout.",
	})
	overloadTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aurora", Name: "overload_state_transitions_total",
		Help: "Number of Normal<->Overloaded backpressure transitions.",
	})
)

// Collect snapshots s's atomic counters into the registered Prometheus
// collectors. Call periodically (e.g. from a ticker) or once per
// scrape, since Aurora's Stats are plain atomics, not collectors
// themselves.
func Collect(s *aurora.Stats) {
	totalConnections.Add(delta(&lastConnections, s.TotalConnections.Load()))
	totalRequests.Add(delta(&lastRequests, s.TotalRequests.Load()))
	rejectedOverload.Add(delta(&lastRejectedOverload, s.RejectedOverload.Load()))
	rejectedInFlight.Add(delta(&lastRejectedInFlight, s.RejectedInFlight.Load()))
	rejectedHeadersTooLarge.Add(delta(&lastRejectedHeaders, s.RejectedHeadersTooLarge.Load()))
	rejectedDuringShutdown.Add(delta(&lastRejectedShutdown, s.RejectedDuringShutdown.Load()))
	rejectedTimeout.Add(delta(&lastRejectedTimeout, s.RejectedTimeout.Load()))
	overloadTransitions.Add(delta(&lastTransitions, s.OverloadStateTransitions.Load()))
}

// last* track the previous snapshot so Collect can report the delta to
// Prometheus counters, which only ever increase.
var (
	lastConnections      int64
	lastRequests         int64
	lastRejectedOverload int64
	lastRejectedInFlight int64
	lastRejectedHeaders  int64
	lastRejectedShutdown int64
	lastRejectedTimeout  int64
	lastTransitions      int64
)

func delta(last *int64, current int64) float64 {
	d := current - *last
	*last = current
	if d < 0 {
		return 0
	}
	return float64(d)
}
