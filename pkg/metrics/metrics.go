// Package metrics provides Prometheus metrics for the toolbox: per-dispatch
// counters and latency, plus per-instance availability and lease gauges.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchTotal counts dispatches by backend type, operation, and outcome.
	// Outcome is "success" or the failure's error type.
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dbtoolbox",
			Name:      "dispatch_total",
			Help:      "Total dispatched calls by type, operation, and outcome",
		},
		[]string{"db_type", "operation", "outcome"},
	)

	// DispatchDuration tracks end-to-end dispatch latency including pool
	// acquire and backend execution.
	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dbtoolbox",
			Name:      "dispatch_duration_seconds",
			Help:      "Dispatch latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"db_type", "operation"},
	)

	// InstanceUp reports per-instance availability: 1 routable, 0 degraded.
	InstanceUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dbtoolbox",
			Name:      "instance_up",
			Help:      "Whether a configured database instance is routable",
		},
		[]string{"db_id", "db_type"},
	)

	// LeasesInUse tracks leases currently held per instance.
	LeasesInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dbtoolbox",
			Name:      "leases_in_use",
			Help:      "Connection leases currently held per instance",
		},
		[]string{"db_id"},
	)
)

// ObserveDispatch records one completed dispatch.
func ObserveDispatch(dbType, operation, outcome string, elapsed time.Duration) {
	DispatchTotal.WithLabelValues(dbType, operation, outcome).Inc()
	DispatchDuration.WithLabelValues(dbType, operation).Observe(elapsed.Seconds())
}
