// Package metrics holds the Prometheus collectors for the loot lifecycle and the /metrics handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "loot_tracker"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	// JobRuns counts scheduler job executions by job and outcome (completed, failed, skipped).
	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total number of scheduler job runs.",
		},
		[]string{"job", "outcome"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_run_duration_seconds",
			Help:      "Duration of scheduler job runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"job"},
	)

	ItemsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "expired_total",
			Help:      "Dropped items moved to expired by the expiration sweep.",
		},
	)

	AuctionsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auctions",
			Name:      "settled_total",
			Help:      "Auctions settled by the settlement sweep.",
		},
		[]string{"result"},
	)

	// BidsTotal counts bid attempts; result is "accepted" or the rejection kind.
	BidsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auctions",
			Name:      "bids_total",
			Help:      "Bids placed, by result.",
		},
		[]string{"result"},
	)

	ApplicationsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "applications",
			Name:      "resolved_total",
			Help:      "Applications moved out of pending, by resulting status.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		JobRuns,
		JobDuration,
		ItemsExpired,
		AuctionsSettled,
		BidsTotal,
		ApplicationsResolved,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
