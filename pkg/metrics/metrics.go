package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "recital", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "recital", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	SubscriptionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "recital", Name: "subscriptions_active", Help: "Open live queries by collection."},
		[]string{"collection"},
	)
	SubscriptionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "recital", Name: "subscription_errors_total", Help: "Live queries that ended with a backend error."},
		[]string{"collection"},
	)
	SnapshotsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "recital", Name: "snapshots_delivered_total", Help: "Snapshots handed to consumers."},
		[]string{"collection"},
	)
	SnapshotsDiscarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "recital", Name: "snapshots_discarded_total", Help: "In-flight snapshots dropped because their subscription was cancelled."},
		[]string{"collection"},
	)
	Writes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "recital", Name: "writes_total", Help: "Create calls by collection and result."},
		[]string{"collection", "result"},
	)
	SeedRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "recital", Name: "seed_runs_total", Help: "Seed provisioner runs by outcome."},
		[]string{"outcome"},
	)
	BootstrapResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "recital", Name: "bootstrap_resolutions_total", Help: "Identity bootstrap results by method."},
		[]string{"method"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(SubscriptionsActive)
	reg.MustRegister(SubscriptionErrors)
	reg.MustRegister(SnapshotsDelivered)
	reg.MustRegister(SnapshotsDiscarded)
	reg.MustRegister(Writes)
	reg.MustRegister(SeedRuns)
	reg.MustRegister(BootstrapResolutions)
}
