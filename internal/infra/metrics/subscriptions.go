package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsDowngradedTotal,
		subscriptionCacheHits,
	)
}

var (
	// source: lazy_read|sweep
	subscriptionsDowngradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_downgraded_total",
			Help: "Expired subscriptions downgraded to free, by trigger.",
		},
		[]string{"source"},
	)

	// outcome: hit|miss
	subscriptionCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_cache_requests_total",
			Help: "Subscription read-through cache requests by outcome.",
		},
		[]string{"outcome"},
	)
)

func IncDowngraded(source string) {
	subscriptionsDowngradedTotal.WithLabelValues(norm(source)).Inc()
}

func IncCache(outcome string) {
	subscriptionCacheHits.WithLabelValues(norm(outcome)).Inc()
}
