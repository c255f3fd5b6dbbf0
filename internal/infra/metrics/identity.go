package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		identityResolutionsTotal,
		identityUsernameFallbacks,
	)
}

var (
	// result: existing|created|invalid_token|timeout|unavailable|error
	identityResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_resolutions_total",
			Help: "Identity resolutions by outcome.",
		},
		[]string{"result"},
	)

	identityUsernameFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "identity_username_fallbacks_total",
			Help: "Resolutions that linked an account through the username fallback.",
		},
	)
)

func IncIdentityResolution(result string) {
	identityResolutionsTotal.WithLabelValues(norm(result)).Inc()
}

func IncUsernameFallback() { identityUsernameFallbacks.Inc() }
