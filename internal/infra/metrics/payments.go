package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentApprovalsTotal,
		paymentCompletionsTotal,
		paymentCompletionReplays,
		paymentNetworkDuration,
		paymentsRevenuePi,
	)
}

var (
	// result: ok|rejected|timeout|unavailable
	paymentApprovalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_approvals_total",
			Help: "Payment approval callbacks by result.",
		},
		[]string{"result"},
	)

	// result: ok|rejected|malformed_metadata|ledger_failed|timeout|unavailable
	paymentCompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_completions_total",
			Help: "Payment completion callbacks by result.",
		},
		[]string{"result"},
	)

	paymentCompletionReplays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_completion_replays_total",
			Help: "Completions that hit the idempotency gate (already applied).",
		},
	)

	// op: verify|approve|complete
	paymentNetworkDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_network_call_duration_seconds",
			Help:    "Latency of upstream payment network calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"op", "result"},
	)

	paymentsRevenuePi = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_pi_total",
			Help: "Total Pi amount of completed payments, labeled by plan.",
		},
		[]string{"plan"},
	)
)

func IncPaymentApproval(result string) {
	paymentApprovalsTotal.WithLabelValues(norm(result)).Inc()
}

func IncPaymentCompletion(result string) {
	paymentCompletionsTotal.WithLabelValues(norm(result)).Inc()
}

func IncCompletionReplay() { paymentCompletionReplays.Inc() }

func ObserveNetworkCall(op, result string, seconds float64) {
	paymentNetworkDuration.WithLabelValues(norm(op), norm(result)).Observe(seconds)
}

func AddRevenue(plan string, amount float64) {
	paymentsRevenuePi.WithLabelValues(norm(plan)).Add(amount)
}
