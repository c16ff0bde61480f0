package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		initiationsTotal,
		gatewayRequestDuration,
		sweptTransactionsTotal,
	)
}

var (
	initiationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_initiations_total",
			Help: "Payment initiation attempts by provider and outcome (accepted/sandbox/rejected/invalid/error).",
		},
		[]string{"provider", "outcome"},
	)

	gatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_request_duration_seconds",
			Help:    "Wall time of one full gateway exchange (token + collection request).",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	sweptTransactionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_swept_transactions_total",
			Help: "Stale pending transactions expired by the sweeper.",
		},
	)
)

func IncInitiation(provider, outcome string) {
	initiationsTotal.WithLabelValues(norm(provider), norm(outcome)).Inc()
}

func ObserveGatewayRequest(provider string, d time.Duration) {
	gatewayRequestDuration.WithLabelValues(norm(provider)).Observe(d.Seconds())
}

func IncSwept() {
	sweptTransactionsTotal.Inc()
}
