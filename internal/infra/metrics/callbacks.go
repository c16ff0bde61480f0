package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(callbacksTotal)
}

var callbacksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Inbound provider callbacks by provider and outcome (accepted/unknown_format).",
	},
	[]string{"provider", "outcome"},
)

func IncCallback(provider, outcome string) {
	callbacksTotal.WithLabelValues(norm(provider), norm(outcome)).Inc()
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
