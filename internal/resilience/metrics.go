package resilience

import "github.com/prometheus/client_golang/prometheus"

// Breaker metrics are labelled by target, e.g. "payment_gateway".
var (
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "outbound_breaker_state",
		Help: "Circuit breaker position per target (0 closed, 1 open, 2 half-open).",
	}, []string{"target"})
	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbound_breaker_transitions_total",
		Help: "Circuit breaker state changes.",
	}, []string{"target", "from", "to"})
	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbound_breaker_opened_total",
		Help: "Times a circuit breaker tripped open.",
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
