package resilience

import "github.com/prometheus/client_golang/prometheus"

// Breaker collectors share the billing namespace with the domain metrics.
// The target label carries the guarded upstream, "orders" or "catalog".
var (
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "billing",
			Name:      "breaker_state",
			Help:      "Current breaker state per upstream: 0=closed,1=open,2=half-open",
		},
		[]string{"target"},
	)
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "breaker_transition_total",
			Help:      "Count of breaker state transitions per upstream",
		},
		[]string{"target", "from", "to"},
	)
	BreakerOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "breaker_open_total",
			Help:      "Number of times an upstream breaker transitioned into open state",
		},
		[]string{"target"},
	)
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
