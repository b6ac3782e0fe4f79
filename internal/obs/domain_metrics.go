package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ReconstructionRuleTotal counts which reconstruction rule resolved each
	// inferred field when a persisted order is opened for editing.
	ReconstructionRuleTotal *prometheus.CounterVec
	// ReconstructionFallbackTotal counts lines whose rate or selling price
	// came from a terminal fallback rule, i.e. degraded fidelity of the
	// displayed historical figures.
	ReconstructionFallbackTotal prometheus.Counter
	// OrdersLoadedTotal counts orders opened for editing by outcome.
	OrdersLoadedTotal *prometheus.CounterVec
	// SubmitEnqueuedTotal counts billing submissions handed to the queue.
	SubmitEnqueuedTotal *prometheus.CounterVec
	// SubmitDeliveryTotal counts worker-side delivery outcomes.
	SubmitDeliveryTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers billing-domain
// Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ReconstructionRuleTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconstruction_rule_total",
			Help:      "Count of reconstruction rules applied per inferred field.",
		}, []string{"field", "rule"})
		ReconstructionFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconstruction_fallback_total",
			Help:      "Lines reconstructed through a terminal fallback rule.",
		})
		OrdersLoadedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_loaded_total",
			Help:      "Orders opened for editing by outcome.",
		}, []string{"result"})
		SubmitEnqueuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submit_enqueued_total",
			Help:      "Billing submissions enqueued for delivery by outcome.",
		}, []string{"result"})
		SubmitDeliveryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submit_delivery_total",
			Help:      "Billing submission deliveries to the order service by outcome.",
		}, []string{"result"})

		for _, c := range []prometheus.Collector{
			ReconstructionRuleTotal,
			ReconstructionFallbackTotal,
			OrdersLoadedTotal,
			SubmitEnqueuedTotal,
			SubmitDeliveryTotal,
		} {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	})
}
