package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrderMutationsTotal counts ledger mutations by operation and result.
	OrderMutationsTotal *prometheus.CounterVec
	// OrderVersionConflictsTotal counts optimistic-concurrency retries by operation.
	OrderVersionConflictsTotal *prometheus.CounterVec
	// LedgerInvariantViolationsTotal counts aggregate updates refused as inconsistent.
	LedgerInvariantViolationsTotal *prometheus.CounterVec
	// CouponValidationsTotal counts coupon checks by rejection reason ("ok" when valid).
	CouponValidationsTotal *prometheus.CounterVec
	// CouponRedemptionsTotal counts redemption attempts by result.
	CouponRedemptionsTotal *prometheus.CounterVec
	// PaymentEventsTotal counts capture and webhook events by source and outcome.
	PaymentEventsTotal *prometheus.CounterVec
	// GatewayRequestsTotal counts outbound payment gateway calls by result.
	GatewayRequestsTotal *prometheus.CounterVec
	// InvoicesIssuedTotal counts invoice issuance by result.
	InvoicesIssuedTotal *prometheus.CounterVec
	// GatewayLatency records payment gateway call latency in milliseconds.
	GatewayLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrderMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_mutations_total",
			Help:      "Count of order aggregate mutations by operation and result.",
		}, []string{"op", "result"})
		OrderVersionConflictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_version_conflicts_total",
			Help:      "Count of optimistic concurrency conflicts on orders.",
		}, []string{"op"})
		LedgerInvariantViolationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_invariant_violations_total",
			Help:      "Count of aggregate updates rejected because they would break a monetary invariant.",
		}, []string{"op"})
		CouponValidationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_validations_total",
			Help:      "Count of coupon validations by result.",
		}, []string{"result"})
		CouponRedemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_redemptions_total",
			Help:      "Count of coupon redemption attempts by result.",
		}, []string{"result"})
		PaymentEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_events_total",
			Help:      "Count of payment capture and webhook events by outcome.",
		}, []string{"source", "outcome"})
		GatewayRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_gateway_requests_total",
			Help:      "Count of outbound payment gateway requests by result.",
		}, []string{"op", "result"})
		InvoicesIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_issued_total",
			Help:      "Count of invoice issuance attempts by result.",
		}, []string{"result"})
		GatewayLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_gateway_duration_ms",
			Help:      "Latency of payment gateway calls in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"op"})

		counters := []**prometheus.CounterVec{
			&OrderMutationsTotal,
			&OrderVersionConflictsTotal,
			&LedgerInvariantViolationsTotal,
			&CouponValidationsTotal,
			&CouponRedemptionsTotal,
			&PaymentEventsTotal,
			&GatewayRequestsTotal,
			&InvoicesIssuedTotal,
		}
		for _, target := range counters {
			target := target
			mustRegisterCollector(reg, *target, func(existing prometheus.Collector) {
				if v, ok := existing.(*prometheus.CounterVec); ok {
					*target = v
				}
			})
		}
		mustRegisterCollector(reg, GatewayLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				GatewayLatency = v
			}
		})
	})
}

// Count increments vec for labels when the collector has been registered.
func Count(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
