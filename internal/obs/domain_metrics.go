package obs

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// LedgerCalculationsTotal counts ledger computations by entry path.
	LedgerCalculationsTotal *prometheus.CounterVec
	// LedgerSelfHealTotal counts finalize reconciliations by outcome.
	LedgerSelfHealTotal *prometheus.CounterVec
	// LedgerSelfHealDelta records the absolute submitted/computed gap.
	LedgerSelfHealDelta prometheus.Histogram
	// PartnerResolutionTotal counts partner attributions by source.
	PartnerResolutionTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		LedgerCalculationsTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_calculations_total",
			Help:      "Count of ledger computations by path.",
		}, []string{"path"}))
		LedgerSelfHealTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_self_heal_total",
			Help:      "Count of submitted totals reconciled against the authoritative ledger.",
		}, []string{"result"}))
		LedgerSelfHealDelta = registerOrReuse(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_self_heal_delta",
			Help:      "Absolute difference between submitted and computed totals.",
			Buckets:   []float64{0.01, 0.02, 0.05, 0.1, 0.5, 1, 5, 10, 50},
		}))
		PartnerResolutionTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partner_resolution_total",
			Help:      "Count of partner context resolutions by source and activity.",
		}, []string{"source", "active"}))
	})
}

// ObserveLedgerCalculation increments the calculation counter when registered.
func ObserveLedgerCalculation(path string) {
	if LedgerCalculationsTotal != nil {
		LedgerCalculationsTotal.WithLabelValues(path).Inc()
	}
}

// ObserveSelfHeal records one reconciliation outcome.
func ObserveSelfHeal(healed bool, delta float64) {
	result := "match"
	if healed {
		result = "healed"
	}
	if LedgerSelfHealTotal != nil {
		LedgerSelfHealTotal.WithLabelValues(result).Inc()
	}
	if LedgerSelfHealDelta != nil {
		if delta < 0 {
			delta = -delta
		}
		LedgerSelfHealDelta.Observe(delta)
	}
}

// ObservePartnerResolution records which source attributed a partner.
func ObservePartnerResolution(source string, active bool) {
	if PartnerResolutionTotal != nil {
		PartnerResolutionTotal.WithLabelValues(source, strconv.FormatBool(active)).Inc()
	}
}
