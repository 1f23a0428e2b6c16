package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteSubmissionsTotal counts price submission outcomes.
	QuoteSubmissionsTotal *prometheus.CounterVec
	// ExchangeRateFetchTotal counts PTAX lookups by result (ok, fallback, cached).
	ExchangeRateFetchTotal *prometheus.CounterVec
	// SequenceAllocationsTotal counts issued sequence ids per entity type.
	SequenceAllocationsTotal *prometheus.CounterVec
	// SummaryCacheTotal tracks summary cache hits and misses.
	SummaryCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_submissions_total",
			Help:      "Count of supplier price submission outcomes.",
		}, []string{"result"})
		ExchangeRateFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_rate_fetch_total",
			Help:      "Count of exchange-rate lookups by result.",
		}, []string{"result"})
		SequenceAllocationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sequence_allocations_total",
			Help:      "Count of sequence ids issued per entity type.",
		}, []string{"entity"})
		SummaryCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_cache_total",
			Help:      "Summary cache hits and misses.",
		}, []string{"result"})
		mustRegister(reg, QuoteSubmissionsTotal, ExchangeRateFetchTotal, SequenceAllocationsTotal, SummaryCacheTotal)
	})
}
