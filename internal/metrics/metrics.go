package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routescope_quote_requests_total",
			Help: "Total number of quote requests by outcome",
		},
		[]string{"status"},
	)

	QuoteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "routescope_quote_duration_seconds",
		Help:    "Full quote pipeline duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	PoolCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "routescope_pool_cache_hits_total",
		Help: "Pool keys answered from the discovery cache",
	})

	PoolCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "routescope_pool_cache_misses_total",
		Help: "Pool keys that required a factory lookup",
	})

	CandidatesQuoted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "routescope_candidates_quoted_total",
		Help: "Route candidates sent to the quoter",
	})

	StaleQuotesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "routescope_stale_quotes_discarded_total",
		Help: "Quote results discarded because a newer query superseded them",
	})

	RPCErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "routescope_rpc_errors_total",
		Help: "Transport-level RPC failures",
	})
)
