package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prognoza_provider_requests_total",
			Help: "Total upstream forecast API requests",
		},
		[]string{"provider", "scope", "status"},
	)

	ProviderRequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prognoza_provider_request_latency_seconds",
			Help:    "Upstream forecast API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "scope"},
	)

	CacheOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prognoza_cache_ops_total",
			Help: "Forecast cache lookups and writes by result",
		},
		[]string{"provider", "scope", "result"},
	)

	MergedRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prognoza_merged_rows_total",
			Help: "Rows emitted by the router merge, by contributing provider",
		},
		[]string{"provider", "scope"},
	)
)
