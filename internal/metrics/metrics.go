package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheReads counts query cache reads by cache name and outcome (hit|stale|miss).
	CacheReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_cache_reads_total",
			Help: "Query cache reads by outcome",
		},
		[]string{"cache", "outcome"},
	)

	// CacheFetches counts remote fetches issued by a query cache (ok|error).
	CacheFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_cache_fetches_total",
			Help: "Remote fetches issued by the query caches",
		},
		[]string{"cache", "result"},
	)

	// CacheEvictions counts entries dropped after their retention window.
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_cache_evictions_total",
			Help: "Entries evicted after the retention window",
		},
		[]string{"cache"},
	)

	// Mutations counts admin mutations by resource and result (success|failure).
	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_mutations_total",
			Help: "Settings and blog mutations",
		},
		[]string{"resource", "action", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RealtimeClients tracks connected websocket clients per channel.
	RealtimeClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portfolio_realtime_clients",
			Help: "Connected websocket clients",
		},
		[]string{"channel"},
	)
)
