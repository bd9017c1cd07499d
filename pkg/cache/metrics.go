package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks responses served from cache by freshness ("fresh", "stale")
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_hits_total",
			Help: "Total number of responses served from cache",
		},
		[]string{"freshness"},
	)

	// CacheMisses tracks cacheable requests that fell through to the application
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"reason"}, // "absent", "expired", "error"
	)

	// CacheStores tracks entries written by the middleware
	CacheStores = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpcache_stores_total",
			Help: "Total number of responses written to cache",
		},
	)

	// CacheSkips tracks policy decisions not to use the cache
	CacheSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_skips_total",
			Help: "Total number of requests or responses the cache declined",
		},
		[]string{"reason"}, // "request", "response", "too_large"
	)

	// CacheEvictions tracks entries removed to stay within the byte budget
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpcache_evictions_total",
			Help: "Total number of entries evicted from the memory store",
		},
	)

	// CacheSize tracks used bytes by layer
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "httpcache_size_bytes",
			Help: "Current size of the response cache in bytes",
		},
		[]string{"layer"}, // "memory"
	)

	// CacheErrors tracks store operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_errors_total",
			Help: "Total number of cache store errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "purge"
	)
)
