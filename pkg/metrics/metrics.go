// Package metrics provides the Prometheus registry and exposition for the cache server.
// All metrics are defined in their respective packages (cache, notes)
// to maintain modularity and avoid circular dependencies.
//
// This package provides the /metrics handler and the reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the server.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer matching Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves every registered metric in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - httpcache_hits_total{freshness} (Counter): Responses served from cache ("fresh", "stale")
//   - httpcache_misses_total{reason} (Counter): Cacheable requests not served ("absent", "expired", "error")
//   - httpcache_stores_total (Counter): Responses written to the store
//   - httpcache_skips_total{reason} (Counter): Bypassed requests and unstored responses
//     ("request", "response", "too_large")
//   - httpcache_evictions_total (Counter): LRU evictions from the memory store
//   - httpcache_size_bytes{layer="memory"} (Gauge): Bytes held by the memory store
//   - httpcache_errors_total{operation} (Counter): Store errors ("get", "set", "delete", "purge")
//
// Application Metrics (internal/notes):
//   - notes_mutations_total{operation} (Counter): Note writes, each followed by a cache purge
//
// Runtime Metrics:
//   - go_* and process_* collectors from the default registry
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(httpcache_hits_total[5m])) /
//   (sum(rate(httpcache_hits_total[5m])) + sum(rate(httpcache_misses_total[5m])))
//
//   # Share of hits served stale
//   rate(httpcache_hits_total{freshness="stale"}[5m]) / rate(httpcache_hits_total[5m])
//
//   # Memory store fill level
//   httpcache_size_bytes{layer="memory"}
//
//   # Eviction pressure
//   rate(httpcache_evictions_total[5m])
//
//   # Store error rate
//   rate(httpcache_errors_total[5m])
