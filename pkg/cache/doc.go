// Package cache provides an HTTP response cache that sits in front of an
// application handler.
//
// The middleware implements a small, explicit caching policy:
//
// - Only GET and HEAD requests are cached, and never requests carrying Authorization
// - Only 200, 301 and 404 responses are stored, unless they say Cache-Control: no-store
// - Entries are keyed by method, raw path-and-query and (optionally) Accept-Encoding
// - Entries are fresh for TTL, then served stale for StaleWhileRevalidate
// - The in-memory store is bounded by bytes and evicts least recently used entries
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	// Create store and middleware
//	policy := cache.DefaultPolicy()
//	store := cache.NewMemoryLRU(policy.MemoryCapacityBytes)
//	mw := cache.New(policy, store)
//
//	// Wrap the application
//	http.ListenAndServe(":8080", mw.Handler(app))
//
// # Before / After
//
// Handler is a thin adapter over the two halves of the protocol, which can be
// driven directly by servers that are not built on net/http handlers:
//
//	out := response.NewRecorder(nil)
//	if mw.Before(req, out) {
//		// out now holds the cached response, with Age and X-Cache: HIT
//		return out.Send(w)
//	}
//
//	rec := response.NewRecorder(w)
//	app.ServeHTTP(rec, req)
//	rec.Finish()
//	mw.After(req, rec)
//
// After accepts any io.WriterTo that writes an HTTP/1.x response. The bytes
// are parsed back into a Snapshot. A response that cannot be parsed is stored
// as a best-effort "HTTP/1.1 200 OK" entry when its live status is cacheable.
//
// # Invalidation
//
// Applications invalidate after a write:
//
//	// POST /notes changed the collection
//	mw.PurgePrefix(ctx, "/notes")
//
// The prefix is matched literally against the stored path and query, so
// "/notes" also removes "/notes/42" and "/notes?page=2".
//
// # Stores
//
// MemoryLRU is the default store. RedisStore keeps entries in Redis, shared
// between processes; its byte budget is whatever maxmemory allows.
//
// # Metrics
//
// The middleware exports Prometheus metrics:
//
//   - httpcache_hits_total{freshness} - Cache hits, "fresh" or "stale"
//   - httpcache_misses_total{reason} - Cache misses: "absent", "expired", "error"
//   - httpcache_stores_total - Responses written to the store
//   - httpcache_skips_total{reason} - Requests or responses not cached
//   - httpcache_evictions_total - LRU evictions
//   - httpcache_size_bytes{layer="memory"} - Bytes held by MemoryLRU
//   - httpcache_errors_total{operation} - Store operation errors
package cache
