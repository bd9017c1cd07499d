package cache

import (
	"net/http"
	"strings"
	"time"
)

// Policy is the immutable configuration consulted by every caching decision.
type Policy struct {
	// Cacheable request methods
	CacheGET  bool
	CacheHEAD bool

	// Cacheable response statuses
	Cache200 bool
	Cache301 bool
	Cache404 bool

	// MemoryCapacityBytes is the total byte budget of the store
	MemoryCapacityBytes int64

	// MaxObjectBytes is the largest single entry After will store
	MaxObjectBytes int64

	// TTL is how long a stored entry stays fresh
	TTL time.Duration

	// StaleWhileRevalidate is the grace window after TTL during which
	// the entry is still served, flagged as stale
	StaleWhileRevalidate time.Duration

	// VaryAcceptEncoding partitions the key space by Accept-Encoding
	VaryAcceptEncoding bool

	// RespectNoStore skips responses carrying Cache-Control: no-store
	RespectNoStore bool

	// RespectAuthorization bypasses requests with an Authorization header
	RespectAuthorization bool
}

const (
	// DefaultMemoryCapacityBytes is 64 MiB.
	DefaultMemoryCapacityBytes = 64 << 20

	// DefaultMaxObjectBytes is 1 MiB.
	DefaultMaxObjectBytes = 1 << 20

	// DefaultTTL is the freshness lifetime of a stored response.
	DefaultTTL = 300 * time.Second

	// DefaultStaleWhileRevalidate is the stale grace window.
	DefaultStaleWhileRevalidate = 60 * time.Second
)

// DefaultPolicy returns the default caching policy.
func DefaultPolicy() Policy {
	return Policy{
		CacheGET:             true,
		CacheHEAD:            true,
		Cache200:             true,
		Cache301:             true,
		Cache404:             true,
		MemoryCapacityBytes:  DefaultMemoryCapacityBytes,
		MaxObjectBytes:       DefaultMaxObjectBytes,
		TTL:                  DefaultTTL,
		StaleWhileRevalidate: DefaultStaleWhileRevalidate,
		VaryAcceptEncoding:   true,
		RespectNoStore:       true,
		RespectAuthorization: true,
	}
}

// IsCacheableRequest reports whether a request may be served from or written to the cache.
func IsCacheableRequest(r *http.Request, p Policy) bool {
	if p.RespectAuthorization && r.Header.Get("Authorization") != "" {
		return false
	}
	switch strings.ToUpper(r.Method) {
	case http.MethodGet:
		return p.CacheGET
	case http.MethodHead:
		return p.CacheHEAD
	default:
		return false
	}
}

// IsCacheableResponse reports whether a response snapshot may be stored.
func IsCacheableResponse(s Snapshot, p Policy) bool {
	if p.RespectNoStore && s.NoStore {
		return false
	}
	switch s.StatusCode {
	case http.StatusOK:
		return p.Cache200
	case http.StatusMovedPermanently:
		return p.Cache301
	case http.StatusNotFound:
		return p.Cache404
	default:
		return false
	}
}
