package cache

import (
	"time"
)

// Header is a single response header field.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Freshness classifies a cached entry at a point in time.
type Freshness int

const (
	// Fresh entries are served without caveat.
	Fresh Freshness = iota

	// Stale entries are past HardExpire but still inside the stale-while-revalidate window.
	// They are served with a Warning header.
	Stale

	// Expired entries are past SoftExpire and must not be served.
	Expired
)

// String returns the metric label for the freshness class.
func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "expired"
	}
}

// CachedEntry represents a stored response snapshot.
type CachedEntry struct {
	// StatusLine is the full status line without CRLF (e.g., "HTTP/1.1 200 OK")
	StatusLine string `json:"status_line"`

	// Headers in wire order; duplicates are allowed
	Headers []Header `json:"headers"`

	// Body is the response body
	Body []byte `json:"body"`

	// HardExpire is when the entry stops being fresh
	HardExpire time.Time `json:"hard_expire"`

	// SoftExpire is when the stale grace window ends (always >= HardExpire)
	SoftExpire time.Time `json:"soft_expire"`
}

// Bytes returns the size used for byte-budget accounting:
// the status line, every header name and value, and the body.
func (e *CachedEntry) Bytes() int64 {
	n := len(e.StatusLine) + len(e.Body)
	for _, h := range e.Headers {
		n += len(h.Name) + len(h.Value)
	}
	return int64(n)
}

// Clone returns a deep copy that shares no memory with e.
func (e *CachedEntry) Clone() CachedEntry {
	c := *e
	if e.Headers != nil {
		c.Headers = make([]Header, len(e.Headers))
		copy(c.Headers, e.Headers)
	}
	if e.Body != nil {
		c.Body = make([]byte, len(e.Body))
		copy(c.Body, e.Body)
	}
	return c
}

// Freshness classifies the entry at now.
func (e *CachedEntry) Freshness(now time.Time) Freshness {
	switch {
	case now.Before(e.HardExpire):
		return Fresh
	case now.Before(e.SoftExpire):
		return Stale
	default:
		return Expired
	}
}

// TTL returns the time until the entry stops being servable.
// Returns 0 if already expired.
func (e *CachedEntry) TTL(now time.Time) time.Duration {
	ttl := e.SoftExpire.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
