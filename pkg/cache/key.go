package cache

import (
	"net/http"
	"strings"
)

// CacheKey represents the identity of a cached response.
// Two requests share an entry only if all three fields match exactly.
type CacheKey struct {
	// Method is the upper-cased request method (e.g., "GET")
	Method string

	// PathAndQuery is the request target as received, e.g. "/notes?page=2"
	PathAndQuery string

	// AcceptEncoding is the raw Accept-Encoding request header.
	// Empty unless the policy varies on it.
	AcceptEncoding string
}

// String renders the key for logs and backend key names.
// Format: METHOD path-and-query [accept-encoding]
//
// Example:
//
//	GET /notes?page=2 [gzip, br]
func (k CacheKey) String() string {
	var b strings.Builder
	b.Grow(len(k.Method) + len(k.PathAndQuery) + len(k.AcceptEncoding) + 4)
	b.WriteString(k.Method)
	b.WriteByte(' ')
	b.WriteString(k.PathAndQuery)
	b.WriteString(" [")
	b.WriteString(k.AcceptEncoding)
	b.WriteByte(']')
	return b.String()
}

// MakeKey derives the cache key for a request.
// The request target is taken verbatim; no decoding or normalization is applied.
func MakeKey(r *http.Request, p Policy) CacheKey {
	key := CacheKey{
		Method:       strings.ToUpper(r.Method),
		PathAndQuery: requestTarget(r),
	}
	if p.VaryAcceptEncoding {
		key.AcceptEncoding = r.Header.Get("Accept-Encoding")
	}
	return key
}

// requestTarget prefers the unmodified request-target the server read off the wire.
// Client-side requests have no RequestURI, so fall back to the URL.
func requestTarget(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}
	if r.URL == nil {
		return ""
	}
	return r.URL.RequestURI()
}
