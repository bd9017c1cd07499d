package cache

import (
	"bytes"
	"time"
)

// Marker headers added to every response served from cache.
const (
	HeaderAge     = "Age"
	HeaderXCache  = "X-Cache"
	HeaderWarning = "Warning"

	// StaleWarning is the Warning value attached to stale-but-usable hits.
	StaleWarning = "110 - Response is Stale"
)

// ResponseBuilder is the write side of a response: the cache populates it on a hit.
type ResponseBuilder interface {
	SetStatusLine(proto string, code int, message string)
	AddHeader(name, value string)
	SetBody(body []byte)
}

// Pack converts a snapshot into a storable entry expiring relative to now.
func Pack(s Snapshot, now time.Time, p Policy) CachedEntry {
	e := CachedEntry{
		StatusLine: s.StatusLine(),
		Body:       bytes.Clone(s.Body),
		HardExpire: now.Add(p.TTL),
	}
	if len(s.Headers) > 0 {
		e.Headers = make([]Header, len(s.Headers))
		copy(e.Headers, s.Headers)
	}
	// SoftExpire never precedes HardExpire
	swr := p.StaleWhileRevalidate
	if swr < 0 {
		swr = 0
	}
	e.SoftExpire = e.HardExpire.Add(swr)
	return e
}

// ApplyEntry writes a stored entry onto out and marks it as a cache hit.
// The entry itself is never modified and its body is not shared with out.
func ApplyEntry(e *CachedEntry, out ResponseBuilder) {
	proto, code, msg, _ := splitStatusLine(e.StatusLine)
	out.SetStatusLine(proto, code, msg)
	for _, h := range e.Headers {
		out.AddHeader(h.Name, h.Value)
	}
	out.SetBody(bytes.Clone(e.Body))
	out.AddHeader(HeaderAge, "0")
	out.AddHeader(HeaderXCache, "HIT")
}
