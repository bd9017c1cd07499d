package cache

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/wk755/httpserver/pkg/response"
)

// Middleware serves cacheable requests from a Store and fills it from
// application responses.
//
// It has no mutable state of its own; concurrency safety comes from the Store.
type Middleware struct {
	policy Policy
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithLogger sets the logger used for cache decisions and store errors.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Middleware) {
		m.logger = logger
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Middleware) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates a caching middleware over store.
func New(policy Policy, store Store, opts ...Option) *Middleware {
	if store == nil {
		panic("cache store cannot be nil")
	}
	m := &Middleware{
		policy: policy,
		store:  store,
		logger: log.With().Str("component", "httpcache").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Policy returns the policy the middleware was built with.
func (m *Middleware) Policy() Policy {
	return m.policy
}

// Before looks up r in the store. On a fresh or stale hit it populates out
// and returns true; the caller must then skip the application handler.
// Expired entries are left in place for the next After to overwrite.
func (m *Middleware) Before(r *http.Request, out ResponseBuilder) bool {
	if !IsCacheableRequest(r, m.policy) {
		m.skip(r, "request")
		return false
	}

	logger := m.loggerFor(r)
	key := MakeKey(r, m.policy)
	entry, err := m.store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			CacheMisses.WithLabelValues("absent").Inc()
			logger.Debug().Stringer("key", key).Msg("Cache miss")
			return false
		}
		CacheMisses.WithLabelValues("error").Inc()
		logger.Warn().Err(err).Stringer("key", key).Msg("Cache get error")
		return false
	}

	freshness := entry.Freshness(m.now())
	if freshness == Expired {
		CacheMisses.WithLabelValues("expired").Inc()
		logger.Debug().
			Stringer("key", key).
			Time("soft_expire", entry.SoftExpire).
			Msg("Cache entry expired")
		return false
	}

	ApplyEntry(entry, out)
	if freshness == Stale {
		out.AddHeader(HeaderWarning, StaleWarning)
	}

	CacheHits.WithLabelValues(freshness.String()).Inc()
	logger.Debug().
		Stringer("key", key).
		Str("freshness", freshness.String()).
		Msg("Cache hit")
	return true
}

// statusReporter is implemented by responses that know their status without
// being serialized, such as response.Recorder.
type statusReporter interface {
	StatusCode() int
}

// After stores the application's response for r when both are cacheable.
// resp is serialized once; the response itself is not modified.
//
// Eligibility uses the live status when resp reports one. A serialization
// that cannot be parsed is stored as the fallback "HTTP/1.1 200 OK" entry.
func (m *Middleware) After(r *http.Request, resp io.WriterTo) {
	if !IsCacheableRequest(r, m.policy) {
		return
	}

	snap := TakeSnapshot(resp)
	eligible := snap
	if sr, ok := resp.(statusReporter); ok && sr.StatusCode() != 0 {
		eligible.StatusCode = sr.StatusCode()
	}
	if !IsCacheableResponse(eligible, m.policy) {
		m.skip(r, "response")
		return
	}

	logger := m.loggerFor(r)
	key := MakeKey(r, m.policy)
	if !snap.OK {
		logger.Debug().
			Stringer("key", key).
			Int("status_code", eligible.StatusCode).
			Msg("Response not parsable, caching fallback entry")
	}
	entry := Pack(snap, m.now(), m.policy)
	if size := entry.Bytes(); size > m.policy.MaxObjectBytes {
		CacheSkips.WithLabelValues("too_large").Inc()
		logger.Trace().
			Stringer("key", key).
			Int64("bytes", size).
			Int64("max_object_bytes", m.policy.MaxObjectBytes).
			Msg("Response too large to cache")
		return
	}

	if err := m.store.Set(r.Context(), key, entry); err != nil {
		logger.Warn().Err(err).Stringer("key", key).Msg("Cache set error")
		return
	}

	CacheStores.Inc()
	logger.Debug().
		Stringer("key", key).
		Int("status_code", snap.StatusCode).
		Int64("bytes", entry.Bytes()).
		Dur("ttl", m.policy.TTL).
		Msg("Response cached")
}

// PurgePrefix removes every cached response whose path and query start with prefix.
func (m *Middleware) PurgePrefix(ctx context.Context, prefix string) error {
	if err := m.store.PurgePrefix(ctx, prefix); err != nil {
		m.logger.Warn().Err(err).Str("prefix", prefix).Msg("Cache purge error")
		return err
	}
	m.logger.Debug().Str("prefix", prefix).Msg("Cache purged")
	return nil
}

// Handler wraps next with the cache.
//
// Cacheable requests are answered from the store when possible; otherwise next
// runs against a recorder that streams to the client and keeps a copy for After.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsCacheableRequest(r, m.policy) {
			m.skip(r, "request")
			next.ServeHTTP(w, r)
			return
		}

		hit := response.NewRecorder(nil)
		if m.Before(r, hit) {
			if err := hit.Send(w); err != nil {
				m.loggerFor(r).Debug().Err(err).Msg("Failed to write cached response")
			}
			return
		}

		rec := response.NewRecorder(w)
		next.ServeHTTP(rec, r)
		rec.Finish()
		m.After(r, rec)
	})
}

func (m *Middleware) skip(r *http.Request, reason string) {
	CacheSkips.WithLabelValues(reason).Inc()
	m.loggerFor(r).Trace().
		Str("method", r.Method).
		Str("target", requestTarget(r)).
		Str("reason", reason).
		Msg("Cache bypassed")
}

// loggerFor prefers the request-scoped logger installed by hlog, which carries
// the request id, and falls back to the middleware logger.
func (m *Middleware) loggerFor(r *http.Request) *zerolog.Logger {
	logger := hlog.FromRequest(r)
	if logger.GetLevel() == zerolog.Disabled {
		return &m.logger
	}
	return logger
}
