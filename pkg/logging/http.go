package logging

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// RequestIDHeader carries the request id back to the client.
const RequestIDHeader = "X-Request-Id"

// RequestLogger returns middleware that installs logger in each request context,
// tags it with a request id and writes one access log line per request.
// Handlers retrieve the request logger with hlog.FromRequest.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	withLogger := hlog.NewHandler(logger)
	withID := hlog.RequestIDHandler("req_id", RequestIDHeader)
	withMethod := hlog.MethodHandler("method")
	withURL := hlog.URLHandler("url")
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request served")
	})

	return func(next http.Handler) http.Handler {
		return withLogger(withID(withMethod(withURL(access(next)))))
	}
}
