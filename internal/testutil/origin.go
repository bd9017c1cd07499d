// Package testutil provides testing utilities for the response cache.
package testutil

import (
	"net/http"
	"sync"
)

// OriginResponse defines the behavior for a path served by Origin.
type OriginResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// Origin is a configurable application handler that counts the requests it serves.
// Requests answered by the cache never reach it.
type Origin struct {
	mu        sync.RWMutex
	responses map[string]OriginResponse
	handlers  map[string]http.HandlerFunc

	// Tracking
	requestCount int
	pathCount    map[string]int
}

// NewOrigin creates an origin that answers unknown paths with 200 "origin <path>".
func NewOrigin() *Origin {
	return &Origin{
		responses: make(map[string]OriginResponse),
		handlers:  make(map[string]http.HandlerFunc),
		pathCount: make(map[string]int),
	}
}

// ServeHTTP implements http.Handler.
func (o *Origin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	o.requestCount++
	o.pathCount[r.URL.Path]++
	handler, hasHandler := o.handlers[r.URL.Path]
	resp, hasResp := o.responses[r.URL.Path]
	o.mu.Unlock()

	if hasHandler {
		handler(w, r)
		return
	}
	if !hasResp {
		resp = OriginResponse{
			StatusCode: http.StatusOK,
			Body:       "origin " + r.URL.RequestURI(),
			Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

// SetResponse configures a fixed response for a path.
func (o *Origin) SetResponse(path string, resp OriginResponse) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.responses[path] = resp
}

// SetHandler sets a custom handler for a path.
func (o *Origin) SetHandler(path string, handler http.HandlerFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers[path] = handler
}

// RequestCount returns the number of requests that reached the origin.
func (o *Origin) RequestCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.requestCount
}

// PathCount returns the number of requests for a single path.
func (o *Origin) PathCount(path string) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pathCount[path]
}

