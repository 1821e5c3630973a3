package api

import (
	"net/http"
	"time"

	"medinotes/internal/application/common/logging"
	"medinotes/internal/application/common/slogger"
)

// MiddlewareFunc wraps an http.Handler.
type MiddlewareFunc func(http.Handler) http.Handler

// Chain applies middleware in order: the first listed runs outermost.
func Chain(handler http.Handler, middleware ...MiddlewareFunc) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}

const correlationIDHeader = "X-Correlation-ID"

// NewCorrelationIDMiddleware attaches a correlation ID to every request
// context, honoring an inbound X-Correlation-ID header and echoing the
// ID back in the response.
func NewCorrelationIDMiddleware() MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logging.WithCorrelationID(r.Context(), r.Header.Get(correlationIDHeader))
			w.Header().Set(correlationIDHeader, logging.CorrelationIDFromContext(ctx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// NewLoggingMiddleware logs one line per request with method, path,
// status, and latency.
func NewLoggingMiddleware() MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			slogger.Info(r.Context(), "Request handled", slogger.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      recorder.status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}

// NewRecoveryMiddleware converts handler panics into 500 responses.
func NewRecoveryMiddleware() MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					slogger.Error(r.Context(), "Handler panicked", slogger.Fields{
						"path":  r.URL.Path,
						"panic": rec,
					})
					http.Error(w, `{"error":"INTERNAL_ERROR","message":"An internal error occurred"}`, http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
