// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jeevandhara/bloodbank/pkg/logger"
)

// RequestLogger returns a middleware that logs HTTP requests. It also copies
// the request ID into the logger context so service-layer logs carry it.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			ctx := logger.ContextWithRequestID(r.Context(), middleware.GetReqID(r.Context()))
			r = r.WithContext(ctx)

			defer func() {
				log.Info("request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start).String(),
					"request_id", middleware.GetReqID(r.Context()),
					"remote_addr", r.RemoteAddr,
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// StatusRecorder is implemented by collectors interested in response codes
// and latencies.
type StatusRecorder interface {
	RecordHTTPStatus(statusCode int)
	RecordHTTPLatency(route string, duration time.Duration)
}

// Metrics returns a middleware that feeds response codes and latencies to
// the collector. It runs after routing so the chi route pattern is known.
func Metrics(collector StatusRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				collector.RecordHTTPStatus(ww.Status())
				collector.RecordHTTPLatency(r.URL.Path, time.Since(start))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
