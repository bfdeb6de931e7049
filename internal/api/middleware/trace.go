// Package middleware provides HTTP middleware for the API layer.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/quenby/atelier-api/internal/api/shared"
)

// TraceMiddleware attaches a trace ID to every request for log
// correlation. An incoming X-Trace-ID header is honoured so that trace
// IDs can flow through from upstream proxies; otherwise a fresh one is
// generated. The ID is echoed back on the response.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = shared.GenerateTraceID()
		}

		ctx := shared.SetTraceID(r.Context(), traceID)
		w.Header().Set("X-Trace-ID", traceID)

		slog.Debug("request received",
			"method", r.Method,
			"path", r.URL.Path,
			"trace_id", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
