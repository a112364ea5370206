package middleware

import (
	"net/http"
	"time"
)

// Logging writes one record per request. Server errors are logged at WARN so they
// stand out from the INFO stream; the handler has already logged the cause.
func (a *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := record(w)

		next.ServeHTTP(rec, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.Status(),
			"bytes", rec.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case rec.Status() >= http.StatusInternalServerError:
			a.log.Warn(r.Context(), "request failed", args...)
		case r.URL.Path == "/health":
			a.log.Debug(r.Context(), "completed", args...)
		default:
			a.log.Info(r.Context(), "completed", args...)
		}
	})
}
