package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
)

// Metrics records request totals, latency and in-flight gauges per route.
// Scrapes of /metrics itself are not counted.
func (m *Middleware) Metrics(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			inFlight := metrics.HttpRequestsInFlight.WithLabelValues(serviceName)
			inFlight.Inc()
			defer inFlight.Dec()

			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)

			metrics.RecordHTTPMetrics(serviceName, r.Method, routeLabel(r.URL.Path), rec.Status(), time.Since(start))
		})
	}
}

// routeLabel collapses id segments so the path label stays low-cardinality.
func routeLabel(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if _, err := uuid.Parse(p); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}
