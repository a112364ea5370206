package middleware

import (
	"net/http"

	"github.com/google/uuid"

	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags the request with the caller's X-Request-ID or a fresh one and
// echoes it back. The id follows the request into logs and published events.
func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(wrap.WithRequestID(r.Context(), id)))
	})
}
