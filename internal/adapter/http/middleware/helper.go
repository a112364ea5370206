package middleware

import (
	"encoding/json"
	"net/http"

	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

// errorBody matches the {"error": ...} envelope the handlers write, plus the
// request id so a rejected call can be found in the logs.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// errorResponse writes a JSON error before the request reaches a handler.
func errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{
		Error:     message,
		RequestID: wrap.RequestID(r.Context()),
	})
}
