package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

// Recover turns a handler panic into a 500 and closes the connection.
// http.ErrAbortHandler is re-raised so net/http can abort the response quietly.
func (app *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(p)
			}

			ctx := wrap.WithAction(r.Context(), types.ActionPanicRecovered)
			err := fmt.Errorf("panic: %v", p)
			app.log.Error(ctx, "recovered from panic", err, "path", r.URL.Path, "stack", string(debug.Stack()))

			w.Header().Set("Connection", "close")
			errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
		}()

		next.ServeHTTP(w, r)
	})
}
