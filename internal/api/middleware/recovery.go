package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kiranshivaraju/dealflow/internal/api/response"
	"github.com/rs/zerolog"
)

// Recovery turns a panic into a 500 reply. Panic details are only exposed
// when debug is set.
func Recovery(debugMode bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					zerolog.Ctx(r.Context()).Error().
						Interface("panic", rec).
						Str("stack", string(debug.Stack())).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("panic recovered")
					response.ServerError("request processing", fmt.Errorf("panic: %v", rec), debugMode, nil).Write(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
