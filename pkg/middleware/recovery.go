package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "reservo/pkg/errors"
	httputil "reservo/pkg/http"
	"reservo/pkg/logger"
)

// Recovery turns a handler panic into a 500 without exposing the panic
// value. http.ErrAbortHandler is re-raised so the server drops the
// connection as intended.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				log.Error("Panic recovered",
					"request_id", RequestIDFrom(r.Context()),
					"panic", v,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				if rec.wroteHeader() {
					return
				}

				appErr := apperrors.Internal("Internal server error", fmt.Errorf("panic: %v", v))
				if writeErr := httputil.WriteError(rec, appErr); writeErr != nil {
					log.Error("failed to write error response", "handler", "Recovery", "error", writeErr)
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
