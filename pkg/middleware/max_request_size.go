package middleware

import (
	"net/http"

	apperrors "reservo/pkg/errors"
	httputil "reservo/pkg/http"
	"reservo/pkg/logger"
)

const CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"

// MaxRequestSize rejects declared oversized bodies up front and caps the
// rest with http.MaxBytesReader, so decoding fails once limit is passed.
func MaxRequestSize(limit int64, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				log.Warn("Request body too large",
					"request_id", RequestIDFrom(r.Context()),
					"content_length", r.ContentLength,
					"limit", limit,
				)
				w.Header().Set("Connection", "close")
				err := apperrors.New(CodePayloadTooLarge, "Request body too large", http.StatusRequestEntityTooLarge)
				if writeErr := httputil.WriteError(w, err); writeErr != nil {
					log.Error("failed to write error response", "handler", "MaxRequestSize", "operation", "WriteError", "error", writeErr)
				}
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
