package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "reservo/pkg/errors"
	httputil "reservo/pkg/http"
	"reservo/pkg/logger"
	"reservo/pkg/model"

	"github.com/golang-jwt/jwt/v5"
)

type identityKey struct{}

// AccountClaims are the claims read from a bearer token. Tokens are issued
// elsewhere; this service only verifies them.
type AccountClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func WithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller, or nil for an anonymous request.
func IdentityFromContext(ctx context.Context) *model.Identity {
	identity, _ := ctx.Value(identityKey{}).(*model.Identity)
	return identity
}

// Identity attaches the caller named by an HS256 bearer token. Requests
// without an Authorization header pass through anonymously; a header that
// fails verification is rejected. An empty secret disables verification
// and every request is anonymous.
func Identity(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || len(key) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				writeUnauthorized(w, log, "Authorization header must be a bearer token")
				return
			}

			identity, err := ParseIdentity(raw, key)
			if err != nil {
				log.Warn("Rejected bearer token",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				writeUnauthorized(w, log, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func ParseIdentity(raw string, key []byte) (*model.Identity, error) {
	claims := &AccountClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &model.Identity{AccountID: claims.Subject, Email: claims.Email}, nil
}

func writeUnauthorized(w http.ResponseWriter, log *logger.Logger, message string) {
	if err := httputil.WriteError(w, apperrors.Unauthorized(message)); err != nil {
		log.Error("failed to write error response", "handler", "Identity", "operation", "WriteError", "error", err)
	}
}
