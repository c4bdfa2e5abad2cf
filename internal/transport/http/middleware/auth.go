package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vedran77/campusnet/internal/auth"
	"github.com/vedran77/campusnet/internal/domain"
)

type contextKey string

const IdentityKey contextKey = "identity"

// Auth resolves the bearer token into the caller identity.
func Auth(tokens *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, "Missing or invalid token")
				return
			}

			id, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := WithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"kind":"validation","code":"UNAUTHORIZED","message":"` + message + `"}}`))
}

func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

// GetIdentity returns the caller identity placed by Auth.
func GetIdentity(ctx context.Context) domain.Identity {
	id, _ := ctx.Value(IdentityKey).(domain.Identity)
	return id
}
