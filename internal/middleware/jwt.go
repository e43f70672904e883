package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/crucial707/asset-vault/internal/auth"
	"github.com/crucial707/asset-vault/internal/models"
)

type key string

const userKey key = "current_user"

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the user stored by RequireUser.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireUser resolves the bearer token to a user via gate and stores it in the
// request context. Requests without a valid token for an existing user get 401.
func RequireUser(gate *auth.Gate, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, outcome, err := gate.CurrentUser(r.Context(), BearerToken(r))
			switch outcome {
			case auth.OK:
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
			case auth.Unauthorized:
				unauthorized(w)
			default:
				log.Error().Err(err).Str("path", r.URL.Path).Msg("authorization check failed")
				writeJSONError(w, "internal server error", http.StatusInternalServerError)
			}
		})
	}
}

// RequireAdmin lets the request through only when the user stored by RequireUser
// is an admin. It must be composed after RequireUser.
func RequireAdmin(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := UserFromContext(r.Context())
			switch _, outcome := gate.CurrentAdmin(user); outcome {
			case auth.OK:
				next.ServeHTTP(w, r)
			case auth.Forbidden:
				writeJSONError(w, "insufficient permissions: admin role required", http.StatusForbidden)
			default:
				unauthorized(w)
			}
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSONError(w, "could not validate credentials: token is invalid or expired", http.StatusUnauthorized)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
