package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/xelth-com/iditgo/internal/errs"
	"github.com/xelth-com/iditgo/internal/models"
	"github.com/xelth-com/iditgo/internal/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

// Claims is the authenticated subject of a request
type Claims struct {
	UserID string
	Name   string
	Role   string
}

// UserResolver loads the active user behind a token
type UserResolver interface {
	ActiveUser(ctx context.Context, id string) (*models.User, error)
}

// Auth verifies bearer JWT tokens signed with secret
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			// Bearer token
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			claims, err := utils.ValidateToken(strings.TrimSpace(parts[1]), secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			c := &Claims{
				UserID: utils.ClaimString(claims, "id"),
				Name:   utils.ClaimString(claims, "name"),
				Role:   utils.ClaimString(claims, "role"),
			}
			if c.UserID == "" {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), c)))
		})
	}
}

// RequireAdmin lets through users whose current role is admin. The role is
// read from the database, not the token, so demotions apply immediately.
// Must run after Auth.
func RequireAdmin(users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := ClaimsFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}
			user, err := users.ActiveUser(r.Context(), c.UserID)
			if err != nil {
				if errors.Is(err, errs.ErrAuthentication) {
					writeError(w, http.StatusUnauthorized, errs.Message(err))
					return
				}
				writeError(w, http.StatusInternalServerError, errs.Message(err))
				return
			}
			if !user.IsAdmin() {
				writeError(w, http.StatusForbidden, "Admin role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims stores c in ctx
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, UserContextKey, c)
}

// ClaimsFrom returns the claims stored by Auth
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(UserContextKey).(*Claims)
	return c, ok && c != nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
