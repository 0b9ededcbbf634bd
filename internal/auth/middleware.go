package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/linksnip/linksnip/internal/httpx"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

// UserID extracts the authenticated user id from context.
// The second return is false for anonymous requests.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDContextKey).(string)
	return id, ok && id != ""
}

// WithUserID places a user id in the context. Useful in tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// RequireAuth rejects requests without a valid bearer session token.
func (m *Manager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := m.userIDFromRequest(r)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
				"a valid session token is required", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// OptionalAuth resolves the session if one is presented, and lets
// anonymous requests through untouched. Link creation uses this: anonymous
// links are permitted and bypass the quota ledger.
func (m *Manager) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearerToken(r) == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.userIDFromRequest(r)
		if err != nil {
			// A presented-but-invalid token is rejected rather than being
			// silently downgraded to anonymous.
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
				"session token is invalid", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func (m *Manager) userIDFromRequest(r *http.Request) (string, error) {
	return m.Verify(bearerToken(r))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}
