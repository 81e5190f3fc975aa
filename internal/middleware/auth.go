// Package middleware contains the HTTP middleware chain: request logging and
// panic recovery, CORS, body limits and bearer token authentication.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// TokenParser returns the user id carried by a token.
type TokenParser interface {
	Parse(token string) (int64, error)
}

type contextKey int

const userIDKey contextKey = iota

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// UserIDPtr is UserID as a nullable value.
func UserIDPtr(ctx context.Context) *int64 {
	if id, ok := UserID(ctx); ok {
		return &id
	}
	return nil
}

// RequireAuth rejects requests without a valid bearer token with 401.
func RequireAuth(tokens TokenParser, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			unauthorized(w, "Missing token")
			return
		}
		id, err := tokens.Parse(token)
		if err != nil {
			unauthorized(w, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

// OptionalAuth attaches the user id when a valid token is present and
// otherwise serves the request anonymously.
func OptionalAuth(tokens TokenParser, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if id, err := tokens.Parse(token); err == nil {
				r = r.WithContext(WithUserID(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken reads the Authorization header, falling back to the token
// query parameter that browsers must use for WebSocket connections.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="visioniq"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
