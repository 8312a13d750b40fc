package auth

import (
	"context"
	"encoding/json"
	"estate-match/errors"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RolesKey  contextKey = "roles"
)

// Routes reachable without a token, as "METHOD /path".
var publicRoutes = map[string]struct{}{
	"POST /api/sessions": {},
	"POST /api/users":    {},
}

// Interceptor checks the bearer JWT of incoming HTTP requests.
type Interceptor struct {
	tokens TokenManager
}

func NewInterceptor(tokens TokenManager) Interceptor {
	return Interceptor{tokens: tokens}
}

// Wrap injects the caller identity into the request context, or answers 401.
// Browsers cannot set headers on websocket upgrades, so a "token" query
// parameter is accepted as well.
func (i Interceptor) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicRoute(r) {
			next.ServeHTTP(w, r)
			return
		}
		tokenStr := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if tokenStr == "" {
			tokenStr = r.URL.Query().Get("token")
		}
		if tokenStr == "" {
			reject(w, errors.ErrMissingToken)
			return
		}
		claims, err := i.tokens.ValidateToken(tokenStr)
		if err != nil {
			reject(w, errors.ErrInvalidToken)
			return
		}
		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, RolesKey, claims.Roles)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the authenticated user of ctx, empty if none.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// reject answers with the same JSON error shape as the API handlers.
func reject(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errors.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func isPublicRoute(r *http.Request) bool {
	_, ok := publicRoutes[r.Method+" "+r.URL.Path]
	return ok
}
