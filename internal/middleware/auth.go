package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xelth-com/eckmarket/internal/utils"
)

type contextKey string

const ClaimsContextKey contextKey = "claims"

// Auth verifies bearer JWT tokens signed with secret.
// Tenant-scoped tokens only open the progress stream and are refused here.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(authHeader)
			if !ok {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := utils.ValidateToken(token, secret)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}
			if _, scoped := tenantClaim(claims); scoped {
				http.Error(w, "Token is scoped to a single tenant", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StreamAuth guards websocket endpoints. Browsers cannot set headers on an
// upgrade request, so the token may also arrive as ?token=.
func StreamAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.URL.Query().Get("token")
			if h := r.Header.Get("Authorization"); h != "" {
				var ok bool
				if token, ok = bearerToken(h); !ok {
					http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
					return
				}
			}
			if token == "" {
				http.Error(w, "Token required", http.StatusUnauthorized)
				return
			}

			claims, err := utils.ValidateToken(token, secret)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

func tenantClaim(claims jwt.MapClaims) (uint, bool) {
	// JSON numbers decode as float64
	v, ok := claims["tenant"].(float64)
	if !ok || v < 1 {
		return 0, false
	}
	return uint(v), true
}

// Subject returns the token subject of an authenticated request
func Subject(r *http.Request) string {
	claims, ok := r.Context().Value(ClaimsContextKey).(jwt.MapClaims)
	if !ok {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}

// TenantScope returns the tenant an authenticated token is pinned to, if any
func TenantScope(r *http.Request) (uint, bool) {
	claims, ok := r.Context().Value(ClaimsContextKey).(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	return tenantClaim(claims)
}
