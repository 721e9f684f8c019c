package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/nadhifr/eventra/internal/models"
	pkghttp "github.com/nadhifr/eventra/pkg/http"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// RequireAdmin rejects requests without a valid Bearer token. Validated
// claims are stored on the request context for handlers.
func RequireAdmin(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				pkghttp.WriteUnauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				pkghttp.WriteUnauthorized(w, "invalid authorization header")
				return
			}

			claims, err := tm.Validate(parts[1])
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the validated claims set by RequireAdmin.
func ClaimsFromContext(ctx context.Context) (*models.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*models.TokenClaims)
	return claims, ok
}
