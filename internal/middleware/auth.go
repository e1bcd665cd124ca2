package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cpcoach/backend/internal/auth"
	"github.com/cpcoach/backend/internal/httpx"
	"github.com/cpcoach/backend/internal/models"
)

const AdminKeyHeader = "X-Admin-Key"

// Auth verifies a Bearer token when one is sent and stores its handle in
// the request context. With required set, requests without a valid token
// are rejected.
func Auth(issuer *auth.Issuer, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				if required {
					httpx.WriteError(w, r, fmt.Errorf("%w: missing authorization header", models.ErrUnauthorized))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				httpx.WriteError(w, r, fmt.Errorf("%w: invalid authorization format", models.ErrUnauthorized))
				return
			}
			handle, err := issuer.Parse(parts[1])
			if err != nil {
				httpx.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithHandle(r.Context(), handle)))
		})
	}
}

// AdminOnly requires the X-Admin-Key header to match the bcrypt hash.
func AdminOnly(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.VerifyAdminKey(keyHash, r.Header.Get(AdminKeyHeader)) {
				httpx.WriteError(w, r, fmt.Errorf("%w: admin key required", models.ErrUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
