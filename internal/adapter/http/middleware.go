package http

import (
	"net/http"
	"strings"
)

// AuthMiddleware returns a middleware that validates the bearer token in
// the Authorization header. Requests with a missing or invalid token are
// rejected with 401 Unauthorized.
func AuthMiddleware(validToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			if token != validToken {
				writeError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
