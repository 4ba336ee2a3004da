package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/iamjameskeane/realpolitik-sub000/internal/auth"
)

const userIDHeader = "X-Realpolitik-User"

// RequireUser resolves the caller from the user header and populates the
// request identity. The gateway in front of this service terminates real
// authentication and injects the header; anything arriving without it is
// rejected.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(userIDHeader))
		if userID == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := auth.WithIdentity(r.Context(), auth.Identity{UserID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireIngestToken guards the ingestion endpoint with a static bearer
// token. Comparison is constant-time.
func RequireIngestToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
