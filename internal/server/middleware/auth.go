package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/halcyonlabs/swapdesk/internal/domain"
)

// Auth rejects requests that do not carry the configured API key. The
// dashboard client sends the key in X-API-Key; a Bearer token in the
// Authorization header works too. An empty configured key disables the
// check entirely.
func Auth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		want := []byte(apiKey)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := requestKey(r)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				deny(w, http.StatusUnauthorized, domain.ErrUnauthorized.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
