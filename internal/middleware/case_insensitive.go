package middleware

import (
	"net/http"
	"strings"
)

// CaseInsensitiveMiddleware lowercases URL paths before routing.
// Location labels encode uppercase URLs (/L/{ID}) because QR alphanumeric
// mode has no lowercase letters; ids themselves are lowercase UUIDs.
func CaseInsensitiveMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = strings.ToLower(r.URL.Path)
		if r.URL.RawPath != "" {
			r.URL.RawPath = strings.ToLower(r.URL.RawPath)
		}
		next.ServeHTTP(w, r)
	})
}
