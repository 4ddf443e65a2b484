package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// CookieName is the cookie issued by the login handler.
const CookieName = "authenticated"

// Token derives the cookie value from the configured password.
func Token(password string) string {
	sum := sha256.Sum256([]byte("farmwatch:" + password))
	return hex.EncodeToString(sum[:])
}

// Auth returns a middleware that requires the login cookie on every route
// except the login endpoint and the metrics scrape. An empty password
// disables authentication.
func Auth(password string) func(http.Handler) http.Handler {
	token := Token(password)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if password == "" ||
				r.URL.Path == "/auth/login" ||
				r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(CookieName)
			if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(token)) != 1 {
				if strings.HasPrefix(r.URL.Path, "/api/") ||
					r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
