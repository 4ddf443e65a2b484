package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth(t *testing.T) {
	handler := Auth("secret")(okHandler())

	tests := []struct {
		name   string
		path   string
		cookie string
		want   int
	}{
		{"login is public", "/auth/login", "", http.StatusOK},
		{"metrics is public", "/metrics", "", http.StatusOK},
		{"api without cookie", "/api/summary", "", http.StatusUnauthorized},
		{"page without cookie redirects", "/stream", "", http.StatusSeeOther},
		{"wrong cookie", "/api/summary", "true", http.StatusUnauthorized},
		{"valid cookie", "/api/summary", Token("secret"), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("got status %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAuth_EmptyPasswordDisablesAuth(t *testing.T) {
	handler := Auth("")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("got status %d, want 200", rec.Code)
	}
}
