package routers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"botoapp/user/internal/handlers"

	"github.com/go-chi/chi/v5"
)

func TestAuthRoutesRegistered(t *testing.T) {
	r := chi.NewRouter()
	AuthRoutes(r, &handlers.AuthHandler{}, Guards{})

	expected := map[string]struct{}{
		"POST /api/v1/auth/login":                   {},
		"POST /api/v1/auth/token/refresh":           {},
		"POST /api/v1/auth/token/verify":            {},
		"GET /api/v1/auth/me":                       {},
		"POST /api/v1/auth/initiate-password-reset": {},
		"POST /api/v1/auth/create-password":         {},
		"POST /api/v1/auth/verify-account":          {},
		"POST /api/v1/auth/change-password":         {},
	}

	if err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		key := method + " " + route
		delete(expected, key)
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	if len(expected) != 0 {
		t.Fatalf("missing routes: %v", expected)
	}
}

func TestAuthRoutesApplyGuards(t *testing.T) {
	var authed, throttled int
	g := Guards{
		Authenticate: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				authed++
				w.WriteHeader(http.StatusUnauthorized)
			})
		},
		Throttle: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				throttled++
				w.WriteHeader(http.StatusTooManyRequests)
			})
		},
	}
	r := chi.NewRouter()
	AuthRoutes(r, &handlers.AuthHandler{}, g)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/v1/auth/me", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/auth/change-password", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/auth/login", http.StatusTooManyRequests},
		{http.MethodPost, "/api/v1/auth/verify-account", http.StatusTooManyRequests},
		{http.MethodPost, "/api/v1/auth/initiate-password-reset", http.StatusTooManyRequests},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, rec.Code)
		}
	}
	if authed != 2 || throttled != 3 {
		t.Fatalf("unexpected guard counts: auth=%d throttle=%d", authed, throttled)
	}
}
