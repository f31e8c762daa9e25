package routers

import (
	"net/http"
	"testing"

	"botoapp/user/internal/handlers"

	"github.com/go-chi/chi/v5"
)

func TestUserRoutesRegistered(t *testing.T) {
	r := chi.NewRouter()
	UserRoutes(r, &handlers.UserHandler{}, &handlers.AuthHandler{}, Guards{})

	expected := map[string]struct{}{
		"POST /api/v1/users/":          {},
		"GET /api/v1/users/":           {},
		"GET /api/v1/users/{id}":       {},
		"PATCH /api/v1/users/{id}":     {},
		"PUT /api/v1/users/{id}":       {},
		"PUT /api/v1/users/{id}/image": {},
		"DELETE /api/v1/users/{id}":    {},
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
