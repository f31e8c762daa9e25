package routers

import (
	"botoapp/user/internal/handlers"
	"botoapp/user/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func UserRoutes(r *chi.Mux, userHandler *handlers.UserHandler, authHandler *handlers.AuthHandler, g Guards) {
	r.Route("/api/v1/users", func(r chi.Router) {
		// registration is the only public user route
		r.With(g.throttle(), middleware.ValidateRequest[*handlers.RegisterRequest]()).Post("/", authHandler.RegisterHandler)

		r.Group(func(r chi.Router) {
			r.Use(g.auth())
			r.Get("/", userHandler.ListUsersHandler)
			r.Get("/{id}", userHandler.GetUserHandler)
			r.With(middleware.ValidateRequest[*handlers.UpdateUserRequest]()).Patch("/{id}", userHandler.UpdateUserHandler)
			r.With(middleware.ValidateRequest[*handlers.UpdateUserRequest]()).Put("/{id}", userHandler.UpdateUserHandler)
			r.Put("/{id}/image", userHandler.UploadImageHandler)
			r.With(middleware.RequireAdmin).Delete("/{id}", userHandler.DeleteUserHandler)
		})
	})
}
