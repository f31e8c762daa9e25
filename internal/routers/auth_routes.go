package routers

import (
	"botoapp/user/internal/handlers"
	"botoapp/user/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func AuthRoutes(r *chi.Mux, authHandler *handlers.AuthHandler, g Guards) {
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(g.throttle())
			r.With(middleware.ValidateRequest[*handlers.LoginRequest]()).Post("/login", authHandler.LoginHandler)
			r.With(middleware.ValidateRequest[*handlers.VerifyAccountRequest]()).Post("/verify-account", authHandler.VerifyAccountHandler)
			r.With(middleware.ValidateRequest[*handlers.PhoneRequest]()).Post("/initiate-password-reset", authHandler.InitiatePasswordResetHandler)
		})

		r.With(middleware.ValidateRequest[*handlers.RefreshRequest]()).Post("/token/refresh", authHandler.RefreshHandler)
		r.With(middleware.ValidateRequest[*handlers.VerifyTokenRequest]()).Post("/token/verify", authHandler.VerifyTokenHandler)
		r.With(middleware.ValidateRequest[*handlers.CreatePasswordRequest]()).Post("/create-password", authHandler.CreatePasswordHandler)

		r.Group(func(r chi.Router) {
			r.Use(g.auth())
			r.Get("/me", authHandler.MeHandler) // Current user
			r.With(middleware.ValidateRequest[*handlers.ChangePasswordRequest]()).Post("/change-password", authHandler.ChangePasswordHandler)
		})
	})
}
