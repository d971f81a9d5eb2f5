package routes

import (
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	sessions *services.SessionExtractor,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	healthHandler *handlers.HealthHandler,
) {
	// Auth: the Authorization header is optional on provider callbacks and
	// checked by the service on unlink, so no JWT middleware here.
	auth := app.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/unlink", authHandler.Unlink)
	auth.Post("/unlink/:provider", authHandler.Unlink)
	auth.Post("/:provider", authHandler.Provider)

	api := app.Group("/api")
	api.Get("/health", healthHandler.Check)
	api.Get("/me", middleware.JWTProtected(cfg, sessions), userHandler.Me)
}
