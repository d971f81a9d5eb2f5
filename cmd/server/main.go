package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	stdoutHandler := logging.Setup(cfg.AppEnv)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Store
	var (
		store        services.UserStore
		ping         func() error
		pgLogHandler *logging.PGHandler
	)
	cleanupDone := make(chan struct{})
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		if err := database.Connect(cfg); err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		if err := database.Migrate(); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}
		store = repository.NewUserRepository(database.DB)
		ping = database.Ping

		// PostgreSQL log handler (ERROR+ async batch)
		pgLogHandler = logging.NewPGHandler(database.DB)
		slog.SetDefault(slog.New(logging.NewMultiHandler(stdoutHandler, pgLogHandler)))

		// Log cleanup (30-day retention)
		logging.StartCleanup(database.DB, logging.LogRetention, cleanupDone)
	default:
		slog.Warn("using in-memory user store; data is lost on restart")
		store = repository.NewMemoryUserRepository()
	}

	// Services
	tokenService, err := services.NewTokenService(cfg.TokenSecret, cfg.TokenTTL, cfg.TokenLeeway)
	if err != nil {
		slog.Error("token service init failed", "error", err)
		os.Exit(1)
	}
	oauthClient := services.NewOAuthClient(cfg)
	for _, p := range models.Providers {
		if !oauthClient.Configured(p) {
			slog.Warn("provider client secret not configured", "provider", p.String())
		}
	}
	authService := services.NewAuthService(store, services.NewBcryptHasher(bcrypt.DefaultCost), tokenService)
	sessions := services.NewSessionExtractor(tokenService)
	federationService := services.NewFederationService(store, oauthClient, sessions, tokenService)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, federationService)
	userHandler := handlers.NewUserHandler(store)
	healthHandler := handlers.NewHealthHandler(cfg.StoreDriver, ping)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	routes.Setup(app, cfg, sessions, authHandler, userHandler, healthHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	if pgLogHandler != nil {
		pgLogHandler.Stop()
	}
	sentry.Flush(2 * time.Second)

	if database.DB != nil {
		if err := database.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{
		Error:   true,
		Message: message,
	})
}
