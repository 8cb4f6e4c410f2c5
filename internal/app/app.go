// Package app assembles the Fiber application from its repositories.
package app

import (
	"errors"
	"strings"

	"vendorrisk/internal/config"
	"vendorrisk/internal/handlers"
	"vendorrisk/internal/metrics"
	"vendorrisk/internal/middleware"
	"vendorrisk/internal/repositories"
	"vendorrisk/internal/response"
	"vendorrisk/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options are the collaborators of the application.
type Options struct {
	Config  *config.Config
	Users   repositories.UserRepository
	Vendors repositories.VendorRepository
	// Events is optional; nil disables vendor event publishing.
	Events services.EventPublisher
	// Metrics is optional; a fresh registry is created when nil.
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	// Ping reports database reachability for /health and may be nil.
	Ping func() error
}

// New builds the Fiber application with every route registered.
func New(opts Options) *fiber.App {
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	var events services.EventPublisher
	if opts.Events != nil {
		events = m.InstrumentPublisher(opts.Events)
	}

	// --- Initialize Services ---
	authService := services.NewAuthService(opts.Users, cfg.JWTSecret, cfg.JWTExpiresIn, log.Named("auth"))
	vendorService := services.NewVendorService(opts.Vendors, events, log.Named("vendors"))
	searchService := services.NewSearchService(opts.Vendors)

	// --- Initialize Handlers ---
	authHandler := handlers.NewAuthHandler(authService, !cfg.IsDevelopment(), log.Named("auth"))
	vendorHandler := handlers.NewVendorHandler(vendorService, log.Named("vendors"))
	searchHandler := handlers.NewSearchHandler(searchService, log.Named("search"))
	healthHandler := handlers.NewHealthHandler(cfg.AppEnv, opts.Ping)

	app := fiber.New(fiber.Config{
		AppName:      "vendorrisk",
		ErrorHandler: errorHandler(log),
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${method} ${path} ${latency}\n",
		Output: zap.NewStdLog(log.Named("http")).Writer(),
	}))
	app.Use(cors.New(corsConfig(cfg.AllowedOrigins())))
	if cfg.IsDevelopment() {
		app.Use(response.ExposeErrors())
	}
	app.Use(m.Middleware())

	// --- Routes ---
	healthHandler.RegisterRoutes(app)
	app.Get("/metrics", m.Handler())

	api := app.Group("/api")
	api.Get("/", healthHandler.HandleAPIInfo)

	authRequired := middleware.AuthRequired(authService, m, log.Named("auth"))
	authHandler.RegisterRoutes(api, authRequired)

	var vendorGuards []fiber.Handler
	if cfg.VendorsRequireAuth {
		vendorGuards = append(vendorGuards, authRequired)
	}
	vendorHandler.RegisterRoutes(api, vendorGuards...)
	searchHandler.RegisterRoutes(api, vendorGuards...)

	app.Use(func(c *fiber.Ctx) error {
		return response.Fail(c, fiber.StatusNotFound, "Route not found", nil)
	})

	return app
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}
	if len(origins) > 0 {
		c.AllowOrigins = strings.Join(origins, ",")
		c.AllowCredentials = true
	}
	return c
}

// errorHandler renders errors that escaped the handlers, including panics
// recovered by the recover middleware, as envelopes.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return response.Fail(c, code, message, err)
	}
}
