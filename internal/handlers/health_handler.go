package handlers

import (
	"time"

	"vendorrisk/internal/response"

	"github.com/gofiber/fiber/v2"
)

// Version is reported by the status endpoints.
const Version = "1.0.0"

// HealthHandler serves liveness and API information.
type HealthHandler struct {
	environment string
	started     time.Time
	ping        func() error
}

// NewHealthHandler creates a new HealthHandler. ping checks the database and
// may be nil.
func NewHealthHandler(environment string, ping func() error) *HealthHandler {
	return &HealthHandler{
		environment: environment,
		started:     time.Now(),
		ping:        ping,
	}
}

// RegisterRoutes registers the root status routes.
func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.HandleStatus)
	router.Get("/health", h.HandleHealth)
}

// HandleStatus reports that the server is running.
func (h *HealthHandler) HandleStatus(c *fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, "Server is running", fiber.Map{
		"message": "Vendor Risk API Server",
		"status":  "running",
		"version": Version,
	})
}

// HandleHealth reports uptime and database reachability. An unreachable
// database turns the response into a 503.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	data := fiber.Map{
		"status":      "healthy",
		"uptime":      time.Since(h.started).Seconds(),
		"environment": h.environment,
		"version":     Version,
		"database":    "connected",
	}
	if h.ping != nil {
		if err := h.ping(); err != nil {
			data["status"] = "unhealthy"
			data["database"] = "unreachable"
			return response.Write(c, fiber.StatusServiceUnavailable, false, "Server is unhealthy", data)
		}
	}
	return response.Success(c, fiber.StatusOK, "Server is healthy", data)
}

// HandleAPIInfo lists the available endpoints.
func (h *HealthHandler) HandleAPIInfo(c *fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, "Vendor Risk API", fiber.Map{
		"version": Version,
		"endpoints": fiber.Map{
			"auth": fiber.Map{
				"register": "POST /api/auth/register",
				"login":    "POST /api/auth/login",
				"logout":   "POST /api/auth/logout",
				"me":       "GET /api/auth/me",
			},
			"vendors": fiber.Map{
				"list":             "GET /api/vendors",
				"create":           "POST /api/vendors",
				"get":              "GET /api/vendors/:id",
				"update":           "PUT /api/vendors/:id",
				"delete":           "DELETE /api/vendors/:id",
				"toggleMonitoring": "PATCH /api/vendors/:id/toggle-monitoring",
			},
			"search": "GET /api/search?title=",
			"health": "GET /health",
		},
	})
}
