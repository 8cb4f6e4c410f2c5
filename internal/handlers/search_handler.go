package handlers

import (
	"errors"
	"fmt"

	"vendorrisk/internal/response"
	"vendorrisk/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SearchHandler handles vendor name searches.
type SearchHandler struct {
	searchService *services.SearchService
	logger        *zap.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(searchService *services.SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// RegisterRoutes registers the search route with the Fiber app behind the
// given middlewares.
func (h *SearchHandler) RegisterRoutes(router fiber.Router, middlewares ...fiber.Handler) {
	router.Get("/search", append(middlewares, h.HandleSearch)...)
}

// HandleSearch returns every vendor whose name contains the title parameter.
func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	title := c.Query("title")
	vendors, err := h.searchService.SearchByTitle(c.UserContext(), title)
	if err != nil {
		if errors.Is(err, services.ErrTitleRequired) {
			return response.ValidationFailed(c, "Title parameter is required", nil)
		}
		h.logger.Error("failed to search vendors", zap.String("title", title), zap.Error(err))
		return response.Fail(c, fiber.StatusInternalServerError, "Failed to search vendors", err)
	}

	return response.Success(c, fiber.StatusOK,
		fmt.Sprintf("Found %d vendor(s) matching \"%s\"", len(vendors), title),
		fiber.Map{"vendors": vendors, "total": len(vendors)},
	)
}
