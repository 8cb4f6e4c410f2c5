package handlers

import (
	"errors"

	"vendorrisk/internal/response"
	"vendorrisk/internal/services"
	"vendorrisk/internal/vendorquery"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// VendorHandler handles HTTP requests for vendors.
type VendorHandler struct {
	vendorService *services.VendorService
	logger        *zap.Logger
}

// NewVendorHandler creates a new VendorHandler.
func NewVendorHandler(vendorService *services.VendorService, logger *zap.Logger) *VendorHandler {
	return &VendorHandler{
		vendorService: vendorService,
		logger:        logger,
	}
}

// RegisterRoutes registers the vendor routes with the Fiber app behind the
// given middlewares.
func (h *VendorHandler) RegisterRoutes(router fiber.Router, middlewares ...fiber.Handler) {
	vendorRoutes := router.Group("/vendors", middlewares...)
	vendorRoutes.Get("/", h.HandleList)
	vendorRoutes.Post("/", h.HandleCreate)
	vendorRoutes.Get("/:id", h.HandleGet)
	vendorRoutes.Put("/:id", h.HandleUpdate)
	vendorRoutes.Delete("/:id", h.HandleDelete)
	vendorRoutes.Patch("/:id/toggle-monitoring", h.HandleToggleMonitoring)
}

// fail maps service errors to their status codes.
func (h *VendorHandler) fail(c *fiber.Ctx, err error, fallback string) error {
	var verr *services.ValidationError
	var ferr vendorquery.FieldErrors
	switch {
	case errors.As(err, &verr):
		return response.ValidationFailed(c, "Validation failed", verr.Fields)
	case errors.As(err, &ferr):
		return response.ValidationFailed(c, "Invalid query parameters", ferr)
	case errors.Is(err, errInvalidVendorID):
		return response.Fail(c, fiber.StatusBadRequest, "Invalid vendor ID", nil)
	case errors.Is(err, services.ErrVendorNotFound):
		return response.Fail(c, fiber.StatusNotFound, "Vendor not found", nil)
	case errors.Is(err, services.ErrDomainTaken):
		return response.Fail(c, fiber.StatusConflict, "Domain already exists", err)
	}
	h.logger.Error(fallback, zap.String("path", c.Path()), zap.Error(err))
	return response.Fail(c, fiber.StatusInternalServerError, fallback, err)
}

// HandleList returns a filtered, paginated page of vendors.
func (h *VendorHandler) HandleList(c *fiber.Ctx) error {
	var params vendorquery.Params
	if err := c.QueryParser(&params); err != nil {
		return response.Fail(c, fiber.StatusBadRequest, "Invalid query parameters", err)
	}
	filter, err := vendorquery.Parse(params)
	if err != nil {
		return h.fail(c, err, "Failed to retrieve vendors")
	}

	page, err := h.vendorService.List(c.UserContext(), filter)
	if err != nil {
		return h.fail(c, err, "Failed to retrieve vendors")
	}
	return response.Success(c, fiber.StatusOK, "Vendors retrieved successfully", page)
}

// HandleGet returns a single vendor.
func (h *VendorHandler) HandleGet(c *fiber.Ctx) error {
	id, err := vendorID(c)
	if err != nil {
		return h.fail(c, err, "")
	}
	vendor, err := h.vendorService.Get(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "Failed to retrieve vendor")
	}
	return response.Success(c, fiber.StatusOK, "Vendor retrieved successfully", vendor)
}

// HandleCreate creates a vendor.
func (h *VendorHandler) HandleCreate(c *fiber.Ctx) error {
	var in services.CreateVendorInput
	if err := c.BodyParser(&in); err != nil {
		return response.Fail(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	vendor, err := h.vendorService.Create(c.UserContext(), in)
	if err != nil {
		return h.fail(c, err, "Failed to create vendor")
	}
	return response.Success(c, fiber.StatusCreated, "Vendor created successfully", vendor)
}

// HandleUpdate applies a partial update to a vendor.
func (h *VendorHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := vendorID(c)
	if err != nil {
		return h.fail(c, err, "")
	}
	var in services.UpdateVendorInput
	if err := c.BodyParser(&in); err != nil {
		return response.Fail(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	vendor, err := h.vendorService.Update(c.UserContext(), id, in)
	if err != nil {
		return h.fail(c, err, "Failed to update vendor")
	}
	return response.Success(c, fiber.StatusOK, "Vendor updated successfully", vendor)
}

// HandleDelete deletes a vendor.
func (h *VendorHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := vendorID(c)
	if err != nil {
		return h.fail(c, err, "")
	}
	if err := h.vendorService.Delete(c.UserContext(), id); err != nil {
		return h.fail(c, err, "Failed to delete vendor")
	}
	return response.Success(c, fiber.StatusOK, "Vendor deleted successfully", nil)
}

// HandleToggleMonitoring flips the monitored flag of a vendor.
func (h *VendorHandler) HandleToggleMonitoring(c *fiber.Ctx) error {
	id, err := vendorID(c)
	if err != nil {
		return h.fail(c, err, "")
	}
	vendor, err := h.vendorService.ToggleMonitoring(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "Failed to toggle vendor monitoring")
	}
	return response.Success(c, fiber.StatusOK, "Vendor monitoring toggled successfully", vendor)
}
