package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"vendorrisk/internal/models"
	"vendorrisk/internal/repositories"
	"vendorrisk/internal/vendorquery"

	"go.uber.org/zap"
)

// DefaultLogoColor is applied when a vendor is created without one.
const DefaultLogoColor = "from-blue-400 to-blue-600"

// Routing keys of the vendor events.
const (
	EventVendorCreated           = "vendor.created"
	EventVendorUpdated           = "vendor.updated"
	EventVendorDeleted           = "vendor.deleted"
	EventVendorMonitoringToggled = "vendor.monitoring_toggled"
)

// EventPublisher delivers vendor change events.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// VendorEvent is the body of every published vendor event.
type VendorEvent struct {
	Type       string         `json:"type"`
	VendorID   uint           `json:"vendorId"`
	Vendor     *models.Vendor `json:"vendor,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// VendorPage is one page of the vendor listing.
type VendorPage struct {
	Vendors    []models.Vendor        `json:"vendors"`
	Pagination vendorquery.Pagination `json:"pagination"`
}

// CreateVendorInput is the payload accepted when creating a vendor.
type CreateVendorInput struct {
	Name         string              `json:"name" validate:"required,max=255"`
	Domain       string              `json:"domain" validate:"required,max=255"`
	Logo         string              `json:"logo" validate:"max=255"`
	LogoColor    string              `json:"logoColor" validate:"max=100"`
	Rating       int                 `json:"rating" validate:"min=0,max=100"`
	Trend        int                 `json:"trend"`
	TrendUp      *bool               `json:"trendUp"`
	LastAssessed *time.Time          `json:"lastAssessed"`
	Status       models.VendorStatus `json:"status" validate:"omitempty,oneof=Active Inactive"`
	Categories   []string            `json:"categories" validate:"dive,required,max=100"`
	Monitored    bool                `json:"monitored"`
}

// UpdateVendorInput is a partial update. Nil fields are left unchanged.
type UpdateVendorInput struct {
	Name         *string              `json:"name" validate:"omitempty,min=1,max=255"`
	Domain       *string              `json:"domain" validate:"omitempty,min=1,max=255"`
	Logo         *string              `json:"logo" validate:"omitempty,max=255"`
	LogoColor    *string              `json:"logoColor" validate:"omitempty,max=100"`
	Rating       *int                 `json:"rating" validate:"omitempty,min=0,max=100"`
	Trend        *int                 `json:"trend"`
	TrendUp      *bool                `json:"trendUp"`
	LastAssessed *time.Time           `json:"lastAssessed"`
	Status       *models.VendorStatus `json:"status" validate:"omitempty,oneof=Active Inactive"`
	Categories   *[]string            `json:"categories" validate:"omitempty,dive,required,max=100"`
	Monitored    *bool                `json:"monitored"`
}

// VendorService handles business logic related to vendors.
type VendorService struct {
	repo   repositories.VendorRepository
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewVendorService creates a new VendorService. events may be nil.
func NewVendorService(repo repositories.VendorRepository, events EventPublisher, logger *zap.Logger) *VendorService {
	return &VendorService{
		repo:   repo,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// List returns a page of vendors matching f.
func (s *VendorService) List(ctx context.Context, f vendorquery.Filter) (*VendorPage, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	vendors, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	return &VendorPage{
		Vendors:    vendors,
		Pagination: vendorquery.NewPagination(f.Page, f.Limit, total),
	}, nil
}

// Get returns a single vendor.
func (s *VendorService) Get(ctx context.Context, id uint) (*models.Vendor, error) {
	vendor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapVendorError(err)
	}
	return vendor, nil
}

// Create validates the input, applies display defaults and stores a vendor.
func (s *VendorService) Create(ctx context.Context, in CreateVendorInput) (*models.Vendor, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Domain = normalizeDomain(in.Domain)
	if err := validate.Struct(in); err != nil {
		return nil, newValidationError(err)
	}

	if _, err := s.repo.GetByDomain(ctx, in.Domain); err == nil {
		return nil, ErrDomainTaken
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check domain: %w", err)
	}

	vendor := &models.Vendor{
		Name:         in.Name,
		Domain:       in.Domain,
		Logo:         in.Logo,
		LogoColor:    in.LogoColor,
		Rating:       in.Rating,
		Trend:        in.Trend,
		TrendUp:      true,
		LastAssessed: s.now(),
		Status:       in.Status,
		Categories:   in.Categories,
		Monitored:    in.Monitored,
	}
	if vendor.Logo == "" {
		vendor.Logo = logoFor(vendor.Name)
	}
	if vendor.LogoColor == "" {
		vendor.LogoColor = DefaultLogoColor
	}
	if vendor.Status == "" {
		vendor.Status = models.VendorActive
	}
	if in.TrendUp != nil {
		vendor.TrendUp = *in.TrendUp
	}
	if in.LastAssessed != nil {
		vendor.LastAssessed = *in.LastAssessed
	}
	vendor.RecomputeExtraCategories()

	if err := s.repo.Create(ctx, vendor); err != nil {
		return nil, mapVendorError(err)
	}
	s.logger.Info("vendor created", zap.Uint("vendor_id", vendor.ID), zap.String("domain", vendor.Domain))
	s.publish(ctx, EventVendorCreated, vendor.ID, vendor)
	return vendor, nil
}

// Update applies the provided fields to an existing vendor.
func (s *VendorService) Update(ctx context.Context, id uint, in UpdateVendorInput) (*models.Vendor, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if in.Domain != nil {
		normalized := normalizeDomain(*in.Domain)
		in.Domain = &normalized
	}
	if err := validate.Struct(in); err != nil {
		return nil, newValidationError(err)
	}

	vendor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapVendorError(err)
	}

	if in.Domain != nil && *in.Domain != vendor.Domain {
		if _, err := s.repo.GetByDomain(ctx, *in.Domain); err == nil {
			return nil, ErrDomainTaken
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to check domain: %w", err)
		}
	}

	applyUpdate(vendor, in)
	vendor.RecomputeExtraCategories()

	if err := s.repo.Update(ctx, vendor); err != nil {
		return nil, mapVendorError(err)
	}
	s.publish(ctx, EventVendorUpdated, vendor.ID, vendor)
	return vendor, nil
}

func applyUpdate(v *models.Vendor, in UpdateVendorInput) {
	if in.Name != nil {
		v.Name = *in.Name
	}
	if in.Domain != nil {
		v.Domain = *in.Domain
	}
	if in.Logo != nil {
		v.Logo = *in.Logo
	}
	if in.LogoColor != nil {
		v.LogoColor = *in.LogoColor
	}
	if in.Rating != nil {
		v.Rating = *in.Rating
	}
	if in.Trend != nil {
		v.Trend = *in.Trend
	}
	if in.TrendUp != nil {
		v.TrendUp = *in.TrendUp
	}
	if in.LastAssessed != nil {
		v.LastAssessed = *in.LastAssessed
	}
	if in.Status != nil {
		v.Status = *in.Status
	}
	if in.Categories != nil {
		v.Categories = *in.Categories
	}
	if in.Monitored != nil {
		v.Monitored = *in.Monitored
	}
}

// Delete removes a vendor.
func (s *VendorService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapVendorError(err)
	}
	s.logger.Info("vendor deleted", zap.Uint("vendor_id", id))
	s.publish(ctx, EventVendorDeleted, id, nil)
	return nil
}

// ToggleMonitoring flips the monitored flag of a vendor.
func (s *VendorService) ToggleMonitoring(ctx context.Context, id uint) (*models.Vendor, error) {
	vendor, err := s.repo.ToggleMonitoring(ctx, id)
	if err != nil {
		return nil, mapVendorError(err)
	}
	s.publish(ctx, EventVendorMonitoringToggled, vendor.ID, vendor)
	return vendor, nil
}

// publish never fails the calling operation; broker errors are only logged.
func (s *VendorService) publish(ctx context.Context, routingKey string, id uint, vendor *models.Vendor) {
	if s.events == nil {
		return
	}
	event := VendorEvent{Type: routingKey, VendorID: id, Vendor: vendor, OccurredAt: s.now().UTC()}
	if err := s.events.Publish(ctx, routingKey, event); err != nil {
		s.logger.Warn("failed to publish vendor event",
			zap.String("routing_key", routingKey),
			zap.Uint("vendor_id", id),
			zap.Error(err),
		)
	}
}

func mapVendorError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return ErrVendorNotFound
	case errors.Is(err, repositories.ErrDuplicate):
		return ErrDomainTaken
	}
	return err
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// logoFor returns the uppercased first letter of name.
func logoFor(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}
