package repositories

import (
	"context"

	"vendorrisk/internal/models"
	"vendorrisk/internal/vendorquery"
)

// VendorRepository defines the interface for vendor data access.
type VendorRepository interface {
	// List returns one page of vendors matching f and the total match count.
	List(ctx context.Context, f vendorquery.Filter) ([]models.Vendor, int64, error)
	// SearchByName returns every vendor whose name contains title, ignoring
	// case, ordered by name.
	SearchByName(ctx context.Context, title string) ([]models.Vendor, error)
	GetByID(ctx context.Context, id uint) (*models.Vendor, error)
	GetByDomain(ctx context.Context, domain string) (*models.Vendor, error)
	Create(ctx context.Context, vendor *models.Vendor) error
	Update(ctx context.Context, vendor *models.Vendor) error
	Delete(ctx context.Context, id uint) error
	// ToggleMonitoring flips the monitored flag and returns the stored row.
	ToggleMonitoring(ctx context.Context, id uint) (*models.Vendor, error)
}
