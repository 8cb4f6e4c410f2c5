package repositories

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"vendorrisk/internal/models"
	"vendorrisk/internal/vendorquery"
)

// MemoryVendorRepository is an in-memory implementation of VendorRepository.
type MemoryVendorRepository struct {
	vendors map[uint]models.Vendor
	nextID  uint
	mu      sync.RWMutex
}

// NewMemoryVendorRepository creates a new instance of MemoryVendorRepository.
func NewMemoryVendorRepository() *MemoryVendorRepository {
	return &MemoryVendorRepository{
		vendors: make(map[uint]models.Vendor),
		nextID:  1,
	}
}

func (r *MemoryVendorRepository) snapshot() []models.Vendor {
	list := make([]models.Vendor, 0, len(r.vendors))
	for _, v := range r.vendors {
		list = append(list, clone(v))
	}
	return list
}

func clone(v models.Vendor) models.Vendor {
	v.Categories = slices.Clone(v.Categories)
	return v
}

// List returns a filtered page of vendors.
func (r *MemoryVendorRepository) List(_ context.Context, f vendorquery.Filter) ([]models.Vendor, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, pagination := vendorquery.Apply(r.snapshot(), f)
	return rows, pagination.Total, nil
}

// SearchByName returns vendors whose name contains title.
func (r *MemoryVendorRepository) SearchByName(_ context.Context, title string) ([]models.Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return vendorquery.SearchByName(r.snapshot(), title), nil
}

// GetByID returns a vendor by its ID.
func (r *MemoryVendorRepository) GetByID(_ context.Context, id uint) (*models.Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vendor, ok := r.vendors[id]
	if !ok {
		return nil, fmt.Errorf("vendor with ID %d: %w", id, ErrNotFound)
	}
	vendor = clone(vendor)
	return &vendor, nil
}

// GetByDomain returns a vendor by its domain.
func (r *MemoryVendorRepository) GetByDomain(_ context.Context, domain string) (*models.Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.vendors {
		if v.Domain == domain {
			v = clone(v)
			return &v, nil
		}
	}
	return nil, fmt.Errorf("vendor with domain %s: %w", domain, ErrNotFound)
}

func (r *MemoryVendorRepository) domainTaken(domain string, except uint) bool {
	for id, v := range r.vendors {
		if id != except && v.Domain == domain {
			return true
		}
	}
	return false
}

// Create adds a new vendor and assigns its ID.
func (r *MemoryVendorRepository) Create(_ context.Context, vendor *models.Vendor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.domainTaken(vendor.Domain, 0) {
		return fmt.Errorf("vendor with domain %s: %w", vendor.Domain, ErrDuplicate)
	}
	if vendor.ID == 0 {
		vendor.ID = r.nextID
	}
	if vendor.ID >= r.nextID {
		r.nextID = vendor.ID + 1
	}
	now := time.Now()
	vendor.CreatedAt = now
	vendor.UpdatedAt = now
	vendor.RecomputeExtraCategories()
	r.vendors[vendor.ID] = clone(*vendor)
	return nil
}

// Update replaces an existing vendor.
func (r *MemoryVendorRepository) Update(_ context.Context, vendor *models.Vendor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.vendors[vendor.ID]; !ok {
		return fmt.Errorf("vendor with ID %d: %w", vendor.ID, ErrNotFound)
	}
	if r.domainTaken(vendor.Domain, vendor.ID) {
		return fmt.Errorf("vendor with domain %s: %w", vendor.Domain, ErrDuplicate)
	}
	vendor.UpdatedAt = time.Now()
	vendor.RecomputeExtraCategories()
	r.vendors[vendor.ID] = clone(*vendor)
	return nil
}

// Delete removes a vendor by its ID.
func (r *MemoryVendorRepository) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.vendors[id]; !ok {
		return fmt.Errorf("vendor with ID %d: %w", id, ErrNotFound)
	}
	delete(r.vendors, id)
	return nil
}

// ToggleMonitoring flips the monitored flag under the write lock.
func (r *MemoryVendorRepository) ToggleMonitoring(_ context.Context, id uint) (*models.Vendor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vendor, ok := r.vendors[id]
	if !ok {
		return nil, fmt.Errorf("vendor with ID %d: %w", id, ErrNotFound)
	}
	vendor.Monitored = !vendor.Monitored
	vendor.UpdatedAt = time.Now()
	r.vendors[id] = vendor
	vendor = clone(vendor)
	return &vendor, nil
}
