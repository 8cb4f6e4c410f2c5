package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"vendorrisk/internal/models"
	"vendorrisk/internal/vendorquery"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMVendorRepository is a GORM implementation of VendorRepository.
type GORMVendorRepository struct {
	db *gorm.DB
}

// NewGORMVendorRepository creates a new instance of GORMVendorRepository.
func NewGORMVendorRepository(db *gorm.DB) *GORMVendorRepository {
	return &GORMVendorRepository{
		db: db,
	}
}

// filterScope builds the conjunctive WHERE clause for a listing filter.
func filterScope(f vendorquery.Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Search != "" {
			text := likePattern(strings.ToLower(f.Search))
			// categories are stored as a JSON array, so an exact element
			// appears as its JSON-quoted form.
			quoted, _ := json.Marshal(f.Search)
			db = db.Where(
				`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(domain) LIKE ? ESCAPE '\' OR `+containsExpr(db, "categories")+`)`,
				text, text, string(quoted),
			)
		}
		if f.Status != nil {
			db = db.Where("status = ?", string(*f.Status))
		}
		if f.Monitored != nil {
			db = db.Where("monitored = ?", *f.Monitored)
		}
		return db
	}
}

// containsExpr is a case-sensitive substring test on column. LIKE folds
// ASCII case on SQLite, so neither driver uses it here.
func containsExpr(db *gorm.DB, column string) string {
	if db.Dialector.Name() == "postgres" {
		return "strpos(" + column + ", ?) > 0"
	}
	return "instr(" + column + ", ?) > 0"
}

// orderColumn orders by column, folding case for the text keys. column
// always comes from the closed sort key set.
func orderColumn(column string, desc bool) clause.OrderByColumn {
	col := clause.Column{Name: column}
	if column == "name" || column == "domain" {
		col = clause.Column{Name: "LOWER(" + column + ")", Raw: true}
	}
	return clause.OrderByColumn{Column: col, Desc: desc}
}

// List retrieves a filtered, ordered page of vendors and the total match count.
func (r *GORMVendorRepository) List(ctx context.Context, f vendorquery.Filter) ([]models.Vendor, int64, error) {
	column := f.SortBy.Column()
	if column == "" {
		return nil, 0, fmt.Errorf("unsupported sort key %q", f.SortBy)
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Vendor{}).Scopes(filterScope(f)).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count vendors: %w", err)
	}

	vendors := make([]models.Vendor, 0, f.Limit)
	err := r.db.WithContext(ctx).
		Scopes(filterScope(f)).
		Order(orderColumn(column, f.Descending())).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: f.Descending()}).
		Offset(f.Offset()).
		Limit(f.Limit).
		Find(&vendors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list vendors: %w", err)
	}
	return vendors, total, nil
}

// SearchByName retrieves all vendors whose name contains title, ignoring case.
func (r *GORMVendorRepository) SearchByName(ctx context.Context, title string) ([]models.Vendor, error) {
	vendors := make([]models.Vendor, 0)
	err := r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(strings.ToLower(title))).
		Order(orderColumn("name", false)).
		Order("id ASC").
		Find(&vendors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search vendors: %w", err)
	}
	return vendors, nil
}

// GetByID retrieves a single vendor by its ID from the database.
func (r *GORMVendorRepository) GetByID(ctx context.Context, id uint) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("vendor with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get vendor by ID %d: %w", id, err)
	}
	return &vendor, nil
}

// GetByDomain retrieves a single vendor by its domain from the database.
func (r *GORMVendorRepository) GetByDomain(ctx context.Context, domain string) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "domain = ?", domain).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("vendor with domain %s: %w", domain, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get vendor by domain %s: %w", domain, err)
	}
	return &vendor, nil
}

// Create creates a new vendor in the database.
func (r *GORMVendorRepository) Create(ctx context.Context, vendor *models.Vendor) error {
	if err := r.db.WithContext(ctx).Create(vendor).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("vendor with domain %s: %w", vendor.Domain, ErrDuplicate)
		}
		return fmt.Errorf("failed to create vendor: %w", err)
	}
	return nil
}

// Update writes every column of an existing vendor. Unlike Save it never
// inserts a row that has disappeared.
func (r *GORMVendorRepository) Update(ctx context.Context, vendor *models.Vendor) error {
	res := r.db.WithContext(ctx).Model(vendor).Select("*").Updates(vendor)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return fmt.Errorf("vendor with domain %s: %w", vendor.Domain, ErrDuplicate)
		}
		return fmt.Errorf("failed to update vendor: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("vendor with ID %d: %w", vendor.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a vendor by its ID from the database.
func (r *GORMVendorRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Vendor{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete vendor: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("vendor with ID %d: %w", id, ErrNotFound)
	}
	return nil
}

// ToggleMonitoring flips the monitored flag in a single statement.
func (r *GORMVendorRepository) ToggleMonitoring(ctx context.Context, id uint) (*models.Vendor, error) {
	res := r.db.WithContext(ctx).Model(&models.Vendor{}).Where("id = ?", id).UpdateColumns(map[string]any{
		"monitored":  gorm.Expr("NOT monitored"),
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to toggle monitoring for vendor %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("vendor with ID %d: %w", id, ErrNotFound)
	}
	return r.GetByID(ctx, id)
}
