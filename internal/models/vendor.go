package models

import (
	"time"

	"gorm.io/gorm"
)

// VendorStatus is the lifecycle state of a vendor.
type VendorStatus string

const (
	VendorActive   VendorStatus = "Active"
	VendorInactive VendorStatus = "Inactive"
)

// Valid reports whether s is one of the known statuses.
func (s VendorStatus) Valid() bool {
	return s == VendorActive || s == VendorInactive
}

// VisibleCategories is how many category labels the dashboard renders inline.
const VisibleCategories = 2

// Vendor represents a third-party entity tracked for security-risk monitoring.
type Vendor struct {
	ID              uint         `json:"id" gorm:"primaryKey"`
	Name            string       `json:"name" gorm:"type:varchar(255);not null;index"`
	Domain          string       `json:"domain" gorm:"uniqueIndex;type:varchar(255);not null"`
	Logo            string       `json:"logo" gorm:"type:varchar(255)"`
	LogoColor       string       `json:"logoColor" gorm:"type:varchar(100)"`
	Rating          int          `json:"rating" gorm:"not null;default:0"`
	Trend           int          `json:"trend" gorm:"not null;default:0"`
	TrendUp         bool         `json:"trendUp" gorm:"not null"`
	LastAssessed    time.Time    `json:"lastAssessed"`
	Status          VendorStatus `json:"status" gorm:"type:varchar(20);not null;default:'Active';index"`
	Categories      []string     `json:"categories" gorm:"type:text;serializer:json"`
	ExtraCategories int          `json:"extraCategories" gorm:"not null;default:0"`
	Monitored       bool         `json:"monitored" gorm:"not null;default:false;index"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// TableName pins the table name independent of GORM's pluralizer.
func (Vendor) TableName() string {
	return "vendors"
}

// ExtraCategoryCount returns how many categories do not fit inline.
func ExtraCategoryCount(categories []string) int {
	return max(0, len(categories)-VisibleCategories)
}

// RecomputeExtraCategories refreshes the derived ExtraCategories field.
func (v *Vendor) RecomputeExtraCategories() {
	if v.Categories == nil {
		v.Categories = []string{}
	}
	v.ExtraCategories = ExtraCategoryCount(v.Categories)
}

// BeforeSave keeps ExtraCategories derived on every create and save.
func (v *Vendor) BeforeSave(tx *gorm.DB) error {
	v.RecomputeExtraCategories()
	return nil
}
