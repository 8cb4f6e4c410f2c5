// Package vendorquery holds the validated vendor listing filter and the
// pagination arithmetic shared by the SQL repository and in-memory listings.
package vendorquery

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"vendorrisk/internal/models"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	MaxPage      = 1_000_000
)

// SortKey is a vendor attribute the listing can be ordered by.
type SortKey string

const (
	SortByName         SortKey = "name"
	SortByDomain       SortKey = "domain"
	SortByRating       SortKey = "rating"
	SortByTrend        SortKey = "trend"
	SortByStatus       SortKey = "status"
	SortByLastAssessed SortKey = "lastAssessed"
	SortByCreatedAt    SortKey = "createdAt"
	SortByUpdatedAt    SortKey = "updatedAt"
)

var sortColumns = map[SortKey]string{
	SortByName:         "name",
	SortByDomain:       "domain",
	SortByRating:       "rating",
	SortByTrend:        "trend",
	SortByStatus:       "status",
	SortByLastAssessed: "last_assessed",
	SortByCreatedAt:    "created_at",
	SortByUpdatedAt:    "updated_at",
}

// Column returns the database column backing the key.
func (k SortKey) Column() string {
	return sortColumns[k]
}

// SortOrder is the listing direction.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Filter is the closed set of listing inputs. Build one with Parse or
// Default; zero values are not valid.
type Filter struct {
	Page      int                  `query:"page" validate:"min=1,max=1000000"`
	Limit     int                  `query:"limit" validate:"min=1,max=100"`
	Search    string               `query:"search" validate:"max=255"`
	Status    *models.VendorStatus `query:"status" validate:"omitempty,oneof=Active Inactive"`
	Monitored *bool                `query:"monitored"`
	SortBy    SortKey              `query:"sortBy" validate:"oneof=name domain rating trend status lastAssessed createdAt updatedAt"`
	SortOrder SortOrder            `query:"sortOrder" validate:"oneof=asc desc"`
}

// Default returns the filter used when no parameters are given.
func Default() Filter {
	return Filter{
		Page:      DefaultPage,
		Limit:     DefaultLimit,
		SortBy:    SortByCreatedAt,
		SortOrder: Descending,
	}
}

// Offset is the number of rows preceding the requested page. It saturates
// at math.MaxInt32 for filters built past MaxPage.
func (f Filter) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	if f.Page-1 > math.MaxInt32/f.Limit {
		return math.MaxInt32
	}
	return (f.Page - 1) * f.Limit
}

// Descending reports whether the listing is ordered high to low.
func (f Filter) Descending() bool {
	return f.SortOrder == Descending
}

// Params carries the raw query string values of a listing request.
type Params struct {
	Page      string `query:"page"`
	Limit     string `query:"limit"`
	Search    string `query:"search"`
	Status    string `query:"status"`
	Monitored string `query:"monitored"`
	SortBy    string `query:"sortBy"`
	SortOrder string `query:"sortOrder"`
}

// FieldErrors maps a query parameter to the reason it was rejected.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e[k]))
	}
	return "invalid listing filter: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("query"); name != "" {
			return name
		}
		return fld.Name
	})
	return v
}

// Parse turns raw parameters into a Filter, applying defaults for absent
// values. Malformed or out-of-range values are returned as FieldErrors.
func Parse(p Params) (Filter, error) {
	f := Default()
	errs := FieldErrors{}

	if s := strings.TrimSpace(p.Page); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			errs["page"] = "must be an integer"
		} else {
			f.Page = n
		}
	}
	if s := strings.TrimSpace(p.Limit); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			errs["limit"] = "must be an integer"
		} else {
			f.Limit = n
		}
	}
	f.Search = strings.TrimSpace(p.Search)
	if s := strings.TrimSpace(p.Status); s != "" {
		status := models.VendorStatus(s)
		f.Status = &status
	}
	if s := strings.TrimSpace(p.Monitored); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			errs["monitored"] = "must be true or false"
		} else {
			f.Monitored = &b
		}
	}
	if s := strings.TrimSpace(p.SortBy); s != "" {
		f.SortBy = SortKey(s)
	}
	if s := strings.ToLower(strings.TrimSpace(p.SortOrder)); s != "" {
		f.SortOrder = SortOrder(s)
	}

	if err := f.Validate(); err != nil {
		var fe FieldErrors
		if errors.As(err, &fe) {
			for k, v := range fe {
				if _, seen := errs[k]; !seen {
					errs[k] = v
				}
			}
		} else {
			return Filter{}, err
		}
	}
	if len(errs) > 0 {
		return Filter{}, errs
	}
	return f, nil
}

// Validate checks the filter bounds and enumerations.
func (f Filter) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate listing filter: %w", err)
	}
	errs := FieldErrors{}
	for _, e := range verrs {
		errs[e.Field()] = describe(e)
	}
	return errs
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
	default:
		return fmt.Sprintf("failed on the '%s' rule", e.Tag())
	}
}
