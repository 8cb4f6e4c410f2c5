package vendorquery

import (
	"slices"
	"sort"
	"strings"

	"vendorrisk/internal/models"
)

// Matches reports whether v satisfies the search, status and monitored
// conditions of f. It mirrors the SQL predicate built by the repository.
func (f Filter) Matches(v models.Vendor) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(v.Name), needle) &&
			!strings.Contains(strings.ToLower(v.Domain), needle) &&
			!slices.Contains(v.Categories, f.Search) {
			return false
		}
	}
	if f.Status != nil && v.Status != *f.Status {
		return false
	}
	if f.Monitored != nil && v.Monitored != *f.Monitored {
		return false
	}
	return true
}

// Apply filters, orders and slices an in-memory vendor list the same way the
// database listing does. The input slice is not modified.
func Apply(vendors []models.Vendor, f Filter) ([]models.Vendor, Pagination) {
	matched := make([]models.Vendor, 0, len(vendors))
	for _, v := range vendors {
		if f.Matches(v) {
			matched = append(matched, v)
		}
	}
	Sort(matched, f.SortBy, f.SortOrder)

	pagination := NewPagination(f.Page, f.Limit, int64(len(matched)))
	start := min(max(f.Offset(), 0), len(matched))
	end := min(start+f.Limit, len(matched))
	return matched[start:end], pagination
}

// Sort orders vendors in place by key, breaking ties by id in the same
// direction.
func Sort(vendors []models.Vendor, key SortKey, order SortOrder) {
	desc := order == Descending
	sort.SliceStable(vendors, func(i, j int) bool {
		c := compare(vendors[i], vendors[j], key)
		if c == 0 {
			c = cmpOrdered(vendors[i].ID, vendors[j].ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compare(a, b models.Vendor, key SortKey) int {
	switch key {
	case SortByName:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case SortByDomain:
		return strings.Compare(strings.ToLower(a.Domain), strings.ToLower(b.Domain))
	case SortByRating:
		return cmpOrdered(a.Rating, b.Rating)
	case SortByTrend:
		return cmpOrdered(a.Trend, b.Trend)
	case SortByStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case SortByLastAssessed:
		return a.LastAssessed.Compare(b.LastAssessed)
	case SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func cmpOrdered[T int | uint](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// SearchByName returns the vendors whose name contains title, ignoring
// case, ordered by name ascending.
func SearchByName(vendors []models.Vendor, title string) []models.Vendor {
	needle := strings.ToLower(strings.TrimSpace(title))
	out := make([]models.Vendor, 0)
	for _, v := range vendors {
		if strings.Contains(strings.ToLower(v.Name), needle) {
			out = append(out, v)
		}
	}
	Sort(out, SortByName, Ascending)
	return out
}
