package vendorquery

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPagination computes the metadata for page of size limit over total
// rows. The page is reported as requested, even when it lies past the end.
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// OutOfRange reports whether the page lies past the last page. Page 1 is
// never out of range, even for an empty result set.
func (p Pagination) OutOfRange() bool {
	return p.Page > 1 && p.Page > p.TotalPages
}
