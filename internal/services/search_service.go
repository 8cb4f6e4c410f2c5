package services

import (
	"context"
	"fmt"
	"strings"

	"vendorrisk/internal/models"
	"vendorrisk/internal/repositories"
)

// SearchService resolves free-text vendor name searches.
type SearchService struct {
	repo repositories.VendorRepository
}

// NewSearchService creates a new SearchService.
func NewSearchService(repo repositories.VendorRepository) *SearchService {
	return &SearchService{repo: repo}
}

// SearchByTitle returns every vendor whose name contains title, ignoring
// case, ordered by name. The result is not paginated.
func (s *SearchService) SearchByTitle(ctx context.Context, title string) ([]models.Vendor, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	vendors, err := s.repo.SearchByName(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("failed to search vendors: %w", err)
	}
	return vendors, nil
}
