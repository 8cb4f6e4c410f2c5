package services_test

import (
	"context"
	"errors"
	"testing"

	"vendorrisk/internal/models"
	"vendorrisk/internal/repositories"
	"vendorrisk/internal/services"
	"vendorrisk/internal/vendorquery"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestVendorService_List(t *testing.T) {
	mockRepo := new(MockVendorRepository)
	service := services.NewVendorService(mockRepo, nil, zap.NewNop())

	f := vendorquery.Default()
	f.Page = 2
	f.Limit = 2
	rows := []models.Vendor{{ID: 3, Name: "Warpspeed"}, {ID: 2, Name: "Stack3d Lab"}}
	mockRepo.On("List", mock.Anything, f).Return(rows, int64(5), nil).Once()

	page, err := service.List(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, rows, page.Vendors)
	assert.Equal(t, vendorquery.Pagination{Page: 2, Limit: 2, Total: 5, TotalPages: 3, HasNext: true, HasPrev: true}, page.Pagination)
	mockRepo.AssertExpectations(t)
}

func TestVendorService_ListRejectsInvalidFilter(t *testing.T) {
	mockRepo := new(MockVendorRepository)
	service := services.NewVendorService(mockRepo, nil, zap.NewNop())

	f := vendorquery.Default()
	f.Limit = 500
	_, err := service.List(context.Background(), f)
	var fe vendorquery.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "limit")
	mockRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestVendorService_CreateAppliesDefaults(t *testing.T) {
	mockRepo := new(MockVendorRepository)
	mockEvents := new(MockPublisher)
	service := services.NewVendorService(mockRepo, mockEvents, zap.NewNop())

	mockRepo.On("GetByDomain", mock.Anything, "acme.com").Return(nil, notFound("vendor")).Once()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Vendor")).
		Run(func(args mock.Arguments) { args.Get(1).(*models.Vendor).ID = 11 }).
		Return(nil).Once()
	mockEvents.On("Publish", mock.Anything, services.EventVendorCreated, mock.AnythingOfType("services.VendorEvent")).Return(nil).Once()

	vendor, err := service.Create(context.Background(), services.CreateVendorInput{
		Name:       "acme",
		Domain:     " ACME.com ",
		Rating:     80,
		Categories: []string{"A", "B", "C"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint(11), vendor.ID)
	assert.Equal(t, "acme.com", vendor.Domain)
	assert.Equal(t, "A", vendor.Logo)
	assert.Equal(t, services.DefaultLogoColor, vendor.LogoColor)
	assert.Equal(t, models.VendorActive, vendor.Status)
	assert.True(t, vendor.TrendUp)
	assert.False(t, vendor.LastAssessed.IsZero())
	assert.False(t, vendor.Monitored)
	assert.Equal(t, 1, vendor.ExtraCategories)
	mockRepo.AssertExpectations(t)
	mockEvents.AssertExpectations(t)
}

func TestVendorService_CreateValidation(t *testing.T) {
	mockRepo := new(MockVendorRepository)
	service := services.NewVendorService(mockRepo, nil, zap.NewNop())

	_, err := service.Create(context.Background(), services.CreateVendorInput{
		Name:   "  ",
		Rating: 101,
		Status: "Pending",
	})
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "is required", verr.Fields["name"])
	assert.Equal(t, "is required", verr.Fields["domain"])
	assert.Equal(t, "must be at most 100", verr.Fields["rating"])
	assert.Contains(t, verr.Fields, "status")
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestVendorService_CreateDuplicateDomain(t *testing.T) {
	mockRepo := new(MockVendorRepository)
	service := services.NewVendorService(mockRepo, nil, zap.NewNop())
	ctx := context.Background()
	in := services.CreateVendorInput{Name: "Acme", Domain: "acme.com"}

	mockRepo.On("GetByDomain", mock.Anything, "acme.com").Return(&models.Vendor{ID: 1}, nil).Once()
	_, err := service.Create(ctx, in)
	assert.ErrorIs(t, err, services.ErrDomainTaken)

	mockRepo.On("GetByDomain", mock.Anything, "acme.com").Return(nil, notFound("vendor")).Once()
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(repositories.ErrDuplicate).Once()
	_, err = service.Create(ctx, in)
	assert.ErrorIs(t, err, services.ErrDomainTaken)
	mockRepo.AssertExpectations(t)
}

func TestVendorService_UpdateIsPartial(t *testing.T) {
	mockRepo := new(MockVendorRepository)
	service := services.NewVendorService(mockRepo, nil, zap.NewNop())

	existing := &models.Vendor{
		ID: 4, Name: "Sisyphus", Domain: "sisyphus.com", Rating: 91, Status: models.VendorActive,
		Categories: []string{"Customer data"}, Monitored: true, TrendUp: true,
	}
	mockRepo.On("GetByID", mock.Anything, uint(4)).Return(existing, nil).Once()
	mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.Vendor")).Return(nil).Once()

	rating := 40
	categories := []string{"A", "B", "C", "D"}
	vendor, err := service.Update(context.Background(), 4, services.UpdateVendorInput{
		Rating:     &rating,
		Categories: &categories,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, vendor.Rating)
	assert.Equal(t, categories, vendor.Categories)
	assert.Equal(t, 2, vendor.ExtraCategories)
	assert.Equal(t, "Sisyphus", vendor.Name)
	assert.Equal(t, "sisyphus.com", vendor.Domain)
	assert.True(t, vendor.Monitored)
	mockRepo.AssertExpectations(t)
}

func TestVendorService_UpdateErrors(t *testing.T) {
	mockRepo := new(MockVendorRepository)
	service := services.NewVendorService(mockRepo, nil, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("GetByID", mock.Anything, uint(99)).Return(nil, notFound("vendor")).Once()
	_, err := service.Update(ctx, 99, services.UpdateVendorInput{})
	assert.ErrorIs(t, err, services.ErrVendorNotFound)

	domain := "taken.com"
	mockRepo.On("GetByID", mock.Anything, uint(1)).Return(&models.Vendor{ID: 1, Domain: "mine.com"}, nil).Once()
	mockRepo.On("GetByDomain", mock.Anything, "taken.com").Return(&models.Vendor{ID: 2}, nil).Once()
	_, err = service.Update(ctx, 1, services.UpdateVendorInput{Domain: &domain})
	assert.ErrorIs(t, err, services.ErrDomainTaken)

	bad := -1
	_, err = service.Update(ctx, 1, services.UpdateVendorInput{Rating: &bad})
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be at least 0", verr.Fields["rating"])
	mockRepo.AssertExpectations(t)
}

func TestVendorService_DeleteAndToggle(t *testing.T) {
	mockRepo := new(MockVendorRepository)
	mockEvents := new(MockPublisher)
	service := services.NewVendorService(mockRepo, mockEvents, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("Delete", mock.Anything, uint(5)).Return(nil).Once()
	mockEvents.On("Publish", mock.Anything, services.EventVendorDeleted, mock.Anything).Return(nil).Once()
	require.NoError(t, service.Delete(ctx, 5))

	mockRepo.On("Delete", mock.Anything, uint(6)).Return(notFound("vendor")).Once()
	assert.ErrorIs(t, service.Delete(ctx, 6), services.ErrVendorNotFound)

	mockRepo.On("ToggleMonitoring", mock.Anything, uint(3)).Return(&models.Vendor{ID: 3, Monitored: true}, nil).Once()
	// a broker failure does not fail the request
	mockEvents.On("Publish", mock.Anything, services.EventVendorMonitoringToggled, mock.Anything).Return(errors.New("channel closed")).Once()
	vendor, err := service.ToggleMonitoring(ctx, 3)
	require.NoError(t, err)
	assert.True(t, vendor.Monitored)

	mockRepo.On("ToggleMonitoring", mock.Anything, uint(8)).Return(nil, notFound("vendor")).Once()
	_, err = service.ToggleMonitoring(ctx, 8)
	assert.ErrorIs(t, err, services.ErrVendorNotFound)

	mockRepo.AssertExpectations(t)
	mockEvents.AssertExpectations(t)
}
