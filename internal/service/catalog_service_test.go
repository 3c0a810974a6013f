package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/timebank-backend/internal/models"
	"github.com/ignatzorin/timebank-backend/internal/pkg/apperror"
	"github.com/ignatzorin/timebank-backend/internal/repository"
)

type mockCatalogRepo struct {
	mock.Mock
}

func (m *mockCatalogRepo) CreateService(ctx context.Context, svc *models.SkillService) error {
	args := m.Called(ctx, svc)
	if args.Error(0) == nil {
		svc.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockCatalogRepo) GetService(ctx context.Context, id uuid.UUID) (*models.SkillService, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SkillService), args.Error(1)
}

func (m *mockCatalogRepo) ListServices(ctx context.Context, category *string, limit, offset int) ([]models.SkillService, error) {
	args := m.Called(ctx, category, limit, offset)
	return args.Get(0).([]models.SkillService), args.Error(1)
}

func (m *mockCatalogRepo) ListProviderServices(ctx context.Context, providerID uuid.UUID) ([]models.SkillService, error) {
	args := m.Called(ctx, providerID)
	return args.Get(0).([]models.SkillService), args.Error(1)
}

func (m *mockCatalogRepo) DeactivateService(ctx context.Context, id, providerID uuid.UUID) error {
	args := m.Called(ctx, id, providerID)
	return args.Error(0)
}

func (m *mockCatalogRepo) CreateSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	args := m.Called(ctx, slot)
	if args.Error(0) == nil {
		slot.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockCatalogRepo) GetSlot(ctx context.Context, id uuid.UUID) (*models.AvailabilitySlot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AvailabilitySlot), args.Error(1)
}

func (m *mockCatalogRepo) ListServiceSlots(ctx context.Context, serviceID uuid.UUID, from time.Time) ([]models.AvailabilitySlot, error) {
	args := m.Called(ctx, serviceID, from)
	return args.Get(0).([]models.AvailabilitySlot), args.Error(1)
}

func (m *mockCatalogRepo) ListProviderSlots(ctx context.Context, providerID uuid.UUID) ([]models.AvailabilitySlot, error) {
	args := m.Called(ctx, providerID)
	return args.Get(0).([]models.AvailabilitySlot), args.Error(1)
}

func (m *mockCatalogRepo) DeleteSlot(ctx context.Context, id, providerID uuid.UUID) error {
	args := m.Called(ctx, id, providerID)
	return args.Error(0)
}

func TestCatalogService_CreateService_Success(t *testing.T) {
	repo := new(mockCatalogRepo)
	svc := NewCatalogService(repo)
	providerID := uuid.New()

	repo.On("CreateService", mock.Anything, mock.AnythingOfType("*models.SkillService")).Return(nil)

	created, err := svc.CreateService(context.Background(), providerID, CreateServiceInput{
		Title:          "Разговорный испанский",
		DurationHours:  1,
		CreditsPerHour: 4,
	})

	assert.NoError(t, err)
	assert.Equal(t, providerID, created.ProviderID)
	assert.True(t, created.IsActive)
	repo.AssertExpectations(t)
}

func TestCatalogService_CreateService_InvalidPricing(t *testing.T) {
	svc := NewCatalogService(new(mockCatalogRepo))
	ctx := context.Background()
	providerID := uuid.New()

	cases := []CreateServiceInput{
		{Title: "Услуга", DurationHours: 0, CreditsPerHour: 4},
		{Title: "Услуга", DurationHours: 13, CreditsPerHour: 4},
		{Title: "Услуга", DurationHours: 2, CreditsPerHour: 0},
		{Title: "Услуга", DurationHours: 2, CreditsPerHour: 101},
		{Title: "", DurationHours: 2, CreditsPerHour: 4},
	}
	for _, in := range cases {
		_, err := svc.CreateService(ctx, providerID, in)
		assert.Error(t, err)
	}
}

func TestCatalogService_CreateSlot_Success(t *testing.T) {
	repo := new(mockCatalogRepo)
	svc := NewCatalogService(repo)
	ctx := context.Background()
	providerID := uuid.New()
	serviceID := uuid.New()

	repo.On("GetService", ctx, serviceID).Return(&models.SkillService{
		ID:         serviceID,
		ProviderID: providerID,
	}, nil)
	repo.On("CreateSlot", ctx, mock.AnythingOfType("*models.AvailabilitySlot")).Return(nil)

	start := time.Now().Add(24 * time.Hour)
	slot, err := svc.CreateSlot(ctx, providerID, CreateSlotInput{
		ServiceID: serviceID,
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
	})

	assert.NoError(t, err)
	assert.True(t, slot.IsAvailable)
	assert.Equal(t, providerID, slot.ProviderID)
}

func TestCatalogService_CreateSlot_InPast(t *testing.T) {
	svc := NewCatalogService(new(mockCatalogRepo))

	start := time.Now().Add(-time.Hour)
	_, err := svc.CreateSlot(context.Background(), uuid.New(), CreateSlotInput{
		ServiceID: uuid.New(),
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
	})
	assert.Error(t, err)
}

func TestCatalogService_CreateSlot_ForeignService(t *testing.T) {
	repo := new(mockCatalogRepo)
	svc := NewCatalogService(repo)
	ctx := context.Background()
	serviceID := uuid.New()

	repo.On("GetService", ctx, serviceID).Return(&models.SkillService{
		ID:         serviceID,
		ProviderID: uuid.New(),
	}, nil)

	start := time.Now().Add(24 * time.Hour)
	_, err := svc.CreateSlot(ctx, uuid.New(), CreateSlotInput{
		ServiceID: serviceID,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "CreateSlot", mock.Anything, mock.Anything)
}

func TestCatalogService_DeleteSlot_Booked(t *testing.T) {
	repo := new(mockCatalogRepo)
	svc := NewCatalogService(repo)
	ctx := context.Background()
	slotID := uuid.New()
	providerID := uuid.New()

	repo.On("DeleteSlot", ctx, slotID, providerID).Return(repository.ErrSlotBooked)

	err := svc.DeleteSlot(ctx, slotID, providerID)
	assert.True(t, apperror.IsConflict(err))
}

func TestCatalogService_ListServices_ClampsPagination(t *testing.T) {
	repo := new(mockCatalogRepo)
	svc := NewCatalogService(repo)
	ctx := context.Background()

	repo.On("ListServices", ctx, (*string)(nil), 20, 0).Return([]models.SkillService{}, nil)

	_, err := svc.ListServices(ctx, nil, 500, -3)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
