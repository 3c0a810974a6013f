package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/timebank-backend/internal/models"
	"github.com/ignatzorin/timebank-backend/internal/pkg/apperror"
	"github.com/ignatzorin/timebank-backend/internal/repository"
	"github.com/ignatzorin/timebank-backend/internal/validation"
)

// CatalogRepository описывает хранилище каталога услуг и слотов.
type CatalogRepository interface {
	CreateService(ctx context.Context, svc *models.SkillService) error
	GetService(ctx context.Context, id uuid.UUID) (*models.SkillService, error)
	ListServices(ctx context.Context, category *string, limit, offset int) ([]models.SkillService, error)
	ListProviderServices(ctx context.Context, providerID uuid.UUID) ([]models.SkillService, error)
	DeactivateService(ctx context.Context, id, providerID uuid.UUID) error
	CreateSlot(ctx context.Context, slot *models.AvailabilitySlot) error
	GetSlot(ctx context.Context, id uuid.UUID) (*models.AvailabilitySlot, error)
	ListServiceSlots(ctx context.Context, serviceID uuid.UUID, from time.Time) ([]models.AvailabilitySlot, error)
	ListProviderSlots(ctx context.Context, providerID uuid.UUID) ([]models.AvailabilitySlot, error)
	DeleteSlot(ctx context.Context, id, providerID uuid.UUID) error
}

// CatalogService управляет услугами участников и их слотами доступности.
type CatalogService struct {
	repo CatalogRepository
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(repo CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// CreateServiceInput содержит входные данные публикации услуги.
type CreateServiceInput struct {
	Title          string
	Description    *string
	Category       *string
	DurationHours  int
	CreditsPerHour int
}

// CreateService публикует услугу провайдера.
func (s *CatalogService) CreateService(ctx context.Context, providerID uuid.UUID, in CreateServiceInput) (*models.SkillService, error) {
	if err := validation.ValidateServiceTitle(in.Title); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateServicePricing(in.DurationHours, in.CreditsPerHour); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if in.Description != nil {
		if err := validation.ValidateLength("описание услуги", *in.Description, 0, validation.MaxServiceDescLength); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}

	svc := &models.SkillService{
		ProviderID:     providerID,
		Title:          in.Title,
		Description:    in.Description,
		Category:       in.Category,
		DurationHours:  in.DurationHours,
		CreditsPerHour: in.CreditsPerHour,
		IsActive:       true,
	}

	if err := s.repo.CreateService(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// GetService возвращает услугу по ID.
func (s *CatalogService) GetService(ctx context.Context, id uuid.UUID) (*models.SkillService, error) {
	svc, err := s.repo.GetService(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, err
	}
	return svc, nil
}

// ListServices возвращает активные услуги каталога.
func (s *CatalogService) ListServices(ctx context.Context, category *string, limit, offset int) ([]models.SkillService, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListServices(ctx, category, limit, offset)
}

// ListMyServices возвращает услуги провайдера, включая деактивированные.
func (s *CatalogService) ListMyServices(ctx context.Context, providerID uuid.UUID) ([]models.SkillService, error) {
	return s.repo.ListProviderServices(ctx, providerID)
}

// DeactivateService снимает услугу с публикации. Запись не удаляется:
// на неё ссылаются исторические бронирования.
func (s *CatalogService) DeactivateService(ctx context.Context, id, providerID uuid.UUID) error {
	if err := s.repo.DeactivateService(ctx, id, providerID); err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return apperror.ErrServiceNotFound
		}
		return err
	}
	return nil
}

// CreateSlotInput содержит входные данные слота доступности.
type CreateSlotInput struct {
	ServiceID uuid.UUID
	StartTime time.Time
	EndTime   time.Time
}

// CreateSlot открывает окно доступности для услуги провайдера.
func (s *CatalogService) CreateSlot(ctx context.Context, providerID uuid.UUID, in CreateSlotInput) (*models.AvailabilitySlot, error) {
	if !in.EndTime.After(in.StartTime) {
		return nil, apperror.ErrInvalidTimeRange
	}
	if in.StartTime.Before(time.Now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "слот не может начинаться в прошлом")
	}

	svc, err := s.repo.GetService(ctx, in.ServiceID)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, err
	}
	if svc.ProviderID != providerID {
		return nil, apperror.ErrForbidden
	}

	slot := &models.AvailabilitySlot{
		ProviderID:  providerID,
		ServiceID:   in.ServiceID,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		IsAvailable: true,
	}

	if err := s.repo.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// ListServiceSlots возвращает будущие слоты услуги.
func (s *CatalogService) ListServiceSlots(ctx context.Context, serviceID uuid.UUID) ([]models.AvailabilitySlot, error) {
	return s.repo.ListServiceSlots(ctx, serviceID, time.Now())
}

// ListMySlots возвращает слоты провайдера.
func (s *CatalogService) ListMySlots(ctx context.Context, providerID uuid.UUID) ([]models.AvailabilitySlot, error) {
	return s.repo.ListProviderSlots(ctx, providerID)
}

// DeleteSlot удаляет слот, если по нему нет активных бронирований.
func (s *CatalogService) DeleteSlot(ctx context.Context, id, providerID uuid.UUID) error {
	if err := s.repo.DeleteSlot(ctx, id, providerID); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotNotFound):
			return apperror.ErrSlotNotFound
		case errors.Is(err, repository.ErrSlotBooked):
			return apperror.New(apperror.ErrCodeConflict, "по слоту есть активные бронирования")
		default:
			return err
		}
	}
	return nil
}
