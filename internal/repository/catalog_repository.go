package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/timebank-backend/internal/models"
	"github.com/ignatzorin/timebank-backend/internal/repository/common"
)

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrSlotNotFound    = errors.New("slot not found")
	// ErrSlotBooked возвращается при попытке удалить занятый слот.
	ErrSlotBooked = errors.New("slot is booked")
)

// CatalogRepository отвечает за каталог услуг и слоты доступности.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository создаёт экземпляр репозитория.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// CreateService создаёт услугу провайдера.
func (r *CatalogRepository) CreateService(ctx context.Context, svc *models.SkillService) error {
	query := `
		INSERT INTO skill_services (provider_id, title, description, category, duration_hours, credits_per_hour)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_active, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		svc.ProviderID, svc.Title, svc.Description, svc.Category, svc.DurationHours, svc.CreditsPerHour,
	).Scan(&svc.ID, &svc.IsActive, &svc.CreatedAt, &svc.UpdatedAt); err != nil {
		return fmt.Errorf("catalog repository: create service %w", err)
	}
	return nil
}

// GetService возвращает услугу по идентификатору.
func (r *CatalogRepository) GetService(ctx context.Context, id uuid.UUID) (*models.SkillService, error) {
	return common.GetByID[models.SkillService](ctx, r.db, "skill_services", id, ErrServiceNotFound)
}

// ListServices возвращает активные услуги с пагинацией, опционально по категории.
func (r *CatalogRepository) ListServices(ctx context.Context, category *string, limit, offset int) ([]models.SkillService, error) {
	query := `SELECT * FROM skill_services WHERE is_active = TRUE`
	args := []interface{}{}
	argIndex := 1

	if category != nil && *category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, *category)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	var services []models.SkillService
	if err := r.db.SelectContext(ctx, &services, query, args...); err != nil {
		return nil, fmt.Errorf("catalog repository: list services %w", err)
	}
	return services, nil
}

// ListProviderServices возвращает услуги конкретного провайдера.
func (r *CatalogRepository) ListProviderServices(ctx context.Context, providerID uuid.UUID) ([]models.SkillService, error) {
	var services []models.SkillService
	err := r.db.SelectContext(ctx, &services, `
		SELECT * FROM skill_services WHERE provider_id = $1 ORDER BY created_at DESC
	`, providerID)
	if err != nil {
		return nil, fmt.Errorf("catalog repository: list provider services %w", err)
	}
	return services, nil
}

// DeactivateService отключает услугу. Строка не удаляется: на неё могут
// ссылаться уже созданные бронирования.
func (r *CatalogRepository) DeactivateService(ctx context.Context, id, providerID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE skill_services SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND provider_id = $2
	`, id, providerID)
	if err != nil {
		return fmt.Errorf("catalog repository: deactivate service %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// CreateSlot создаёт слот доступности для услуги провайдера.
func (r *CatalogRepository) CreateSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	query := `
		INSERT INTO availability_slots (provider_id, service_id, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_available, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		slot.ProviderID, slot.ServiceID, slot.StartTime, slot.EndTime,
	).Scan(&slot.ID, &slot.IsAvailable, &slot.CreatedAt); err != nil {
		return fmt.Errorf("catalog repository: create slot %w", err)
	}
	return nil
}

// GetSlot возвращает слот по идентификатору.
func (r *CatalogRepository) GetSlot(ctx context.Context, id uuid.UUID) (*models.AvailabilitySlot, error) {
	return common.GetByID[models.AvailabilitySlot](ctx, r.db, "availability_slots", id, ErrSlotNotFound)
}

// ListServiceSlots возвращает свободные будущие слоты услуги.
func (r *CatalogRepository) ListServiceSlots(ctx context.Context, serviceID uuid.UUID, from time.Time) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := r.db.SelectContext(ctx, &slots, `
		SELECT * FROM availability_slots
		WHERE service_id = $1 AND is_available = TRUE AND start_time >= $2
		ORDER BY start_time
	`, serviceID, from)
	if err != nil {
		return nil, fmt.Errorf("catalog repository: list service slots %w", err)
	}
	return slots, nil
}

// ListProviderSlots возвращает все слоты провайдера.
func (r *CatalogRepository) ListProviderSlots(ctx context.Context, providerID uuid.UUID) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := r.db.SelectContext(ctx, &slots, `
		SELECT * FROM availability_slots WHERE provider_id = $1 ORDER BY start_time
	`, providerID)
	if err != nil {
		return nil, fmt.Errorf("catalog repository: list provider slots %w", err)
	}
	return slots, nil
}

// DeleteSlot удаляет свободный слот провайдера. Слот, удерживаемый
// подтверждённым бронированием, удалить нельзя.
func (r *CatalogRepository) DeleteSlot(ctx context.Context, id, providerID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM availability_slots
		WHERE id = $1 AND provider_id = $2 AND is_available = TRUE
		  AND NOT EXISTS (
			SELECT 1 FROM booking_requests
			WHERE availability_slot_id = $1 AND status IN ('pending', 'confirmed')
		  )
	`, id, providerID)
	if err != nil {
		return fmt.Errorf("catalog repository: delete slot %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		// Различаем отсутствие слота и занятый слот.
		var exists bool
		checkErr := r.db.GetContext(ctx, &exists, `
			SELECT EXISTS (SELECT 1 FROM availability_slots WHERE id = $1 AND provider_id = $2)
		`, id, providerID)
		if checkErr != nil && !errors.Is(checkErr, sql.ErrNoRows) {
			return fmt.Errorf("catalog repository: delete slot check %w", checkErr)
		}
		if exists {
			return ErrSlotBooked
		}
		return ErrSlotNotFound
	}
	return nil
}
