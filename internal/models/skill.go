package models

import (
	"time"

	"github.com/google/uuid"
)

// SkillService описывает услугу, которую участник предлагает за тайм-кредиты.
// Цена бронирования фиксируется в момент его создания (TotalCost),
// так что последующее изменение тарифа не задевает уже созданные бронирования.
type SkillService struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ProviderID     uuid.UUID `db:"provider_id" json:"provider_id"`
	Title          string    `db:"title" json:"title"`
	Description    *string   `db:"description" json:"description,omitempty"`
	Category       *string   `db:"category" json:"category,omitempty"`
	DurationHours  int       `db:"duration_hours" json:"duration_hours"`
	CreditsPerHour int       `db:"credits_per_hour" json:"credits_per_hour"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// TotalCost возвращает каноническую цену одного бронирования услуги.
func (s *SkillService) TotalCost() int {
	return s.DurationHours * s.CreditsPerHour
}

// AvailabilitySlot описывает временное окно, открытое провайдером для бронирования.
// IsAvailable сбрасывается в false синхронно с подтверждением бронирования
// и возвращается в true при отклонении или отмене.
type AvailabilitySlot struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ProviderID  uuid.UUID `db:"provider_id" json:"provider_id"`
	ServiceID   uuid.UUID `db:"service_id" json:"service_id"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	EndTime     time.Time `db:"end_time" json:"end_time"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
