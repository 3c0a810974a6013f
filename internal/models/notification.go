package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification описывает пользовательское уведомление, порождаемое переходами
// жизненного цикла бронирования. Ядро только дописывает строки; доставку
// выполняет внешняя поверхность (HTTP API и WebSocket hub).
type Notification struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	UserID           uuid.UUID  `db:"user_id" json:"user_id"`
	BookingRequestID *uuid.UUID `db:"booking_request_id" json:"booking_request_id,omitempty"`
	Type             string     `db:"type" json:"type"`
	Title            string     `db:"title" json:"title"`
	Message          string     `db:"message" json:"message"`
	IsRead           bool       `db:"is_read" json:"is_read"`
	// ScheduledFor заполняется для напоминаний: внешний поллер выбирает
	// строки с наступившим временем и доставляет их.
	ScheduledFor *time.Time `db:"scheduled_for" json:"scheduled_for,omitempty"`
	DeliveredAt  *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
