package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditTransaction описывает строку журнала движения тайм-кредитов.
// Журнал только дописывается: каждая запись создаётся в той же транзакции,
// что и изменение баланса, которое она описывает.
type CreditTransaction struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	UserID           uuid.UUID  `db:"user_id" json:"user_id"`
	BookingRequestID *uuid.UUID `db:"booking_request_id" json:"booking_request_id,omitempty"`
	Type             string     `db:"type" json:"type"`
	Amount           int        `db:"amount" json:"amount"`
	BalanceAfter     int        `db:"balance_after" json:"balance_after"`
	Description      *string    `db:"description" json:"description,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}
