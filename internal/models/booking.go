package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingRequest является центральным агрегатом: запрос ученика на слот провайдера,
// проходящий через подтверждение, двустороннее завершение и расчёт кредитов.
type BookingRequest struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	AvailabilitySlotID uuid.UUID `db:"availability_slot_id" json:"availability_slot_id"`
	ServiceID          uuid.UUID `db:"service_id" json:"service_id"`
	ProviderID         uuid.UUID `db:"provider_id" json:"provider_id"`
	LearnerID          uuid.UUID `db:"learner_id" json:"learner_id"`

	RequestedStartTime time.Time `db:"requested_start_time" json:"requested_start_time"`
	RequestedEndTime   time.Time `db:"requested_end_time" json:"requested_end_time"`

	Status string `db:"status" json:"status"`

	// CreditsAmount хранит снимок цены услуги на момент создания.
	// CreditsTransferred защищает от повторного перевода: флаг переключается
	// false→true атомарно с изменением балансов в одной транзакции.
	CreditsAmount      int  `db:"credits_amount" json:"credits_amount"`
	CreditsTransferred bool `db:"credits_transferred" json:"credits_transferred"`

	ProviderConfirmed   bool       `db:"provider_confirmed" json:"provider_confirmed"`
	LearnerConfirmed    bool       `db:"learner_confirmed" json:"learner_confirmed"`
	ProviderConfirmedAt *time.Time `db:"provider_confirmed_at" json:"provider_confirmed_at,omitempty"`
	LearnerConfirmedAt  *time.Time `db:"learner_confirmed_at" json:"learner_confirmed_at,omitempty"`

	DisputeStatus   string     `db:"dispute_status" json:"dispute_status"`
	DisputeReason   *string    `db:"dispute_reason" json:"dispute_reason,omitempty"`
	DisputeOpenedBy *uuid.UUID `db:"dispute_opened_by" json:"dispute_opened_by,omitempty"`
	AdminResolution *string    `db:"admin_resolution" json:"admin_resolution,omitempty"`

	MeetingLink   *string `db:"meeting_link" json:"meeting_link,omitempty"`
	LearnerNotes  *string `db:"learner_notes" json:"learner_notes,omitempty"`
	ProviderNotes *string `db:"provider_notes" json:"provider_notes,omitempty"`

	ReviewSubmitted bool `db:"review_submitted" json:"review_submitted"`

	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// IsParticipant проверяет, является ли пользователь стороной бронирования.
func (b *BookingRequest) IsParticipant(userID uuid.UUID) bool {
	return userID == b.ProviderID || userID == b.LearnerID
}

// CanConfirm: подтвердить или отклонить можно только ожидающее бронирование.
func (b *BookingRequest) CanConfirm() bool {
	return b.Status == BookingStatusPending
}

// CanCancel: отмена допустима из pending и confirmed, любой стороной.
func (b *BookingRequest) CanCancel() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// CanConfirmSession проверяет, что сессия подтверждена и её время уже прошло.
func (b *BookingRequest) CanConfirmSession(now time.Time) bool {
	return b.Status == BookingStatusConfirmed && now.After(b.RequestedEndTime)
}

// ReadyToComplete задаёт правило автозавершения: обе стороны подтвердили,
// нет открытого спора, бронирование всё ещё в статусе confirmed.
// Разрешённый спор завершению не мешает.
func (b *BookingRequest) ReadyToComplete() bool {
	return b.ProviderConfirmed &&
		b.LearnerConfirmed &&
		b.DisputeStatus != DisputeStatusOpen &&
		b.Status == BookingStatusConfirmed
}

// ConfirmedBy сообщает, отмечено ли уже подтверждение сессии данной стороной.
func (b *BookingRequest) ConfirmedBy(userID uuid.UUID) bool {
	switch userID {
	case b.ProviderID:
		return b.ProviderConfirmed
	case b.LearnerID:
		return b.LearnerConfirmed
	default:
		return false
	}
}

// IsTerminal сообщает, достигло ли бронирование терминального статуса.
func (b *BookingRequest) IsTerminal() bool {
	_, ok := TerminalBookingStatuses[b.Status]
	return ok
}

// Review описывает отзыв ученика о провайдере по завершённому бронированию.
// На одно бронирование допускается не более одного отзыва (уникальность
// по booking_request_id обеспечивается ограничением в базе).
type Review struct {
	ID               uuid.UUID `db:"id" json:"id"`
	BookingRequestID uuid.UUID `db:"booking_request_id" json:"booking_request_id"`
	ServiceID        uuid.UUID `db:"service_id" json:"service_id"`
	ReviewerID       uuid.UUID `db:"reviewer_id" json:"reviewer_id"`
	RevieweeID       uuid.UUID `db:"reviewee_id" json:"reviewee_id"`
	Rating           int       `db:"rating" json:"rating"`
	Comment          *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
