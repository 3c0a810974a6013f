package models

// BookingStatus константы статусов бронирования
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusDeclined  = "declined"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

// DisputeStatus константы статусов спора по бронированию
const (
	DisputeStatusNone     = "none"
	DisputeStatusOpen     = "open"
	DisputeStatusResolved = "resolved"
)

// ValidBookingStatuses список валидных статусов бронирования
var ValidBookingStatuses = map[string]struct{}{
	BookingStatusPending:   {},
	BookingStatusConfirmed: {},
	BookingStatusDeclined:  {},
	BookingStatusCancelled: {},
	BookingStatusCompleted: {},
}

// Терминальные статусы: из них нет переходов.
var TerminalBookingStatuses = map[string]struct{}{
	BookingStatusDeclined:  {},
	BookingStatusCancelled: {},
	BookingStatusCompleted: {},
}

// NotificationType константы типов уведомлений
const (
	NotificationBookingRequested = "booking_requested"
	NotificationBookingConfirmed = "booking_confirmed"
	NotificationBookingDeclined  = "booking_declined"
	NotificationBookingCancelled = "booking_cancelled"
	NotificationBookingCompleted = "booking_completed"
	NotificationSessionReminder  = "session_reminder"
	NotificationSessionConfirmed = "session_confirmed"
	NotificationDisputeOpened    = "dispute_opened"
	NotificationDisputeResolved  = "dispute_resolved"
	NotificationReviewReceived   = "review_received"
)

// Типы транзакций кредитного журнала
const (
	CreditTxSignupBonus = "signup_bonus"
	CreditTxDebit       = "session_debit"
	CreditTxCredit      = "session_credit"
)

// Роли пользователей
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)
