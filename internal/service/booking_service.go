package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/timebank-backend/internal/goroutine"
	"github.com/ignatzorin/timebank-backend/internal/logger"
	"github.com/ignatzorin/timebank-backend/internal/models"
	"github.com/ignatzorin/timebank-backend/internal/pkg/apperror"
	"github.com/ignatzorin/timebank-backend/internal/repository"
	"github.com/ignatzorin/timebank-backend/internal/validation"
)

// BookingRepository описывает взаимодействие сервиса с хранилищем бронирований.
type BookingRepository interface {
	Create(ctx context.Context, b *models.BookingRequest, notifications []models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BookingRequest, error)
	ListUpcoming(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.BookingRequest, error)
	Confirm(ctx context.Context, bookingID uuid.UUID, notifications []models.Notification) (*models.BookingRequest, error)
	Decline(ctx context.Context, bookingID uuid.UUID, notifications []models.Notification) (*models.BookingRequest, error)
	Cancel(ctx context.Context, bookingID uuid.UUID, notifications []models.Notification) (*models.BookingRequest, error)
	ConfirmSession(ctx context.Context, bookingID, userID uuid.UUID, confirmNotes, completeNotes []models.Notification) (*models.BookingRequest, error)
	OpenDispute(ctx context.Context, bookingID, openedBy uuid.UUID, reason string, notifications []models.Notification) (*models.BookingRequest, error)
	ResolveDispute(ctx context.Context, bookingID uuid.UUID, resolution string, notifications, completeNotes []models.Notification) (*models.BookingRequest, error)
	SetMeetingLink(ctx context.Context, bookingID uuid.UUID, link string) error
}

// CatalogReader описывает минимальный контракт каталога для бронирований.
type CatalogReader interface {
	GetService(ctx context.Context, id uuid.UUID) (*models.SkillService, error)
	GetSlot(ctx context.Context, id uuid.UUID) (*models.AvailabilitySlot, error)
}

// BalanceReader возвращает баланс тайм-кредитов пользователя.
type BalanceReader interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
}

// MeetingLinkProvider запрашивает ссылки на встречи у внешнего сервиса.
type MeetingLinkProvider interface {
	CreateLink(ctx context.Context, bookingID uuid.UUID) (string, error)
}

// WSNotifier интерфейс для отправки WebSocket уведомлений.
type WSNotifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{}) error
}

// BookingService реализует жизненный цикл бронирования: создание,
// подтверждение/отклонение провайдером, отмену, двустороннее подтверждение
// завершения со спорами и расчёт кредитов через репозиторий.
type BookingService struct {
	repo    BookingRepository
	catalog CatalogReader
	credits BalanceReader
	meeting MeetingLinkProvider
	hub     WSNotifier

	reminderLead  time.Duration
	sessionWindow time.Duration
}

// NewBookingService создаёт сервис бронирований.
func NewBookingService(repo BookingRepository, catalog CatalogReader, credits BalanceReader, meeting MeetingLinkProvider, reminderLead, sessionWindow time.Duration) *BookingService {
	if reminderLead <= 0 {
		reminderLead = time.Hour
	}
	if sessionWindow <= 0 {
		sessionWindow = 15 * time.Minute
	}
	return &BookingService{
		repo:          repo,
		catalog:       catalog,
		credits:       credits,
		meeting:       meeting,
		reminderLead:  reminderLead,
		sessionWindow: sessionWindow,
	}
}

// SetHub устанавливает WebSocket hub для live-доставки уведомлений.
func (s *BookingService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// CreateBookingInput описывает входные данные создания бронирования.
type CreateBookingInput struct {
	AvailabilitySlotID uuid.UUID
	ServiceID          uuid.UUID
	ProviderID         uuid.UUID
	LearnerID          uuid.UUID
	RequestedStartTime time.Time
	RequestedEndTime   time.Time
	LearnerNotes       *string
}

// CreateBooking создаёт бронирование в статусе pending.
// Слот на этом шаге не удерживается; цена услуги фиксируется снимком.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*models.BookingRequest, error) {
	if !in.RequestedEndTime.After(in.RequestedStartTime) {
		return nil, apperror.ErrInvalidTimeRange
	}
	if in.LearnerNotes != nil {
		if err := validation.ValidateLength("заметка к бронированию", *in.LearnerNotes, 0, validation.MaxNotesLength); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}

	slot, err := s.catalog.GetSlot(ctx, in.AvailabilitySlotID)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return nil, apperror.ErrSlotNotFound
		}
		return nil, err
	}

	if slot.ServiceID != in.ServiceID || slot.ProviderID != in.ProviderID {
		return nil, apperror.ErrSlotUnavailable
	}
	if !slot.IsAvailable {
		return nil, apperror.ErrSlotUnavailable
	}
	if in.RequestedStartTime.Before(slot.StartTime) || in.RequestedEndTime.After(slot.EndTime) {
		return nil, apperror.ErrInvalidTimeRange
	}
	if in.LearnerID == in.ProviderID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя бронировать собственную услугу")
	}

	svc, err := s.catalog.GetService(ctx, in.ServiceID)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, err
	}
	if !svc.IsActive {
		return nil, apperror.ErrServiceNotFound
	}

	amount := svc.TotalCost()

	// Неблокирующая проверка баланса. Окончательная проверка выполняется
	// под блокировкой в момент перевода.
	balance, err := s.credits.GetBalance(ctx, in.LearnerID)
	if err != nil {
		return nil, err
	}
	if balance < amount {
		return nil, apperror.ErrInsufficientCredits
	}

	booking := &models.BookingRequest{
		AvailabilitySlotID: in.AvailabilitySlotID,
		ServiceID:          in.ServiceID,
		ProviderID:         in.ProviderID,
		LearnerID:          in.LearnerID,
		RequestedStartTime: in.RequestedStartTime,
		RequestedEndTime:   in.RequestedEndTime,
		CreditsAmount:      amount,
		LearnerNotes:       in.LearnerNotes,
	}

	notifications := []models.Notification{
		note(in.ProviderID, models.NotificationBookingRequested,
			"Новый запрос на бронирование",
			fmt.Sprintf("Вашу услугу «%s» хотят забронировать на %s.", svc.Title, formatTime(in.RequestedStartTime))),
	}

	if err := s.repo.Create(ctx, booking, notifications); err != nil {
		return nil, err
	}

	s.push(booking.ProviderID, "booking.requested", booking)
	return booking, nil
}

// ConfirmBooking выполняет действие провайдера: pending → confirmed.
// Слот удерживается в той же транзакции; ссылка на встречу запрашивается
// после фиксации, её отсутствие не отменяет подтверждение.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID, providerID uuid.UUID) (*models.BookingRequest, error) {
	booking, err := s.getOwnBooking(ctx, bookingID, providerID, true)
	if err != nil {
		return nil, err
	}
	if !booking.CanConfirm() {
		return nil, apperror.ErrInvalidTransition
	}

	notifications := []models.Notification{
		note(booking.LearnerID, models.NotificationBookingConfirmed,
			"Бронирование подтверждено",
			fmt.Sprintf("Провайдер подтвердил вашу сессию на %s.", formatTime(booking.RequestedStartTime))),
		note(booking.ProviderID, models.NotificationBookingConfirmed,
			"Вы подтвердили бронирование",
			fmt.Sprintf("Сессия на %s подтверждена, слот закрыт для других.", formatTime(booking.RequestedStartTime))),
	}
	notifications = append(notifications, s.reminderNotes(booking)...)

	updated, err := s.repo.Confirm(ctx, bookingID, notifications)
	if err != nil {
		return nil, mapBookingErr(err)
	}

	s.requestMeetingLink(updated.ID)
	s.push(updated.LearnerID, "booking.confirmed", updated)
	return updated, nil
}

// DeclineBooking выполняет действие провайдера: pending → declined, слот свободен.
func (s *BookingService) DeclineBooking(ctx context.Context, bookingID, providerID uuid.UUID) (*models.BookingRequest, error) {
	booking, err := s.getOwnBooking(ctx, bookingID, providerID, true)
	if err != nil {
		return nil, err
	}
	if !booking.CanConfirm() {
		return nil, apperror.ErrInvalidTransition
	}

	notifications := []models.Notification{
		note(booking.LearnerID, models.NotificationBookingDeclined,
			"Бронирование отклонено",
			"Провайдер отклонил ваш запрос. Кредиты не списаны, слот снова доступен."),
	}

	updated, err := s.repo.Decline(ctx, bookingID, notifications)
	if err != nil {
		return nil, mapBookingErr(err)
	}

	s.push(updated.LearnerID, "booking.declined", updated)
	return updated, nil
}

// CancelBooking отменяет бронирование любой стороной из pending или confirmed.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID) (*models.BookingRequest, error) {
	booking, err := s.getOwnBooking(ctx, bookingID, userID, false)
	if err != nil {
		return nil, err
	}
	if !booking.CanCancel() {
		return nil, apperror.ErrInvalidTransition
	}

	notifications := []models.Notification{
		note(booking.LearnerID, models.NotificationBookingCancelled,
			"Бронирование отменено",
			fmt.Sprintf("Сессия на %s отменена.", formatTime(booking.RequestedStartTime))),
		note(booking.ProviderID, models.NotificationBookingCancelled,
			"Бронирование отменено",
			fmt.Sprintf("Сессия на %s отменена, слот снова доступен.", formatTime(booking.RequestedStartTime))),
	}

	updated, err := s.repo.Cancel(ctx, bookingID, notifications)
	if err != nil {
		return nil, mapBookingErr(err)
	}

	other := updated.ProviderID
	if userID == updated.ProviderID {
		other = updated.LearnerID
	}
	s.push(other, "booking.cancelled", updated)
	return updated, nil
}

// ConfirmSession отмечает подтверждение стороной завершения прошедшей сессии.
// Когда подтверждения сходятся без открытого спора, репозиторий атомарно
// завершает бронирование и переводит кредиты.
func (s *BookingService) ConfirmSession(ctx context.Context, bookingID, userID uuid.UUID) (*models.BookingRequest, error) {
	booking, err := s.getOwnBooking(ctx, bookingID, userID, false)
	if err != nil {
		return nil, err
	}
	if !booking.CanConfirmSession(time.Now()) {
		return nil, apperror.ErrInvalidTransition
	}
	// Повторное подтверждение той же стороной ничего не меняет и не должно
	// ещё раз уведомлять вторую сторону.
	if booking.ConfirmedBy(userID) {
		return booking, nil
	}

	other := booking.ProviderID
	if userID == booking.ProviderID {
		other = booking.LearnerID
	}

	confirmNotes := []models.Notification{
		note(other, models.NotificationSessionConfirmed,
			"Сторона подтвердила сессию",
			"Вторая сторона подтвердила, что сессия состоялась. Подтвердите и вы, чтобы завершить обмен."),
	}
	updated, err := s.repo.ConfirmSession(ctx, bookingID, userID, confirmNotes, completionNotes(booking))
	if err != nil {
		return nil, mapBookingErr(err)
	}

	s.push(other, "booking.session_confirmed", updated)
	s.pushCompleted(updated)
	return updated, nil
}

// completionNotes собирает уведомления сторонам о завершении обмена.
// Репозиторий сохраняет их только если завершение действительно произошло.
func completionNotes(b *models.BookingRequest) []models.Notification {
	return []models.Notification{
		note(b.LearnerID, models.NotificationBookingCompleted,
			"Сессия завершена",
			fmt.Sprintf("Обмен завершён, %d кредитов передано провайдеру. Вы можете оставить отзыв.", b.CreditsAmount)),
		note(b.ProviderID, models.NotificationBookingCompleted,
			"Сессия завершена",
			fmt.Sprintf("Обмен завершён, вам начислено %d кредитов.", b.CreditsAmount)),
	}
}

func (s *BookingService) pushCompleted(b *models.BookingRequest) {
	if b.Status != models.BookingStatusCompleted {
		return
	}
	s.push(b.LearnerID, "booking.completed", b)
	s.push(b.ProviderID, "booking.completed", b)
}

// OpenDispute открывает спор: автозавершение блокируется до разрешения.
func (s *BookingService) OpenDispute(ctx context.Context, bookingID, userID uuid.UUID, reason string) (*models.BookingRequest, error) {
	reason = strings.TrimSpace(reason)
	if err := validation.ValidateNonEmpty("причина спора", reason); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("причина спора", reason, 0, validation.MaxDisputeReasonLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	booking, err := s.getOwnBooking(ctx, bookingID, userID, false)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, apperror.ErrInvalidTransition
	}

	other := booking.ProviderID
	if userID == booking.ProviderID {
		other = booking.LearnerID
	}

	notifications := []models.Notification{
		note(other, models.NotificationDisputeOpened,
			"Открыт спор по бронированию",
			"Вторая сторона открыла спор. Перевод кредитов приостановлен до разрешения."),
	}

	updated, err := s.repo.OpenDispute(ctx, bookingID, userID, reason, notifications)
	if err != nil {
		return nil, mapBookingErr(err)
	}

	s.push(other, "booking.dispute_opened", updated)
	return updated, nil
}

// ResolveDispute выполняет административное разрешение спора. Право вызова
// (роль admin) проверяет HTTP слой. Если обе стороны уже подтвердили сессию,
// разрешение спора сразу завершает бронирование.
func (s *BookingService) ResolveDispute(ctx context.Context, bookingID uuid.UUID, resolution string) (*models.BookingRequest, error) {
	resolution = strings.TrimSpace(resolution)
	if err := validation.ValidateNonEmpty("резолюция", resolution); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapBookingErr(err)
	}

	notifications := []models.Notification{
		note(booking.LearnerID, models.NotificationDisputeResolved,
			"Спор разрешён", "Администратор разрешил спор по вашему бронированию."),
		note(booking.ProviderID, models.NotificationDisputeResolved,
			"Спор разрешён", "Администратор разрешил спор по вашему бронированию."),
	}

	updated, err := s.repo.ResolveDispute(ctx, bookingID, resolution, notifications, completionNotes(booking))
	if err != nil {
		return nil, mapBookingErr(err)
	}

	s.push(updated.LearnerID, "booking.dispute_resolved", updated)
	s.push(updated.ProviderID, "booking.dispute_resolved", updated)
	s.pushCompleted(updated)
	return updated, nil
}

// GetBooking возвращает бронирование участнику.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, userID uuid.UUID) (*models.BookingRequest, error) {
	return s.getOwnBooking(ctx, bookingID, userID, false)
}

// ListMyBookings возвращает бронирования пользователя.
func (s *BookingService) ListMyBookings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BookingRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// UpcomingSessions возвращает подтверждённые сессии пользователя в окне
// [now−Δ, now+Δ]. Таймер живёт у внешнего планировщика, не в ядре.
func (s *BookingService) UpcomingSessions(ctx context.Context, userID uuid.UUID) ([]models.BookingRequest, error) {
	now := time.Now()
	return s.repo.ListUpcoming(ctx, userID, now.Add(-s.sessionWindow), now.Add(s.sessionWindow))
}

// getOwnBooking загружает бронирование и проверяет право стороны.
func (s *BookingService) getOwnBooking(ctx context.Context, bookingID, userID uuid.UUID, providerOnly bool) (*models.BookingRequest, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapBookingErr(err)
	}
	if providerOnly {
		if booking.ProviderID != userID {
			return nil, apperror.ErrForbidden
		}
	} else if !booking.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return booking, nil
}

// reminderNotes планирует напоминания обеим сторонам за reminderLead до начала.
func (s *BookingService) reminderNotes(b *models.BookingRequest) []models.Notification {
	remindAt := b.RequestedStartTime.Add(-s.reminderLead)
	if remindAt.Before(time.Now()) {
		return nil
	}

	message := fmt.Sprintf("Сессия начнётся в %s.", formatTime(b.RequestedStartTime))
	learner := note(b.LearnerID, models.NotificationSessionReminder, "Скоро сессия", message)
	provider := note(b.ProviderID, models.NotificationSessionReminder, "Скоро сессия", message)
	learner.ScheduledFor = &remindAt
	provider.ScheduledFor = &remindAt
	return []models.Notification{learner, provider}
}

// requestMeetingLink получает ссылку на встречу в фоне, best-effort.
func (s *BookingService) requestMeetingLink(bookingID uuid.UUID) {
	if s.meeting == nil {
		return
	}

	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		link, err := s.meeting.CreateLink(ctx, bookingID)
		if err != nil {
			if logger.Log != nil {
				logger.Log.WithError(err).WithField("booking_id", bookingID).
					Warn("не удалось получить ссылку на встречу")
			}
			return
		}

		if err := s.repo.SetMeetingLink(ctx, bookingID, link); err != nil && logger.Log != nil {
			logger.Log.WithError(err).WithField("booking_id", bookingID).
				Error("не удалось сохранить ссылку на встречу")
		}
	})
}

// push отправляет событие в WebSocket hub, если он подключён.
func (s *BookingService) push(userID uuid.UUID, event string, data interface{}) {
	if s.hub == nil {
		return
	}
	if err := s.hub.BroadcastToUser(userID, event, data); err != nil && logger.Log != nil {
		logger.Log.WithError(err).Debug("ws push не доставлен")
	}
}

// note собирает уведомление перехода.
func note(userID uuid.UUID, notifType, title, message string) models.Notification {
	return models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
	}
}

func formatTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// mapBookingErr переводит ошибки хранилища в пользовательскую таксономию.
func mapBookingErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrBookingNotFound):
		return apperror.ErrBookingNotFound
	case errors.Is(err, repository.ErrInvalidTransition):
		return apperror.ErrInvalidTransition
	case errors.Is(err, repository.ErrSlotTaken):
		return apperror.ErrSlotUnavailable
	case errors.Is(err, repository.ErrInsufficientCredits):
		return apperror.ErrInsufficientCredits
	case errors.Is(err, repository.ErrDisputeAlreadyOpen):
		return apperror.New(apperror.ErrCodeConflict, "спор по бронированию уже открыт")
	case errors.Is(err, repository.ErrDisputeNotOpen):
		return apperror.New(apperror.ErrCodeConflict, "спор по бронированию не открыт")
	case errors.Is(err, repository.ErrProfileNotFound):
		return apperror.ErrProfileNotFound
	default:
		return err
	}
}
