package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/timebank-backend/internal/models"
	"github.com/ignatzorin/timebank-backend/internal/pkg/apperror"
	"github.com/ignatzorin/timebank-backend/internal/repository"
)

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) Create(ctx context.Context, b *models.BookingRequest, notifications []models.Notification) error {
	args := m.Called(ctx, b, notifications)
	if args.Error(0) == nil {
		b.ID = uuid.New()
		b.Status = models.BookingStatusPending
	}
	return args.Error(0)
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingRequest), args.Error(1)
}

func (m *mockBookingRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BookingRequest, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.BookingRequest), args.Error(1)
}

func (m *mockBookingRepo) ListUpcoming(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.BookingRequest, error) {
	args := m.Called(ctx, userID, from, to)
	return args.Get(0).([]models.BookingRequest), args.Error(1)
}

func (m *mockBookingRepo) Confirm(ctx context.Context, bookingID uuid.UUID, notifications []models.Notification) (*models.BookingRequest, error) {
	args := m.Called(ctx, bookingID, notifications)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingRequest), args.Error(1)
}

func (m *mockBookingRepo) Decline(ctx context.Context, bookingID uuid.UUID, notifications []models.Notification) (*models.BookingRequest, error) {
	args := m.Called(ctx, bookingID, notifications)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingRequest), args.Error(1)
}

func (m *mockBookingRepo) Cancel(ctx context.Context, bookingID uuid.UUID, notifications []models.Notification) (*models.BookingRequest, error) {
	args := m.Called(ctx, bookingID, notifications)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingRequest), args.Error(1)
}

func (m *mockBookingRepo) ConfirmSession(ctx context.Context, bookingID, userID uuid.UUID, confirmNotes, completeNotes []models.Notification) (*models.BookingRequest, error) {
	args := m.Called(ctx, bookingID, userID, confirmNotes, completeNotes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingRequest), args.Error(1)
}

func (m *mockBookingRepo) OpenDispute(ctx context.Context, bookingID, openedBy uuid.UUID, reason string, notifications []models.Notification) (*models.BookingRequest, error) {
	args := m.Called(ctx, bookingID, openedBy, reason, notifications)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingRequest), args.Error(1)
}

func (m *mockBookingRepo) ResolveDispute(ctx context.Context, bookingID uuid.UUID, resolution string, notifications, completeNotes []models.Notification) (*models.BookingRequest, error) {
	args := m.Called(ctx, bookingID, resolution, notifications, completeNotes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingRequest), args.Error(1)
}

func (m *mockBookingRepo) SetMeetingLink(ctx context.Context, bookingID uuid.UUID, link string) error {
	args := m.Called(ctx, bookingID, link)
	return args.Error(0)
}

type mockCatalogReader struct {
	mock.Mock
}

func (m *mockCatalogReader) GetService(ctx context.Context, id uuid.UUID) (*models.SkillService, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SkillService), args.Error(1)
}

func (m *mockCatalogReader) GetSlot(ctx context.Context, id uuid.UUID) (*models.AvailabilitySlot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AvailabilitySlot), args.Error(1)
}

type mockBalanceReader struct {
	mock.Mock
}

func (m *mockBalanceReader) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type bookingFixture struct {
	repo    *mockBookingRepo
	catalog *mockCatalogReader
	credits *mockBalanceReader
	svc     *BookingService

	providerID uuid.UUID
	learnerID  uuid.UUID
	serviceID  uuid.UUID
	slotID     uuid.UUID
	slot       *models.AvailabilitySlot
	skill      *models.SkillService
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	f := &bookingFixture{
		repo:       new(mockBookingRepo),
		catalog:    new(mockCatalogReader),
		credits:    new(mockBalanceReader),
		providerID: uuid.New(),
		learnerID:  uuid.New(),
		serviceID:  uuid.New(),
		slotID:     uuid.New(),
	}

	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	f.slot = &models.AvailabilitySlot{
		ID:          f.slotID,
		ProviderID:  f.providerID,
		ServiceID:   f.serviceID,
		StartTime:   start,
		EndTime:     start.Add(4 * time.Hour),
		IsAvailable: true,
	}
	f.skill = &models.SkillService{
		ID:             f.serviceID,
		ProviderID:     f.providerID,
		Title:          "Уроки гитары",
		DurationHours:  2,
		CreditsPerHour: 3,
		IsActive:       true,
	}

	f.svc = NewBookingService(f.repo, f.catalog, f.credits, nil, time.Hour, 15*time.Minute)
	return f
}

func (f *bookingFixture) createInput() CreateBookingInput {
	return CreateBookingInput{
		AvailabilitySlotID: f.slotID,
		ServiceID:          f.serviceID,
		ProviderID:         f.providerID,
		LearnerID:          f.learnerID,
		RequestedStartTime: f.slot.StartTime,
		RequestedEndTime:   f.slot.StartTime.Add(2 * time.Hour),
	}
}

func TestBookingService_CreateBooking_Success(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	f.catalog.On("GetSlot", ctx, f.slotID).Return(f.slot, nil)
	f.catalog.On("GetService", ctx, f.serviceID).Return(f.skill, nil)
	f.credits.On("GetBalance", ctx, f.learnerID).Return(10, nil)
	f.repo.On("Create", ctx, mock.AnythingOfType("*models.BookingRequest"), mock.Anything).Return(nil)

	booking, err := f.svc.CreateBooking(ctx, f.createInput())

	assert.NoError(t, err)
	assert.NotNil(t, booking)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	// Цена фиксируется снимком: 2 часа по 3 кредита.
	assert.Equal(t, 6, booking.CreditsAmount)
	assert.False(t, booking.CreditsTransferred)
	f.repo.AssertExpectations(t)
}

func TestBookingService_CreateBooking_InvalidTimeRange(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	in := f.createInput()
	in.RequestedEndTime = in.RequestedStartTime

	_, err := f.svc.CreateBooking(ctx, in)
	assert.ErrorIs(t, err, apperror.ErrInvalidTimeRange)
}

func TestBookingService_CreateBooking_WindowOutsideSlot(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	f.catalog.On("GetSlot", ctx, f.slotID).Return(f.slot, nil)

	in := f.createInput()
	in.RequestedEndTime = f.slot.EndTime.Add(time.Hour)

	_, err := f.svc.CreateBooking(ctx, in)
	assert.ErrorIs(t, err, apperror.ErrInvalidTimeRange)
}

func TestBookingService_CreateBooking_SlotUnavailable(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	f.slot.IsAvailable = false
	f.catalog.On("GetSlot", ctx, f.slotID).Return(f.slot, nil)

	_, err := f.svc.CreateBooking(ctx, f.createInput())
	assert.ErrorIs(t, err, apperror.ErrSlotUnavailable)
}

func TestBookingService_CreateBooking_SlotServiceMismatch(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	f.slot.ServiceID = uuid.New()
	f.catalog.On("GetSlot", ctx, f.slotID).Return(f.slot, nil)

	_, err := f.svc.CreateBooking(ctx, f.createInput())
	assert.ErrorIs(t, err, apperror.ErrSlotUnavailable)
}

func TestBookingService_CreateBooking_InsufficientCredits(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	f.catalog.On("GetSlot", ctx, f.slotID).Return(f.slot, nil)
	f.catalog.On("GetService", ctx, f.serviceID).Return(f.skill, nil)
	f.credits.On("GetBalance", ctx, f.learnerID).Return(5, nil)

	_, err := f.svc.CreateBooking(ctx, f.createInput())
	assert.ErrorIs(t, err, apperror.ErrInsufficientCredits)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_CreateBooking_OwnService(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	f.catalog.On("GetSlot", ctx, f.slotID).Return(f.slot, nil)

	in := f.createInput()
	in.LearnerID = f.providerID

	_, err := f.svc.CreateBooking(ctx, in)
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeValidation, appErr.Code)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_ConfirmBooking_ProviderOnly(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	bookingID := uuid.New()

	pending := &models.BookingRequest{
		ID:         bookingID,
		ProviderID: f.providerID,
		LearnerID:  f.learnerID,
		Status:     models.BookingStatusPending,
	}
	f.repo.On("GetByID", ctx, bookingID).Return(pending, nil)

	_, err := f.svc.ConfirmBooking(ctx, bookingID, f.learnerID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestBookingService_ConfirmBooking_Success(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	bookingID := uuid.New()

	start := time.Now().Add(48 * time.Hour)
	pending := &models.BookingRequest{
		ID:                 bookingID,
		ProviderID:         f.providerID,
		LearnerID:          f.learnerID,
		Status:             models.BookingStatusPending,
		RequestedStartTime: start,
		RequestedEndTime:   start.Add(2 * time.Hour),
	}
	confirmed := *pending
	confirmed.Status = models.BookingStatusConfirmed

	f.repo.On("GetByID", ctx, bookingID).Return(pending, nil)
	f.repo.On("Confirm", ctx, bookingID, mock.Anything).Return(&confirmed, nil)

	got, err := f.svc.ConfirmBooking(ctx, bookingID, f.providerID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)

	// Обе стороны уведомляются, плюс два запланированных напоминания.
	notifications := f.repo.Calls[1].Arguments.Get(2).([]models.Notification)
	assert.Len(t, notifications, 4)
	reminders := 0
	for _, n := range notifications {
		if n.Type == models.NotificationSessionReminder {
			reminders++
			assert.NotNil(t, n.ScheduledFor)
			assert.WithinDuration(t, start.Add(-time.Hour), *n.ScheduledFor, time.Second)
		}
	}
	assert.Equal(t, 2, reminders)
}

func TestBookingService_ConfirmBooking_SlotTaken(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	bookingID := uuid.New()

	pending := &models.BookingRequest{
		ID:                 bookingID,
		ProviderID:         f.providerID,
		LearnerID:          f.learnerID,
		Status:             models.BookingStatusPending,
		RequestedStartTime: time.Now().Add(48 * time.Hour),
	}
	f.repo.On("GetByID", ctx, bookingID).Return(pending, nil)
	f.repo.On("Confirm", ctx, bookingID, mock.Anything).Return(nil, repository.ErrSlotTaken)

	_, err := f.svc.ConfirmBooking(ctx, bookingID, f.providerID)
	assert.ErrorIs(t, err, apperror.ErrSlotUnavailable)
}

func TestBookingService_DeclineBooking_AlreadyTerminal(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	bookingID := uuid.New()

	declined := &models.BookingRequest{
		ID:         bookingID,
		ProviderID: f.providerID,
		LearnerID:  f.learnerID,
		Status:     models.BookingStatusDeclined,
	}
	f.repo.On("GetByID", ctx, bookingID).Return(declined, nil)

	_, err := f.svc.DeclineBooking(ctx, bookingID, f.providerID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	f.repo.AssertNotCalled(t, "Decline", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_CancelBooking_Participant(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	bookingID := uuid.New()

	confirmed := &models.BookingRequest{
		ID:         bookingID,
		ProviderID: f.providerID,
		LearnerID:  f.learnerID,
		Status:     models.BookingStatusConfirmed,
	}
	cancelled := *confirmed
	cancelled.Status = models.BookingStatusCancelled

	f.repo.On("GetByID", ctx, bookingID).Return(confirmed, nil)
	f.repo.On("Cancel", ctx, bookingID, mock.Anything).Return(&cancelled, nil)

	got, err := f.svc.CancelBooking(ctx, bookingID, f.learnerID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, got.Status)

	_, err = f.svc.CancelBooking(ctx, bookingID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestBookingService_ConfirmSession_BeforeEndTime(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	bookingID := uuid.New()

	future := &models.BookingRequest{
		ID:                 bookingID,
		ProviderID:         f.providerID,
		LearnerID:          f.learnerID,
		Status:             models.BookingStatusConfirmed,
		RequestedStartTime: time.Now().Add(time.Hour),
		RequestedEndTime:   time.Now().Add(3 * time.Hour),
		DisputeStatus:      models.DisputeStatusNone,
	}
	f.repo.On("GetByID", ctx, bookingID).Return(future, nil)

	_, err := f.svc.ConfirmSession(ctx, bookingID, f.learnerID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	f.repo.AssertNotCalled(t, "ConfirmSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_ConfirmSession_Completes(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	bookingID := uuid.New()

	past := &models.BookingRequest{
		ID:                 bookingID,
		ProviderID:         f.providerID,
		LearnerID:          f.learnerID,
		Status:             models.BookingStatusConfirmed,
		RequestedStartTime: time.Now().Add(-3 * time.Hour),
		RequestedEndTime:   time.Now().Add(-time.Hour),
		DisputeStatus:      models.DisputeStatusNone,
		ProviderConfirmed:  true,
		CreditsAmount:      6,
	}
	completed := *past
	completed.LearnerConfirmed = true
	completed.Status = models.BookingStatusCompleted
	completed.CreditsTransferred = true

	f.repo.On("GetByID", ctx, bookingID).Return(past, nil)
	f.repo.On("ConfirmSession", ctx, bookingID, f.learnerID, mock.Anything, mock.Anything).Return(&completed, nil)

	got, err := f.svc.ConfirmSession(ctx, bookingID, f.learnerID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, got.Status)
	assert.True(t, got.CreditsTransferred)
}

func TestBookingService_ConfirmSession_RepeatIsNoOp(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	bookingID := uuid.New()

	// Сторона уже подтверждала: повторный вызов не трогает хранилище
	// и не рассылает уведомления заново.
	past := &models.BookingRequest{
		ID:               bookingID,
		ProviderID:       f.providerID,
		LearnerID:        f.learnerID,
		Status:           models.BookingStatusConfirmed,
		RequestedEndTime: time.Now().Add(-time.Hour),
		DisputeStatus:    models.DisputeStatusNone,
		LearnerConfirmed: true,
		CreditsAmount:    6,
	}
	f.repo.On("GetByID", ctx, bookingID).Return(past, nil)

	got, err := f.svc.ConfirmSession(ctx, bookingID, f.learnerID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)
	f.repo.AssertNotCalled(t, "ConfirmSession",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_ConfirmSession_InsufficientCreditsAborts(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	bookingID := uuid.New()

	past := &models.BookingRequest{
		ID:                 bookingID,
		ProviderID:         f.providerID,
		LearnerID:          f.learnerID,
		Status:             models.BookingStatusConfirmed,
		RequestedEndTime:   time.Now().Add(-time.Hour),
		DisputeStatus:      models.DisputeStatusNone,
		ProviderConfirmed:  true,
		CreditsAmount:      6,
	}
	f.repo.On("GetByID", ctx, bookingID).Return(past, nil)
	f.repo.On("ConfirmSession", ctx, bookingID, f.learnerID, mock.Anything, mock.Anything).
		Return(nil, repository.ErrInsufficientCredits)

	_, err := f.svc.ConfirmSession(ctx, bookingID, f.learnerID)
	assert.ErrorIs(t, err, apperror.ErrInsufficientCredits)
}

func TestBookingService_OpenDispute_EmptyReason(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenDispute(ctx, uuid.New(), f.learnerID, "   ")
	assert.Error(t, err)
}

func TestBookingService_OpenDispute_OnlyConfirmed(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	bookingID := uuid.New()

	pending := &models.BookingRequest{
		ID:         bookingID,
		ProviderID: f.providerID,
		LearnerID:  f.learnerID,
		Status:     models.BookingStatusPending,
	}
	f.repo.On("GetByID", ctx, bookingID).Return(pending, nil)

	_, err := f.svc.OpenDispute(ctx, bookingID, f.learnerID, "сессия не состоялась")
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestBookingService_ResolveDispute_EmptyResolution(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	_, err := f.svc.ResolveDispute(ctx, uuid.New(), "   ")
	assert.Error(t, err)
	f.repo.AssertNotCalled(t, "ResolveDispute",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_ResolveDispute_CompletesWhenBothConfirmed(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	bookingID := uuid.New()

	// Обе стороны подтвердили сессию, пока спор был открыт: разрешение
	// спора должно завершить бронирование без повторных подтверждений.
	disputed := &models.BookingRequest{
		ID:                bookingID,
		ProviderID:        f.providerID,
		LearnerID:         f.learnerID,
		Status:            models.BookingStatusConfirmed,
		RequestedEndTime:  time.Now().Add(-time.Hour),
		DisputeStatus:     models.DisputeStatusOpen,
		ProviderConfirmed: true,
		LearnerConfirmed:  true,
		CreditsAmount:     6,
	}
	completed := *disputed
	completed.DisputeStatus = models.DisputeStatusResolved
	completed.Status = models.BookingStatusCompleted
	completed.CreditsTransferred = true

	var completeNotes []models.Notification
	f.repo.On("GetByID", ctx, bookingID).Return(disputed, nil)
	f.repo.On("ResolveDispute", ctx, bookingID, "обмен состоялся", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			completeNotes = args.Get(4).([]models.Notification)
		}).
		Return(&completed, nil)

	got, err := f.svc.ResolveDispute(ctx, bookingID, "обмен состоялся")
	assert.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, got.Status)
	assert.True(t, got.CreditsTransferred)
	assert.Len(t, completeNotes, 2)
}

func TestBookingService_ResolveDispute_NotOpen(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	bookingID := uuid.New()

	resolved := &models.BookingRequest{
		ID:            bookingID,
		ProviderID:    f.providerID,
		LearnerID:     f.learnerID,
		Status:        models.BookingStatusConfirmed,
		DisputeStatus: models.DisputeStatusResolved,
	}
	f.repo.On("GetByID", ctx, bookingID).Return(resolved, nil)
	f.repo.On("ResolveDispute", ctx, bookingID, "повторно", mock.Anything, mock.Anything).
		Return(nil, repository.ErrDisputeNotOpen)

	_, err := f.svc.ResolveDispute(ctx, bookingID, "повторно")
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
}

func TestBookingService_UpcomingSessions_Window(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	var gotFrom, gotTo time.Time
	f.repo.On("ListUpcoming", ctx, f.learnerID, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotFrom = args.Get(2).(time.Time)
			gotTo = args.Get(3).(time.Time)
		}).
		Return([]models.BookingRequest{}, nil)

	_, err := f.svc.UpcomingSessions(ctx, f.learnerID)
	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(-15*time.Minute), gotFrom, time.Second)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), gotTo, time.Second)
}

func TestBookingService_ErrorMapping(t *testing.T) {
	assert.ErrorIs(t, mapBookingErr(repository.ErrBookingNotFound), apperror.ErrBookingNotFound)
	assert.ErrorIs(t, mapBookingErr(repository.ErrInvalidTransition), apperror.ErrInvalidTransition)
	assert.ErrorIs(t, mapBookingErr(repository.ErrSlotTaken), apperror.ErrSlotUnavailable)
	assert.ErrorIs(t, mapBookingErr(repository.ErrInsufficientCredits), apperror.ErrInsufficientCredits)

	unknown := errors.New("boom")
	assert.Equal(t, unknown, mapBookingErr(unknown))
}
