package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/timebank-backend/internal/models"
	"github.com/ignatzorin/timebank-backend/internal/pkg/apperror"
	"github.com/ignatzorin/timebank-backend/internal/repository"
)

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	if args.Error(0) == nil {
		review.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByRevieweeID(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]models.Review, error) {
	args := m.Called(ctx, revieweeID, limit, offset)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewRepo) GetAverageRating(ctx context.Context, userID uuid.UUID) (float64, int, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

func (m *mockReviewRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockBookingReader struct {
	mock.Mock
}

func (m *mockBookingReader) GetByID(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingRequest), args.Error(1)
}

func completedBooking(learnerID uuid.UUID) *models.BookingRequest {
	return &models.BookingRequest{
		ID:         uuid.New(),
		ServiceID:  uuid.New(),
		ProviderID: uuid.New(),
		LearnerID:  learnerID,
		Status:     models.BookingStatusCompleted,
	}
}

func TestReviewService_CreateReview_Success(t *testing.T) {
	repo := new(mockReviewRepo)
	bookings := new(mockBookingReader)
	svc := NewReviewService(repo, bookings)
	ctx := context.Background()

	learnerID := uuid.New()
	booking := completedBooking(learnerID)

	bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	repo.On("GetByBookingID", ctx, booking.ID).Return(nil, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)

	comment := "Отличная сессия, всё по делу."
	review, err := svc.CreateReview(ctx, booking.ID, learnerID, 5, &comment)

	assert.NoError(t, err)
	assert.NotNil(t, review)
	assert.Equal(t, booking.ProviderID, review.RevieweeID)
	assert.Equal(t, booking.ServiceID, review.ServiceID)
	assert.Equal(t, 5, review.Rating)
	repo.AssertExpectations(t)
}

type fakeReviewNotifier struct {
	notified []uuid.UUID
	types    []string
}

func (f *fakeReviewNotifier) CreateNotification(ctx context.Context, userID uuid.UUID, notifType, title, message string) (*models.Notification, error) {
	f.notified = append(f.notified, userID)
	f.types = append(f.types, notifType)
	return &models.Notification{ID: uuid.New(), UserID: userID, Type: notifType}, nil
}

func TestReviewService_CreateReview_NotifiesProvider(t *testing.T) {
	repo := new(mockReviewRepo)
	bookings := new(mockBookingReader)
	svc := NewReviewService(repo, bookings)
	notifier := &fakeReviewNotifier{}
	svc.SetNotifier(notifier)
	ctx := context.Background()

	learnerID := uuid.New()
	booking := completedBooking(learnerID)

	bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	repo.On("GetByBookingID", ctx, booking.ID).Return(nil, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)

	_, err := svc.CreateReview(ctx, booking.ID, learnerID, 4, nil)
	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{booking.ProviderID}, notifier.notified)
	assert.Equal(t, []string{models.NotificationReviewReceived}, notifier.types)
}

func TestReviewService_CreateReview_InvalidRating(t *testing.T) {
	svc := NewReviewService(new(mockReviewRepo), new(mockBookingReader))

	for _, rating := range []int{0, -1, 6} {
		_, err := svc.CreateReview(context.Background(), uuid.New(), uuid.New(), rating, nil)
		assert.Error(t, err)
	}
}

func TestReviewService_CreateReview_CommentTooLong(t *testing.T) {
	svc := NewReviewService(new(mockReviewRepo), new(mockBookingReader))

	comment := strings.Repeat("ы", 2001)
	_, err := svc.CreateReview(context.Background(), uuid.New(), uuid.New(), 4, &comment)
	assert.Error(t, err)
}

func TestReviewService_CreateReview_BookingNotCompleted(t *testing.T) {
	repo := new(mockReviewRepo)
	bookings := new(mockBookingReader)
	svc := NewReviewService(repo, bookings)
	ctx := context.Background()

	learnerID := uuid.New()
	booking := completedBooking(learnerID)
	booking.Status = models.BookingStatusConfirmed

	bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)

	_, err := svc.CreateReview(ctx, booking.ID, learnerID, 5, nil)
	assert.ErrorIs(t, err, apperror.ErrNotEligible)
}

func TestReviewService_CreateReview_NotLearner(t *testing.T) {
	repo := new(mockReviewRepo)
	bookings := new(mockBookingReader)
	svc := NewReviewService(repo, bookings)
	ctx := context.Background()

	booking := completedBooking(uuid.New())
	bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)

	// Провайдер не может оставить отзыв о собственной услуге.
	_, err := svc.CreateReview(ctx, booking.ID, booking.ProviderID, 5, nil)
	assert.ErrorIs(t, err, apperror.ErrNotEligible)
}

func TestReviewService_CreateReview_Duplicate(t *testing.T) {
	repo := new(mockReviewRepo)
	bookings := new(mockBookingReader)
	svc := NewReviewService(repo, bookings)
	ctx := context.Background()

	learnerID := uuid.New()
	booking := completedBooking(learnerID)

	bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	repo.On("GetByBookingID", ctx, booking.ID).Return(&models.Review{ID: uuid.New()}, nil)

	_, err := svc.CreateReview(ctx, booking.ID, learnerID, 5, nil)
	assert.ErrorIs(t, err, apperror.ErrDuplicateReview)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReviewService_CreateReview_DuplicateRace(t *testing.T) {
	repo := new(mockReviewRepo)
	bookings := new(mockBookingReader)
	svc := NewReviewService(repo, bookings)
	ctx := context.Background()

	learnerID := uuid.New()
	booking := completedBooking(learnerID)

	bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	repo.On("GetByBookingID", ctx, booking.ID).Return(nil, nil)
	// Гонка двух запросов: уникальный индекс срабатывает на вставке.
	repo.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(repository.ErrDuplicateReview)

	_, err := svc.CreateReview(ctx, booking.ID, learnerID, 5, nil)
	assert.ErrorIs(t, err, apperror.ErrDuplicateReview)
}

func TestReviewService_CanLeaveReview(t *testing.T) {
	repo := new(mockReviewRepo)
	bookings := new(mockBookingReader)
	svc := NewReviewService(repo, bookings)
	ctx := context.Background()

	learnerID := uuid.New()
	booking := completedBooking(learnerID)

	bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	repo.On("GetByBookingID", ctx, booking.ID).Return(nil, nil)

	can, err := svc.CanLeaveReview(ctx, booking.ID, learnerID)
	assert.NoError(t, err)
	assert.True(t, can)

	can, err = svc.CanLeaveReview(ctx, booking.ID, booking.ProviderID)
	assert.NoError(t, err)
	assert.False(t, can)
}

func TestReviewService_DeleteReview_NotFound(t *testing.T) {
	repo := new(mockReviewRepo)
	svc := NewReviewService(repo, new(mockBookingReader))
	ctx := context.Background()
	reviewID := uuid.New()

	repo.On("Delete", ctx, reviewID).Return(repository.ErrReviewNotFound)

	err := svc.DeleteReview(ctx, reviewID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestReviewService_ListUserReviews_DefaultsPagination(t *testing.T) {
	repo := new(mockReviewRepo)
	svc := NewReviewService(repo, new(mockBookingReader))
	ctx := context.Background()
	userID := uuid.New()

	repo.On("ListByRevieweeID", ctx, userID, 20, 0).Return([]models.Review{}, nil)

	_, err := svc.ListUserReviews(ctx, userID, -5, -1)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
