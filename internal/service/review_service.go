package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ignatzorin/timebank-backend/internal/logger"
	"github.com/ignatzorin/timebank-backend/internal/models"
	"github.com/ignatzorin/timebank-backend/internal/pkg/apperror"
	"github.com/ignatzorin/timebank-backend/internal/repository"
	"github.com/ignatzorin/timebank-backend/internal/validation"
)

// ReviewRepository описывает хранилище отзывов.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Review, error)
	ListByRevieweeID(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]models.Review, error)
	GetAverageRating(ctx context.Context, userID uuid.UUID) (float64, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BookingReaderForReview даёт минимальный доступ к бронированиям для проверки права на отзыв.
type BookingReaderForReview interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error)
}

// ReviewNotifier сохраняет уведомление получателю отзыва.
type ReviewNotifier interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, notifType, title, message string) (*models.Notification, error)
}

// ReviewService управляет отзывами. Право на отзыв имеет только ученик
// завершённого бронирования, один отзыв на бронирование.
type ReviewService struct {
	repo     ReviewRepository
	bookings BookingReaderForReview
	notifier ReviewNotifier
}

// NewReviewService создаёт сервис отзывов.
func NewReviewService(repo ReviewRepository, bookings BookingReaderForReview) *ReviewService {
	return &ReviewService{repo: repo, bookings: bookings}
}

// SetNotifier включает уведомление провайдера о новом отзыве.
func (s *ReviewService) SetNotifier(notifier ReviewNotifier) {
	s.notifier = notifier
}

// CreateReview создаёт отзыв по завершённому бронированию и пересчитывает
// рейтинг провайдера.
func (s *ReviewService) CreateReview(ctx context.Context, bookingID, reviewerID uuid.UUID, rating int, comment *string) (*models.Review, error) {
	if err := validation.ValidateRating(rating); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if comment != nil && utf8.RuneCountInString(*comment) > validation.MaxReviewCommentLength {
		return nil, apperror.New(apperror.ErrCodeValidation, "комментарий слишком длинный")
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, apperror.ErrBookingNotFound
		}
		return nil, err
	}

	if booking.Status != models.BookingStatusCompleted || booking.LearnerID != reviewerID {
		return nil, apperror.ErrNotEligible
	}

	existing, err := s.repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.ErrDuplicateReview
	}

	review := &models.Review{
		BookingRequestID: bookingID,
		ServiceID:        booking.ServiceID,
		ReviewerID:       reviewerID,
		RevieweeID:       booking.ProviderID,
		Rating:           rating,
		Comment:          comment,
	}

	// Уникальность по бронированию окончательно гарантирует ограничение
	// в базе: гонка двух запросов разрешается там.
	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return nil, apperror.ErrDuplicateReview
		}
		return nil, err
	}

	if s.notifier != nil {
		_, err := s.notifier.CreateNotification(ctx, booking.ProviderID, models.NotificationReviewReceived,
			"Новый отзыв", fmt.Sprintf("Вы получили оценку %d по завершённой сессии.", rating))
		if err != nil && logger.Log != nil {
			logger.Log.WithError(err).Warn("review service: уведомление об отзыве не сохранено")
		}
	}

	return review, nil
}

// GetReview возвращает отзыв по ID.
func (s *ReviewService) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "отзыв не найден")
		}
		return nil, err
	}
	return review, nil
}

// ListUserReviews возвращает отзывы о пользователе.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByRevieweeID(ctx, userID, limit, offset)
}

// GetUserRating возвращает средний рейтинг и количество отзывов.
func (s *ReviewService) GetUserRating(ctx context.Context, userID uuid.UUID) (float64, int, error) {
	return s.repo.GetAverageRating(ctx, userID)
}

// DeleteReview удаляет отзыв и пересчитывает рейтинг получателя.
// Модераторское действие; право проверяется на HTTP-слое.
func (s *ReviewService) DeleteReview(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "отзыв не найден")
		}
		return err
	}
	return nil
}

// CanLeaveReview проверяет, может ли пользователь оставить отзыв.
func (s *ReviewService) CanLeaveReview(ctx context.Context, bookingID, userID uuid.UUID) (bool, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return false, nil
	}
	if booking.Status != models.BookingStatusCompleted || booking.LearnerID != userID {
		return false, nil
	}

	existing, err := s.repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return false, err
	}
	return existing == nil, nil
}
