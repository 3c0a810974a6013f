package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/timebank-backend/internal/models"
	"github.com/ignatzorin/timebank-backend/internal/repository/common"
)

var (
	ErrReviewNotFound = errors.New("review not found")
	// ErrDuplicateReview возвращается при нарушении уникальности по
	// booking_request_id: именно ограничение базы, а не проверка приложения,
	// разрешает гонку двух одновременных отзывов в пользу одного.
	ErrDuplicateReview = errors.New("review already exists for booking")
)

// uniqueViolation содержит код ошибки PostgreSQL unique_violation.
const uniqueViolation = "23505"

// ReviewRepository отвечает за отзывы и агрегат рейтинга профиля.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository создаёт экземпляр репозитория.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create в одной транзакции вставляет отзыв, помечает бронирование и
// пересчитывает агрегат рейтинга получателя. Агрегат считается заново
// как AVG/COUNT по всем отзывам, а не инкрементально: полный пересчёт не
// накапливает дрейф от округления и пропущенных декрементов.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO reviews (booking_request_id, service_id, reviewer_id, reviewee_id, rating, comment)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`,
			review.BookingRequestID, review.ServiceID, review.ReviewerID, review.RevieweeID,
			review.Rating, review.Comment,
		).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return ErrDuplicateReview
			}
			return fmt.Errorf("review repository: create %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE booking_requests SET review_submitted = TRUE, updated_at = NOW() WHERE id = $1
		`, review.BookingRequestID); err != nil {
			return fmt.Errorf("review repository: mark booking %w", err)
		}

		return r.recalculateRating(ctx, tx, review.RevieweeID)
	})
}

// Delete удаляет отзыв и пересчитывает агрегат получателя.
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var revieweeID uuid.UUID
		err := tx.GetContext(ctx, &revieweeID, `DELETE FROM reviews WHERE id = $1 RETURNING reviewee_id`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrReviewNotFound
			}
			return fmt.Errorf("review repository: delete %w", err)
		}
		return r.recalculateRating(ctx, tx, revieweeID)
	})
}

// recalculateRating обновляет rating/total_reviews профиля полным пересчётом.
func (r *ReviewRepository) recalculateRating(ctx context.Context, tx *sqlx.Tx, revieweeID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE profiles
		SET rating = agg.avg_rating,
			total_reviews = agg.cnt,
			updated_at = NOW()
		FROM (
			SELECT COALESCE(AVG(rating), 0) AS avg_rating, COUNT(*) AS cnt
			FROM reviews WHERE reviewee_id = $1
		) AS agg
		WHERE user_id = $1
	`, revieweeID); err != nil {
		return fmt.Errorf("review repository: recalculate rating %w", err)
	}
	return nil
}

// GetByID возвращает отзыв по идентификатору.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	return common.GetByID[models.Review](ctx, r.db, "reviews", id, ErrReviewNotFound)
}

// GetByBookingID возвращает отзыв по бронированию, nil если его ещё нет.
func (r *ReviewRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.GetContext(ctx, &review, `SELECT * FROM reviews WHERE booking_request_id = $1`, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("review repository: get by booking %w", err)
	}
	return &review, nil
}

// ListByRevieweeID возвращает отзывы о пользователе.
func (r *ReviewRepository) ListByRevieweeID(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.SelectContext(ctx, &reviews, `
		SELECT * FROM reviews WHERE reviewee_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, revieweeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("review repository: list by reviewee %w", err)
	}
	return reviews, nil
}

// GetAverageRating возвращает средний рейтинг и количество отзывов.
func (r *ReviewRepository) GetAverageRating(ctx context.Context, userID uuid.UUID) (float64, int, error) {
	var result struct {
		Avg   sql.NullFloat64 `db:"avg"`
		Count int             `db:"count"`
	}
	err := r.db.GetContext(ctx, &result, `
		SELECT COALESCE(AVG(rating), 0) as avg, COUNT(*) as count FROM reviews WHERE reviewee_id = $1
	`, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("review repository: get average rating %w", err)
	}
	return result.Avg.Float64, result.Count, nil
}
