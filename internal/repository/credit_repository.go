package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/timebank-backend/internal/models"
)

// CreditRepository даёт читающий доступ к кредитному журналу и балансам.
// Запись выполняет только расчётный шаг BookingRepository и стартовый бонус
// при регистрации: других путей изменения баланса нет.
type CreditRepository struct {
	db *sqlx.DB
}

// NewCreditRepository создаёт экземпляр репозитория.
func NewCreditRepository(db *sqlx.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

// GetBalance возвращает текущий баланс тайм-кредитов пользователя.
func (r *CreditRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var credits int
	err := r.db.GetContext(ctx, &credits, `SELECT time_credits FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrProfileNotFound
		}
		return 0, fmt.Errorf("credit repository: get balance %w", err)
	}
	return credits, nil
}

// ListTransactions возвращает историю движений кредитов пользователя.
func (r *CreditRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.CreditTransaction, error) {
	var transactions []models.CreditTransaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT * FROM credit_transactions
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("credit repository: list transactions %w", err)
	}
	return transactions, nil
}
