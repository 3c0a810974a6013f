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
)

// ErrUserNotFound возвращается, когда запись пользователя не найдена.
var ErrUserNotFound = errors.New("user not found")

// ErrSessionNotFound возвращается, когда сессия с таким refresh токеном не найдена.
var ErrSessionNotFound = errors.New("session not found")

// ErrProfileNotFound возвращается, когда профиль не найден.
var ErrProfileNotFound = errors.New("profile not found")

// UserRepository отвечает за работу с таблицами users, profiles и sessions.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя вместе с профилем и стартовым бонусом
// тайм-кредитов. Начисление бонуса и запись в журнал кредитов выполняются
// в одной транзакции с созданием аккаунта.
func (r *UserRepository) Create(ctx context.Context, user *models.User, profile *models.Profile, bonusCredits int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("user repository: begin tx %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowxContext(ctx, `
		INSERT INTO users (email, username, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, created_at, updated_at
	`, user.Email, user.Username, user.PasswordHash, user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return fmt.Errorf("user repository: create user %w", err)
	}

	profile.UserID = user.ID
	profile.TimeCredits = bonusCredits

	if err := tx.QueryRowxContext(ctx, `
		INSERT INTO profiles (user_id, display_name, bio, skills, location, time_credits)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING updated_at
	`, profile.UserID, profile.DisplayName, profile.Bio, pq.Array(profile.Skills), profile.Location, profile.TimeCredits,
	).Scan(&profile.UpdatedAt); err != nil {
		return fmt.Errorf("user repository: create profile %w", err)
	}

	if bonusCredits > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO credit_transactions (user_id, type, amount, balance_after, description)
			VALUES ($1, $2, $3, $3, 'Стартовый бонус за регистрацию')
		`, user.ID, models.CreditTxSignupBonus, bonusCredits); err != nil {
			return fmt.Errorf("user repository: signup bonus transaction %w", err)
		}
	}

	return tx.Commit()
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by email %w", err)
	}
	return &user, nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by id %w", err)
	}
	return &user, nil
}

// GetProfile возвращает профиль пользователя.
func (r *UserRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	query := `
		SELECT user_id, display_name, bio, skills, location, photo_id,
		       time_credits, rating, total_reviews, updated_at
		FROM profiles WHERE user_id = $1
	`
	var profile models.Profile
	var skills pq.StringArray

	if err := r.db.QueryRowxContext(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.DisplayName,
		&profile.Bio,
		&skills,
		&profile.Location,
		&profile.PhotoID,
		&profile.TimeCredits,
		&profile.Rating,
		&profile.TotalReviews,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("user repository: get profile %w", err)
	}

	profile.Skills = []string(skills)
	return &profile, nil
}

// UpdateProfile обновляет публичные поля профиля. Баланс кредитов, рейтинг и
// счётчик отзывов недоступны для прямого изменения пользователем.
func (r *UserRepository) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	query := `
		UPDATE profiles
		SET display_name = $2,
			bio = $3,
			skills = $4,
			location = $5,
			photo_id = $6,
			updated_at = NOW()
		WHERE user_id = $1
		RETURNING time_credits, rating, total_reviews, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		profile.UserID,
		profile.DisplayName,
		profile.Bio,
		pq.Array(profile.Skills),
		profile.Location,
		profile.PhotoID,
	).Scan(&profile.TimeCredits, &profile.Rating, &profile.TotalReviews, &profile.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("user repository: update profile %w", err)
	}

	return nil
}

// UpdateLastLoginAt обновляет отметку последнего входа.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("user repository: update last login %w", err)
	}
	return nil
}

// CreateSession сохраняет refresh сессию.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		session.UserID, session.RefreshToken, session.UserAgent, session.IPAddress, session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("user repository: create session %w", err)
	}
	return nil
}

// GetSessionByToken возвращает сессию по refresh токену.
func (r *UserRepository) GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	var session models.Session
	err := r.db.GetContext(ctx, &session, `SELECT * FROM sessions WHERE refresh_token = $1`, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("user repository: get session %w", err)
	}
	return &session, nil
}

// DeleteSession удаляет сессию по refresh токену.
func (r *UserRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, refreshToken)
	if err != nil {
		return fmt.Errorf("user repository: delete session %w", err)
	}
	return nil
}

// DeleteExpiredSessions удаляет просроченные сессии пользователя.
func (r *UserRepository) DeleteExpiredSessions(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1 AND expires_at < NOW()`, userID)
	if err != nil {
		return fmt.Errorf("user repository: delete expired sessions %w", err)
	}
	return nil
}
