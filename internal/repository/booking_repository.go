package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/timebank-backend/internal/models"
	"github.com/ignatzorin/timebank-backend/internal/repository/common"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	// ErrInvalidTransition возвращается, когда статусное предусловие перехода
	// не выполнено (например, подтверждение уже отклонённого бронирования).
	ErrInvalidTransition = errors.New("invalid booking transition")
	// ErrSlotTaken возвращается, когда слот уже удержан другим бронированием.
	ErrSlotTaken = errors.New("slot already taken")
	// ErrInsufficientCredits возвращается, когда баланс ученика под блокировкой
	// оказался меньше суммы перевода.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrDisputeAlreadyOpen возвращается при повторном открытии спора.
	ErrDisputeAlreadyOpen = errors.New("dispute already open")
	// ErrDisputeNotOpen возвращается при разрешении несуществующего спора.
	ErrDisputeNotOpen = errors.New("dispute is not open")
)

// BookingRepository реализует переходы жизненного цикла бронирования.
// Каждый переход выполняется одной транзакцией: проверка предусловия под блокировкой
// строки бронирования, изменение агрегата, зависимых сущностей (слот,
// балансы) и добавление уведомлений, в фиксированном порядке.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository создаёт экземпляр репозитория.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create вставляет бронирование в статусе pending и уведомляет провайдера.
// Слот на этом шаге не переключается: он удерживается только подтверждением.
func (r *BookingRepository) Create(ctx context.Context, b *models.BookingRequest, notifications []models.Notification) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO booking_requests (
				availability_slot_id, service_id, provider_id, learner_id,
				requested_start_time, requested_end_time, status, credits_amount, learner_notes
			)
			VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8)
			RETURNING id, status, dispute_status, created_at, updated_at
		`,
			b.AvailabilitySlotID, b.ServiceID, b.ProviderID, b.LearnerID,
			b.RequestedStartTime, b.RequestedEndTime, b.CreditsAmount, b.LearnerNotes,
		).Scan(&b.ID, &b.Status, &b.DisputeStatus, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return fmt.Errorf("booking repository: create %w", err)
		}

		return r.insertNotifications(ctx, tx, b.ID, notifications)
	})
}

// GetByID возвращает бронирование по идентификатору.
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error) {
	return common.GetByID[models.BookingRequest](ctx, r.db, "booking_requests", id, ErrBookingNotFound)
}

// ListByUser возвращает бронирования, где пользователь выступает учеником или провайдером.
func (r *BookingRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BookingRequest, error) {
	var bookings []models.BookingRequest
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT * FROM booking_requests
		WHERE learner_id = $1 OR provider_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("booking repository: list by user %w", err)
	}
	return bookings, nil
}

// ListUpcoming возвращает подтверждённые бронирования пользователя, начало
// которых попадает в окно [from, to]. Чистый запрос вместо внутреннего
// таймера: внешний планировщик или клиент опрашивает его сам.
func (r *BookingRepository) ListUpcoming(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.BookingRequest, error) {
	var bookings []models.BookingRequest
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT * FROM booking_requests
		WHERE (learner_id = $1 OR provider_id = $1)
		  AND status = 'confirmed'
		  AND requested_start_time BETWEEN $2 AND $3
		ORDER BY requested_start_time
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("booking repository: list upcoming %w", err)
	}
	return bookings, nil
}

// Confirm переводит pending → confirmed и удерживает слот. Переключение
// слота выполняется условным UPDATE в той же транзакции: ноль затронутых
// строк означает, что слот успел уйти другому бронированию.
func (r *BookingRepository) Confirm(ctx context.Context, bookingID uuid.UUID, notifications []models.Notification) (*models.BookingRequest, error) {
	var booking *models.BookingRequest
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		locked, err := r.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if locked.Status != models.BookingStatusPending {
			return ErrInvalidTransition
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE availability_slots SET is_available = FALSE
			WHERE id = $1 AND is_available = TRUE
		`, locked.AvailabilitySlotID)
		if err != nil {
			return fmt.Errorf("booking repository: hold slot %w", err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return ErrSlotTaken
		}

		if err := tx.GetContext(ctx, locked, `
			UPDATE booking_requests
			SET status = 'confirmed', confirmed_at = NOW(), updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, bookingID); err != nil {
			return fmt.Errorf("booking repository: confirm %w", err)
		}

		booking = locked
		return r.insertNotifications(ctx, tx, bookingID, notifications)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Decline переводит pending → declined и освобождает слот.
func (r *BookingRepository) Decline(ctx context.Context, bookingID uuid.UUID, notifications []models.Notification) (*models.BookingRequest, error) {
	return r.terminate(ctx, bookingID, notifications,
		[]string{models.BookingStatusPending},
		`UPDATE booking_requests
		 SET status = 'declined', updated_at = NOW()
		 WHERE id = $1
		 RETURNING *`)
}

// Cancel переводит pending|confirmed → cancelled и освобождает слот.
// Отмена доступна любой стороне; право вызова проверяет сервис.
func (r *BookingRepository) Cancel(ctx context.Context, bookingID uuid.UUID, notifications []models.Notification) (*models.BookingRequest, error) {
	return r.terminate(ctx, bookingID, notifications,
		[]string{models.BookingStatusPending, models.BookingStatusConfirmed},
		`UPDATE booking_requests
		 SET status = 'cancelled', cancelled_at = NOW(), meeting_link = NULL, updated_at = NOW()
		 WHERE id = $1
		 RETURNING *`)
}

// terminate реализует общий путь decline/cancel: предусловие под блокировкой,
// смена статуса, возврат слота, уведомления.
func (r *BookingRepository) terminate(ctx context.Context, bookingID uuid.UUID, notifications []models.Notification, fromStatuses []string, updateQuery string) (*models.BookingRequest, error) {
	var booking *models.BookingRequest
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		locked, err := r.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		allowed := false
		for _, s := range fromStatuses {
			if locked.Status == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrInvalidTransition
		}

		// Слот удерживается только подтверждённым бронированием; pending
		// его не держал, и возвращать чужое удержание нельзя.
		heldSlot := locked.Status == models.BookingStatusConfirmed

		if err := tx.GetContext(ctx, locked, updateQuery, bookingID); err != nil {
			return fmt.Errorf("booking repository: terminate %w", err)
		}

		if heldSlot {
			if _, err := tx.ExecContext(ctx, `
				UPDATE availability_slots SET is_available = TRUE WHERE id = $1
			`, locked.AvailabilitySlotID); err != nil {
				return fmt.Errorf("booking repository: release slot %w", err)
			}
		}

		booking = locked
		return r.insertNotifications(ctx, tx, bookingID, notifications)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// ConfirmSession отмечает подтверждение стороны после сессии и, если обе
// стороны подтвердили без открытого спора, атомарно завершает бронирование
// и выполняет перевод кредитов. Правило завершения перепроверяется в той же
// транзакции, что и отметка подтверждения: две одновременные отметки
// сериализуются блокировкой строки бронирования, а флаг credits_transferred
// остаётся последним заслоном от повторного перевода.
func (r *BookingRepository) ConfirmSession(ctx context.Context, bookingID, userID uuid.UUID, confirmNotes, completeNotes []models.Notification) (*models.BookingRequest, error) {
	var booking *models.BookingRequest
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		locked, err := r.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if !locked.CanConfirmSession(time.Now()) {
			return ErrInvalidTransition
		}

		var column, columnAt string
		switch userID {
		case locked.ProviderID:
			column, columnAt = "provider_confirmed", "provider_confirmed_at"
		case locked.LearnerID:
			column, columnAt = "learner_confirmed", "learner_confirmed_at"
		default:
			return ErrBookingNotFound
		}

		// Повторная отметка той же стороной ничего не меняет и не должна
		// ещё раз уведомлять вторую сторону.
		if locked.ConfirmedBy(userID) {
			booking = locked
			return nil
		}

		query := fmt.Sprintf(`
			UPDATE booking_requests
			SET %s = TRUE, %s = COALESCE(%s, NOW()), updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, column, columnAt, columnAt)
		if err := tx.GetContext(ctx, locked, query, bookingID); err != nil {
			return fmt.Errorf("booking repository: confirm session %w", err)
		}

		if err := r.insertNotifications(ctx, tx, bookingID, confirmNotes); err != nil {
			return err
		}

		if locked.ReadyToComplete() {
			if err := r.completeBooking(ctx, tx, locked, completeNotes); err != nil {
				return err
			}
		}

		booking = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// completeBooking завершает подтверждённое бронирование и переводит кредиты.
// Вызывается строго внутри транзакции с заблокированной строкой бронирования,
// когда ReadyToComplete уже истинно.
func (r *BookingRepository) completeBooking(ctx context.Context, tx *sqlx.Tx, locked *models.BookingRequest, completeNotes []models.Notification) error {
	if err := tx.GetContext(ctx, locked, `
		UPDATE booking_requests
		SET status = 'completed', completed_at = NOW(), meeting_link = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING *
	`, locked.ID); err != nil {
		return fmt.Errorf("booking repository: complete %w", err)
	}

	if err := r.transferCredits(ctx, tx, locked); err != nil {
		return err
	}

	return r.insertNotifications(ctx, tx, locked.ID, completeNotes)
}

// transferCredits выполняет единственный перевод кредитов по бронированию.
// Флаг credits_transferred переключается условным UPDATE в той же
// транзакции, что и изменение балансов: ноль затронутых строк означает, что
// перевод уже состоялся, и выходим без движения средств. Балансы блокируются строго в
// порядке user_id, чтобы встречные переводы не взаимоблокировались.
func (r *BookingRepository) transferCredits(ctx context.Context, tx *sqlx.Tx, b *models.BookingRequest) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE booking_requests SET credits_transferred = TRUE
		WHERE id = $1 AND credits_transferred = FALSE
	`, b.ID)
	if err != nil {
		return fmt.Errorf("booking repository: mark transferred %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil
	}
	b.CreditsTransferred = true

	rows, err := tx.QueryxContext(ctx, `
		SELECT user_id, time_credits FROM profiles
		WHERE user_id = ANY($1)
		ORDER BY user_id
		FOR UPDATE
	`, pq.Array([]uuid.UUID{b.LearnerID, b.ProviderID}))
	if err != nil {
		return fmt.Errorf("booking repository: lock profiles %w", err)
	}

	balances := make(map[uuid.UUID]int, 2)
	for rows.Next() {
		var userID uuid.UUID
		var credits int
		if err := rows.Scan(&userID, &credits); err != nil {
			rows.Close()
			return fmt.Errorf("booking repository: scan balance %w", err)
		}
		balances[userID] = credits
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("booking repository: iterate balances %w", err)
	}
	if len(balances) != 2 {
		return ErrProfileNotFound
	}

	// Повторная проверка под блокировкой: ранний неблокирующий чек при
	// создании мог устареть. Недостаток средств откатывает весь переход.
	if balances[b.LearnerID] < b.CreditsAmount {
		return ErrInsufficientCredits
	}

	learnerAfter := balances[b.LearnerID] - b.CreditsAmount
	providerAfter := balances[b.ProviderID] + b.CreditsAmount

	if _, err := tx.ExecContext(ctx, `
		UPDATE profiles SET time_credits = time_credits - $2, updated_at = NOW() WHERE user_id = $1
	`, b.LearnerID, b.CreditsAmount); err != nil {
		return fmt.Errorf("booking repository: debit learner %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE profiles SET time_credits = time_credits + $2, updated_at = NOW() WHERE user_id = $1
	`, b.ProviderID, b.CreditsAmount); err != nil {
		return fmt.Errorf("booking repository: credit provider %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (user_id, booking_request_id, type, amount, balance_after, description)
		VALUES ($1, $2, $3, $4, $5, 'Списание за завершённую сессию'),
		       ($6, $2, $7, $8, $9, 'Начисление за завершённую сессию')
	`,
		b.LearnerID, b.ID, models.CreditTxDebit, -b.CreditsAmount, learnerAfter,
		b.ProviderID, models.CreditTxCredit, b.CreditsAmount, providerAfter,
	); err != nil {
		return fmt.Errorf("booking repository: log transactions %w", err)
	}

	return nil
}

// OpenDispute открывает спор по подтверждённому бронированию. Открытый спор
// блокирует автозавершение до административного разрешения.
func (r *BookingRepository) OpenDispute(ctx context.Context, bookingID, openedBy uuid.UUID, reason string, notifications []models.Notification) (*models.BookingRequest, error) {
	var booking *models.BookingRequest
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		locked, err := r.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if locked.Status != models.BookingStatusConfirmed {
			return ErrInvalidTransition
		}
		if locked.DisputeStatus == models.DisputeStatusOpen {
			return ErrDisputeAlreadyOpen
		}

		if err := tx.GetContext(ctx, locked, `
			UPDATE booking_requests
			SET dispute_status = 'open', dispute_reason = $2, dispute_opened_by = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, bookingID, reason, openedBy); err != nil {
			return fmt.Errorf("booking repository: open dispute %w", err)
		}

		booking = locked
		return r.insertNotifications(ctx, tx, bookingID, notifications)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// ResolveDispute фиксирует административное разрешение спора. Если обе
// стороны успели подтвердить сессию, пока спор был открыт, завершение и
// перевод кредитов выполняются здесь же, в той же транзакции: снятый
// блок не должен требовать от сторон повторных подтверждений.
func (r *BookingRepository) ResolveDispute(ctx context.Context, bookingID uuid.UUID, resolution string, notifications, completeNotes []models.Notification) (*models.BookingRequest, error) {
	var booking *models.BookingRequest
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		locked, err := r.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if locked.DisputeStatus != models.DisputeStatusOpen {
			return ErrDisputeNotOpen
		}

		if err := tx.GetContext(ctx, locked, `
			UPDATE booking_requests
			SET dispute_status = 'resolved', admin_resolution = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, bookingID, resolution); err != nil {
			return fmt.Errorf("booking repository: resolve dispute %w", err)
		}

		if err := r.insertNotifications(ctx, tx, bookingID, notifications); err != nil {
			return err
		}

		if locked.ReadyToComplete() {
			if err := r.completeBooking(ctx, tx, locked, completeNotes); err != nil {
				return err
			}
		}

		booking = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// SetMeetingLink сохраняет ссылку на встречу, полученную от внешнего сервиса.
// Ссылка живёт только у подтверждённого бронирования.
func (r *BookingRepository) SetMeetingLink(ctx context.Context, bookingID uuid.UUID, link string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE booking_requests SET meeting_link = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
	`, bookingID, link)
	if err != nil {
		return fmt.Errorf("booking repository: set meeting link %w", err)
	}
	return nil
}

// lockBooking берёт строку бронирования под блокировку на время транзакции.
func (r *BookingRepository) lockBooking(ctx context.Context, tx *sqlx.Tx, bookingID uuid.UUID) (*models.BookingRequest, error) {
	var b models.BookingRequest
	if err := tx.GetContext(ctx, &b, `SELECT * FROM booking_requests WHERE id = $1 FOR UPDATE`, bookingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("booking repository: lock booking %w", err)
	}
	return &b, nil
}

// insertNotifications дописывает уведомления в рамках транзакции перехода.
func (r *BookingRepository) insertNotifications(ctx context.Context, tx *sqlx.Tx, bookingID uuid.UUID, notifications []models.Notification) error {
	for i := range notifications {
		n := &notifications[i]
		if n.BookingRequestID == nil {
			n.BookingRequestID = &bookingID
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO notifications (user_id, booking_request_id, type, title, message, scheduled_for)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, n.UserID, n.BookingRequestID, n.Type, n.Title, n.Message, n.ScheduledFor); err != nil {
			return fmt.Errorf("booking repository: insert notification %w", err)
		}
	}
	return nil
}
