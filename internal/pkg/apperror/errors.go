package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeConflict
}

var (
	// Ошибки жизненного цикла бронирования.
	ErrInvalidTimeRange    = New(ErrCodeValidation, "время окончания должно быть позже времени начала")
	ErrSlotUnavailable     = New(ErrCodeConflict, "слот недоступен для бронирования")
	ErrInsufficientCredits = New(ErrCodeConflict, "недостаточно кредитов на балансе")
	ErrInvalidTransition   = New(ErrCodeConflict, "бронирование находится в недопустимом статусе для этой операции")

	// Ошибки отзывов.
	ErrNotEligible     = New(ErrCodeForbidden, "отзыв может оставить только ученик завершённого бронирования")
	ErrDuplicateReview = New(ErrCodeConflict, "отзыв на это бронирование уже существует")

	// Общие ошибки.
	ErrBookingNotFound = New(ErrCodeNotFound, "бронирование не найдено")
	ErrSlotNotFound    = New(ErrCodeNotFound, "слот не найден")
	ErrServiceNotFound = New(ErrCodeNotFound, "услуга не найдена")
	ErrProfileNotFound = New(ErrCodeNotFound, "профиль не найден")
	ErrUserNotFound    = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized    = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden       = New(ErrCodeForbidden, "недостаточно прав")

	// Внешний сервис ссылок на встречи: его отказ не блокирует подтверждение.
	ErrExternalServiceUnavailable = New(ErrCodeUnavailable, "внешний сервис временно недоступен")
)
