package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/timebank-backend/internal/pkg/apperror"
)

// respondServiceError отвечает клиенту по ошибке сервисного слоя.
// Ошибки таксономии apperror несут свой HTTP статус; всё остальное
// уходит в централизованный ErrorHandler и маскируется.
func respondServiceError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Message, "code": appErr.Code})
		return
	}

	_ = c.Error(err)
}
