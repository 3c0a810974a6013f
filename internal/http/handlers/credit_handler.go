package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/timebank-backend/internal/dto"
	"github.com/ignatzorin/timebank-backend/internal/http/handlers/common"
	"github.com/ignatzorin/timebank-backend/internal/repository"
)

// CreditHandler отдаёт читающие ручки тайм-кредитов: баланс и журнал
// транзакций. Движение кредитов выполняют только переходы бронирований.
type CreditHandler struct {
	credits *repository.CreditRepository
}

// NewCreditHandler создаёт хэндлер.
func NewCreditHandler(credits *repository.CreditRepository) *CreditHandler {
	return &CreditHandler{credits: credits}
}

// GetBalance обрабатывает GET /credits/balance.
func (h *CreditHandler) GetBalance(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	balance, err := h.credits.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{
		UserID:  userID.String(),
		Balance: balance,
	})
}

// ListTransactions обрабатывает GET /credits/transactions.
func (h *CreditHandler) ListTransactions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	transactions, err := h.credits.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
