package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/timebank-backend/internal/dto"
	"github.com/ignatzorin/timebank-backend/internal/http/handlers/common"
	"github.com/ignatzorin/timebank-backend/internal/models"
	"github.com/ignatzorin/timebank-backend/internal/repository"
	"github.com/ignatzorin/timebank-backend/internal/validation"
)

// ProfileHandler отвечает за работу с профилем.
type ProfileHandler struct {
	users *repository.UserRepository
}

// NewProfileHandler создаёт экземпляр.
func NewProfileHandler(users *repository.UserRepository) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// GetMe возвращает профиль текущего пользователя.
func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	profile, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		common.RespondNotFound(c, "профиль не найден")
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetUser возвращает публичный профиль участника.
func (h *ProfileHandler) GetUser(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	profile, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		common.RespondNotFound(c, "профиль не найден")
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateMe обновляет профиль текущего пользователя.
// Баланс кредитов и рейтинг через этот эндпоинт не изменяются:
// ими управляют расчётный движок и отзывы.
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := validation.ValidateDisplayName(req.DisplayName); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if req.Bio != nil {
		if err := validation.ValidateLength("биография", *req.Bio, 0, validation.MaxBioLength); err != nil {
			common.RespondBadRequest(c, err.Error())
			return
		}
	}

	if req.Location != nil {
		if err := validation.ValidateLength("местоположение", *req.Location, 0, validation.MaxLocationLength); err != nil {
			common.RespondBadRequest(c, err.Error())
			return
		}
	}

	if len(req.Skills) > 0 {
		if err := validation.ValidateSkills(req.Skills); err != nil {
			common.RespondBadRequest(c, err.Error())
			return
		}
	}

	var photoUUID *uuid.UUID
	if req.PhotoID != nil && *req.PhotoID != "" {
		id, err := uuid.Parse(*req.PhotoID)
		if err != nil {
			common.RespondBadRequest(c, "photo_id некорректен")
			return
		}
		photoUUID = &id
	}

	profile := &models.Profile{
		UserID:      userID,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Skills:      req.Skills,
		Location:    req.Location,
		PhotoID:     photoUUID,
	}

	if err := h.users.UpdateProfile(c.Request.Context(), profile); err != nil {
		respondServiceError(c, err)
		return
	}

	updated, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}
