package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/timebank-backend/internal/dto"
	"github.com/ignatzorin/timebank-backend/internal/http/handlers/common"
	"github.com/ignatzorin/timebank-backend/internal/service"
)

// CatalogHandler обслуживает HTTP запросы каталога услуг и слотов доступности.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler создаёт хэндлер.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// CreateService обрабатывает POST /services.
func (h *CatalogHandler) CreateService(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	svc, err := h.catalog.CreateService(c.Request.Context(), userID, service.CreateServiceInput{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		DurationHours:  req.DurationHours,
		CreditsPerHour: req.CreditsPerHour,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, svc)
}

// ListServices обрабатывает GET /services.
func (h *CatalogHandler) ListServices(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	var category *string
	if v := c.Query("category"); v != "" {
		category = &v
	}

	services, err := h.catalog.ListServices(c.Request.Context(), category, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"services": services})
}

// GetService обрабатывает GET /services/:id, включая открытые слоты.
func (h *CatalogHandler) GetService(c *gin.Context) {
	serviceID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	svc, err := h.catalog.GetService(c.Request.Context(), serviceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	slots, err := h.catalog.ListServiceSlots(c.Request.Context(), serviceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewServiceWithSlotsResponse(svc, slots))
}

// ListMyServices обрабатывает GET /services/my.
func (h *CatalogHandler) ListMyServices(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	services, err := h.catalog.ListMyServices(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"services": services})
}

// DeactivateService обрабатывает DELETE /services/:id.
func (h *CatalogHandler) DeactivateService(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	serviceID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.catalog.DeactivateService(c.Request.Context(), serviceID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "услуга снята с публикации"})
}

// CreateSlot обрабатывает POST /slots.
func (h *CatalogHandler) CreateSlot(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		common.RespondBadRequest(c, "service_id некорректен")
		return
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		common.RespondBadRequest(c, "start_time должен быть в формате RFC3339")
		return
	}

	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		common.RespondBadRequest(c, "end_time должен быть в формате RFC3339")
		return
	}

	slot, err := h.catalog.CreateSlot(c.Request.Context(), userID, service.CreateSlotInput{
		ServiceID: serviceID,
		StartTime: startTime,
		EndTime:   endTime,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, slot)
}

// ListMySlots обрабатывает GET /slots/my.
func (h *CatalogHandler) ListMySlots(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	slots, err := h.catalog.ListMySlots(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// DeleteSlot обрабатывает DELETE /slots/:id.
func (h *CatalogHandler) DeleteSlot(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	slotID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.catalog.DeleteSlot(c.Request.Context(), slotID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "слот удалён"})
}
