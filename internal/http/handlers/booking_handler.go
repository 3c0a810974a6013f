package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/timebank-backend/internal/dto"
	"github.com/ignatzorin/timebank-backend/internal/http/handlers/common"
	"github.com/ignatzorin/timebank-backend/internal/models"
	"github.com/ignatzorin/timebank-backend/internal/service"
)

// BookingHandler обслуживает HTTP запросы жизненного цикла бронирований.
type BookingHandler struct {
	bookings *service.BookingService
	catalog  *service.CatalogService
}

// NewBookingHandler создаёт хэндлер.
func NewBookingHandler(bookings *service.BookingService, catalog *service.CatalogService) *BookingHandler {
	return &BookingHandler{bookings: bookings, catalog: catalog}
}

// Create обрабатывает POST /bookings.
func (h *BookingHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	slotID, err := uuid.Parse(req.AvailabilitySlotID)
	if err != nil {
		common.RespondBadRequest(c, "availability_slot_id некорректен")
		return
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		common.RespondBadRequest(c, "service_id некорректен")
		return
	}

	startTime, err := time.Parse(time.RFC3339, req.RequestedStartTime)
	if err != nil {
		common.RespondBadRequest(c, "requested_start_time должен быть в формате RFC3339")
		return
	}

	endTime, err := time.Parse(time.RFC3339, req.RequestedEndTime)
	if err != nil {
		common.RespondBadRequest(c, "requested_end_time должен быть в формате RFC3339")
		return
	}

	svc, err := h.catalog.GetService(c.Request.Context(), serviceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	booking, err := h.bookings.CreateBooking(c.Request.Context(), service.CreateBookingInput{
		AvailabilitySlotID: slotID,
		ServiceID:          serviceID,
		ProviderID:         svc.ProviderID,
		LearnerID:          userID,
		RequestedStartTime: startTime,
		RequestedEndTime:   endTime,
		LearnerNotes:       req.LearnerNotes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// Get обрабатывает GET /bookings/:id.
func (h *BookingHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	booking, err := h.bookings.GetBooking(c.Request.Context(), bookingID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// List обрабатывает GET /bookings.
func (h *BookingHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	bookings, err := h.bookings.ListMyBookings(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// Upcoming обрабатывает GET /bookings/upcoming.
func (h *BookingHandler) Upcoming(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	sessions, err := h.bookings.UpcomingSessions(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// Confirm обрабатывает POST /bookings/:id/confirm.
func (h *BookingHandler) Confirm(c *gin.Context) {
	h.transition(c, h.bookings.ConfirmBooking)
}

// Decline обрабатывает POST /bookings/:id/decline.
func (h *BookingHandler) Decline(c *gin.Context) {
	h.transition(c, h.bookings.DeclineBooking)
}

// Cancel обрабатывает POST /bookings/:id/cancel.
func (h *BookingHandler) Cancel(c *gin.Context) {
	h.transition(c, h.bookings.CancelBooking)
}

// ConfirmSession обрабатывает POST /bookings/:id/confirm-session.
func (h *BookingHandler) ConfirmSession(c *gin.Context) {
	h.transition(c, h.bookings.ConfirmSession)
}

// OpenDispute обрабатывает POST /bookings/:id/dispute.
func (h *BookingHandler) OpenDispute(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	booking, err := h.bookings.OpenDispute(c.Request.Context(), bookingID, userID, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ResolveDispute обрабатывает POST /admin/bookings/:id/resolve-dispute.
func (h *BookingHandler) ResolveDispute(c *gin.Context) {
	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	booking, err := h.bookings.ResolveDispute(c.Request.Context(), bookingID, req.Resolution)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// transition выполняет общий шаблон переходов по идентификатору.
func (h *BookingHandler) transition(c *gin.Context, op func(ctx context.Context, bookingID, userID uuid.UUID) (*models.BookingRequest, error)) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bookingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	booking, err := op(c.Request.Context(), bookingID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}
