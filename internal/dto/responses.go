package dto

import (
	"github.com/ignatzorin/timebank-backend/internal/models"
)

// ErrorResponse represents a standardized error payload
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a standardized success payload
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse represents the result of register/login
type AuthResponse struct {
	User         *models.User    `json:"user"`
	Profile      *models.Profile `json:"profile,omitempty"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    int64           `json:"expires_in"`
}

// BalanceResponse represents a member's time credit balance
type BalanceResponse struct {
	UserID  string `json:"user_id"`
	Balance int    `json:"balance"`
}

// RatingResponse represents a member's aggregate rating
type RatingResponse struct {
	UserID       string  `json:"user_id"`
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"total_reviews"`
}

// ServiceWithSlotsResponse represents a skill service with its open slots
type ServiceWithSlotsResponse struct {
	*models.SkillService
	Slots []models.AvailabilitySlot `json:"slots"`
}

// NewServiceWithSlotsResponse creates a ServiceWithSlotsResponse from components
func NewServiceWithSlotsResponse(svc *models.SkillService, slots []models.AvailabilitySlot) *ServiceWithSlotsResponse {
	return &ServiceWithSlotsResponse{
		SkillService: svc,
		Slots:        slots,
	}
}

// UnreadCountResponse represents the number of unread notifications
type UnreadCountResponse struct {
	Count int `json:"count"`
}
