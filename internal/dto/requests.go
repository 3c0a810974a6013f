package dto

// RegisterRequest represents the request to register a new member
type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to refresh a token pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdateProfileRequest represents the request to update a member profile
type UpdateProfileRequest struct {
	DisplayName string   `json:"display_name" binding:"required"`
	Bio         *string  `json:"bio"`
	Skills      []string `json:"skills"`
	Location    *string  `json:"location"`
	PhotoID     *string  `json:"photo_id"`
}

// CreateServiceRequest represents the request to publish a skill service
type CreateServiceRequest struct {
	Title          string  `json:"title" binding:"required"`
	Description    *string `json:"description"`
	Category       *string `json:"category"`
	DurationHours  int     `json:"duration_hours" binding:"required"`
	CreditsPerHour int     `json:"credits_per_hour" binding:"required"`
}

// CreateSlotRequest represents the request to open an availability slot
type CreateSlotRequest struct {
	ServiceID string `json:"service_id" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

// CreateBookingRequest represents the request to book a slot
type CreateBookingRequest struct {
	AvailabilitySlotID string  `json:"availability_slot_id" binding:"required"`
	ServiceID          string  `json:"service_id" binding:"required"`
	RequestedStartTime string  `json:"requested_start_time" binding:"required"`
	RequestedEndTime   string  `json:"requested_end_time" binding:"required"`
	LearnerNotes       *string `json:"learner_notes"`
}

// OpenDisputeRequest represents the request to open a dispute on a booking
type OpenDisputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ResolveDisputeRequest represents the admin request to resolve a dispute
type ResolveDisputeRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}

// CreateReviewRequest represents the request to leave a review
type CreateReviewRequest struct {
	BookingRequestID string  `json:"booking_request_id" binding:"required"`
	Rating           int     `json:"rating" binding:"required"`
	Comment          *string `json:"comment"`
}
