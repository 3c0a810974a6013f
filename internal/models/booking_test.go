package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBookingRequest_CanConfirm(t *testing.T) {
	b := &BookingRequest{Status: BookingStatusPending}
	assert.True(t, b.CanConfirm())

	for _, status := range []string{BookingStatusConfirmed, BookingStatusDeclined, BookingStatusCancelled, BookingStatusCompleted} {
		b.Status = status
		assert.False(t, b.CanConfirm(), "статус %s", status)
	}
}

func TestBookingRequest_CanCancel(t *testing.T) {
	b := &BookingRequest{Status: BookingStatusPending}
	assert.True(t, b.CanCancel())

	b.Status = BookingStatusConfirmed
	assert.True(t, b.CanCancel())

	for _, status := range []string{BookingStatusDeclined, BookingStatusCancelled, BookingStatusCompleted} {
		b.Status = status
		assert.False(t, b.CanCancel(), "статус %s", status)
	}
}

func TestBookingRequest_CanConfirmSession(t *testing.T) {
	now := time.Now()
	b := &BookingRequest{
		Status:           BookingStatusConfirmed,
		RequestedEndTime: now.Add(-time.Minute),
	}
	assert.True(t, b.CanConfirmSession(now))

	// До окончания сессии подтверждать нельзя.
	b.RequestedEndTime = now.Add(time.Minute)
	assert.False(t, b.CanConfirmSession(now))

	b.RequestedEndTime = now.Add(-time.Minute)
	b.Status = BookingStatusPending
	assert.False(t, b.CanConfirmSession(now))
}

func TestBookingRequest_ReadyToComplete(t *testing.T) {
	b := &BookingRequest{
		Status:            BookingStatusConfirmed,
		ProviderConfirmed: true,
		LearnerConfirmed:  true,
		DisputeStatus:     DisputeStatusNone,
	}
	assert.True(t, b.ReadyToComplete())

	open := *b
	open.DisputeStatus = DisputeStatusOpen
	assert.False(t, open.ReadyToComplete())

	oneSided := *b
	oneSided.LearnerConfirmed = false
	assert.False(t, oneSided.ReadyToComplete())

	// Разрешённый спор не должен навсегда блокировать завершение:
	// после резолюции администратора обмен завершается как обычно.
	resolved := *b
	resolved.DisputeStatus = DisputeStatusResolved
	assert.True(t, resolved.ReadyToComplete())
}

func TestBookingRequest_ConfirmedBy(t *testing.T) {
	provider := uuid.New()
	learner := uuid.New()
	b := &BookingRequest{
		ProviderID:        provider,
		LearnerID:         learner,
		ProviderConfirmed: true,
	}

	assert.True(t, b.ConfirmedBy(provider))
	assert.False(t, b.ConfirmedBy(learner))
	assert.False(t, b.ConfirmedBy(uuid.New()))

	b.LearnerConfirmed = true
	assert.True(t, b.ConfirmedBy(learner))
}

func TestBookingRequest_IsTerminal(t *testing.T) {
	terminal := []string{BookingStatusDeclined, BookingStatusCancelled, BookingStatusCompleted}
	for _, status := range terminal {
		b := &BookingRequest{Status: status}
		assert.True(t, b.IsTerminal(), "статус %s", status)
	}

	for _, status := range []string{BookingStatusPending, BookingStatusConfirmed} {
		b := &BookingRequest{Status: status}
		assert.False(t, b.IsTerminal(), "статус %s", status)
	}
}

func TestBookingRequest_IsParticipant(t *testing.T) {
	provider := uuid.New()
	learner := uuid.New()
	b := &BookingRequest{ProviderID: provider, LearnerID: learner}

	assert.True(t, b.IsParticipant(provider))
	assert.True(t, b.IsParticipant(learner))
	assert.False(t, b.IsParticipant(uuid.New()))
}
