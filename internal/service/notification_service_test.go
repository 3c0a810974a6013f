package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/timebank-backend/internal/models"
	"github.com/ignatzorin/timebank-backend/internal/pkg/apperror"
)

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	if args.Error(0) == nil {
		n.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockNotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *mockNotificationRepo) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit, offset, unreadOnly)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockNotificationRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockNotificationRepo) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockNotificationRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type fakeHub struct {
	delivered []uuid.UUID
}

func (f *fakeHub) BroadcastToUser(userID uuid.UUID, event string, data interface{}) error {
	f.delivered = append(f.delivered, userID)
	return nil
}

func TestNotificationService_MarkAsRead_ForeignNotification(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo)
	ctx := context.Background()
	notifID := uuid.New()

	repo.On("GetByID", ctx, notifID).Return(&models.Notification{
		ID:     notifID,
		UserID: uuid.New(),
	}, nil)

	err := svc.MarkAsRead(ctx, notifID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "MarkAsRead", mock.Anything, mock.Anything)
}

func TestNotificationService_MarkAsRead_Owner(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo)
	ctx := context.Background()
	notifID := uuid.New()
	userID := uuid.New()

	repo.On("GetByID", ctx, notifID).Return(&models.Notification{
		ID:     notifID,
		UserID: userID,
	}, nil)
	repo.On("MarkAsRead", ctx, notifID).Return(nil)

	assert.NoError(t, svc.MarkAsRead(ctx, notifID, userID))
	repo.AssertExpectations(t)
}

func TestNotificationService_DeliverDue(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo)
	hub := &fakeHub{}
	svc.SetHub(hub)
	ctx := context.Background()

	userA := uuid.New()
	userB := uuid.New()
	repo.On("ListDue", ctx, mock.Anything, 100).Return([]models.Notification{
		{ID: uuid.New(), UserID: userA, Type: models.NotificationSessionReminder},
		{ID: uuid.New(), UserID: userB, Type: models.NotificationSessionReminder},
	}, nil)

	assert.NoError(t, svc.DeliverDue(ctx))
	assert.Equal(t, []uuid.UUID{userA, userB}, hub.delivered)
}

func TestNotificationService_DeliverDue_NoHub(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo)
	ctx := context.Background()

	repo.On("ListDue", ctx, mock.Anything, 100).Return([]models.Notification{
		{ID: uuid.New(), UserID: uuid.New()},
	}, nil)

	// Без hub доставка тихо пропускается, строки уже помечены доставленными.
	assert.NoError(t, svc.DeliverDue(ctx))
}

func TestNotificationService_List_ClampsPagination(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("List", ctx, userID, 20, 0, true).Return([]models.Notification{}, nil)

	_, err := svc.ListNotifications(ctx, userID, 0, -1, true)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
