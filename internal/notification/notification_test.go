package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/Eursukkul/care-booking-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type recordingSender struct {
	mu       sync.Mutex
	sent     []Message
	marked   []models.BookingStatus
	failWith error
	deadline bool
}

func (r *recordingSender) Send(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, r.deadline = ctx.Deadline()
	r.sent = append(r.sent, msg)
	return r.failWith
}

func (r *recordingSender) MarkBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus, userIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marked = append(r.marked, status)
	return r.failWith
}

func TestDispatcher_SendsAfterCallerContextIsCancelled(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, time.Second, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.Dispatch(ctx, ChatEnabled("u1", "chat-1"), ChatEnabled("u2", "chat-1"))
	d.DispatchBookingStatus(ctx, "b1", models.StatusConfirmed, "u1", "u2")
	d.Wait()

	assert.Len(t, sender.sent, 2)
	assert.Equal(t, []models.BookingStatus{models.StatusConfirmed}, sender.marked)
	assert.True(t, sender.deadline)
}

func TestDispatcher_SkipsMessagesWithoutRecipient(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 0, logger.Nop())

	d.Dispatch(context.Background(), BookingCreated(&models.Booking{ID: "b1"}))
	d.Wait()

	assert.Empty(t, sender.sent)
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	sender := &recordingSender{failWith: errors.New("db down")}
	d := NewDispatcher(sender, time.Second, logger.Nop())

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), PaymentConfirmed("u1", "b1"))
		d.Wait()
	})
	assert.Len(t, sender.sent, 1)
}

func TestMessages(t *testing.T) {
	cg := "cg-1"
	b := &models.Booking{ID: "b1", CaregiverID: &cg, Status: models.StatusRequested, IsEmergency: true,
		ScheduledDate: time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)}

	created := BookingCreated(b)
	assert.Equal(t, "cg-1", created.UserID)
	assert.Equal(t, "requested", created.Data["booking_status"])
	assert.Equal(t, true, created.Data["is_emergency"])
	assert.Equal(t, "2026-03-12T09:00:00Z", created.Data["scheduled_date"])

	accepted := BookingStatusChanged("r-1", "b1", models.StatusAccepted)
	assert.Contains(t, accepted.Body, "has accepted your booking")
	drafted := BookingStatusChanged("r-1", "b1", models.StatusDraft)
	assert.Contains(t, drafted.Body, "draft")

	paid := PaymentConfirmed("r-1", "b1")
	assert.Equal(t, models.NotifyPayment, paid.Type)
	assert.Equal(t, "confirmed", paid.Data["booking_status"])
}

// --- Service ---

type mockNotificationRepo struct {
	created []*models.Notification
	rows    []models.Notification
	updated map[string]datatypes.JSONMap
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	n.ID = "n-new"
	m.created = append(m.created, n)
	return nil
}
func (m *mockNotificationRepo) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return m.rows, nil
}
func (m *mockNotificationRepo) FindByBooking(ctx context.Context, bookingID string, userIDs []string) ([]models.Notification, error) {
	return m.rows, nil
}
func (m *mockNotificationRepo) UpdateData(ctx context.Context, id string, data datatypes.JSONMap) error {
	if m.updated == nil {
		m.updated = map[string]datatypes.JSONMap{}
	}
	m.updated[id] = data
	return nil
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) PublishJSON(ctx context.Context, routingKey string, payload any) error {
	p.calls++
	return errors.New("broker down")
}

func TestService_SendStoresEvenWhenPublishFails(t *testing.T) {
	repo := &mockNotificationRepo{}
	pub := &failingPublisher{}
	svc := NewService(repo, pub, logger.Nop())

	err := svc.Send(context.Background(), Message{UserID: "u1", Type: models.NotifyBooking, Title: "t", Body: "b"})

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.NotNil(t, repo.created[0].Data)
	assert.Equal(t, 1, pub.calls)
}

func TestService_MarkBookingStatusRewritesData(t *testing.T) {
	repo := &mockNotificationRepo{rows: []models.Notification{
		{ID: "n1", Data: datatypes.JSONMap{"booking_id": "b1", "booking_status": "requested", "action": "view_booking"}},
		{ID: "n2", Data: datatypes.JSONMap{"booking_id": "b1"}},
	}}
	svc := NewService(repo, nil, logger.Nop())

	require.NoError(t, svc.MarkBookingStatus(context.Background(), "b1", models.StatusCancelled, []string{"u1"}))

	require.Len(t, repo.updated, 2)
	assert.Equal(t, "cancelled", repo.updated["n1"]["booking_status"])
	assert.Equal(t, "view_booking", repo.updated["n1"]["action"])
	assert.Equal(t, "cancelled", repo.updated["n2"]["booking_status"])
	assert.Equal(t, "requested", repo.rows[0].Data["booking_status"], "source row is copied, not mutated")
}
