package notification

import (
	"context"
	"fmt"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/Eursukkul/care-booking-service/internal/repository"
	"github.com/Eursukkul/care-booking-service/pkg/logger"
	"gorm.io/datatypes"
)

const RoutingKeyCreated = "notification.created"

type Message struct {
	UserID string
	Type   models.NotificationType
	Title  string
	Body   string
	Data   map[string]any
}

// Publisher forwards stored notifications to the push transport.
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, payload any) error
}

type Service struct {
	repo      repository.NotificationRepository
	publisher Publisher
	log       *logger.Logger
}

func NewService(repo repository.NotificationRepository, publisher Publisher, log *logger.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, log: log.With("component", "notification")}
}

// Send stores the notification and hands it to the broker. A publish failure
// is logged only; the in-app row already exists.
func (s *Service) Send(ctx context.Context, msg Message) error {
	n := &models.Notification{
		UserID:  msg.UserID,
		Type:    msg.Type,
		Title:   msg.Title,
		Message: msg.Body,
		Data:    datatypes.JSONMap(msg.Data),
	}
	if n.Data == nil {
		n.Data = datatypes.JSONMap{}
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishJSON(ctx, RoutingKeyCreated, n); err != nil {
			s.log.Warn("push publish failed", "notification_id", n.ID, "user_id", n.UserID, "error", err)
		}
	}
	return nil
}

// MarkBookingStatus rewrites booking_status inside every notification that
// references the booking, so stale "new request" cards stop showing as open.
func (s *Service) MarkBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus, userIDs []string) error {
	rows, err := s.repo.FindByBooking(ctx, bookingID, userIDs)
	if err != nil {
		return fmt.Errorf("find notifications: %w", err)
	}
	for _, n := range rows {
		data := datatypes.JSONMap{}
		for k, v := range n.Data {
			data[k] = v
		}
		data["booking_status"] = string(status)
		if err := s.repo.UpdateData(ctx, n.ID, data); err != nil {
			return fmt.Errorf("update notification %s: %w", n.ID, err)
		}
	}
	return nil
}

func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return s.repo.ListForUser(ctx, userID, limit)
}
