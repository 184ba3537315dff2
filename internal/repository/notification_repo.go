package repository

import (
	"context"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	FindByBooking(ctx context.Context, bookingID string, userIDs []string) ([]models.Notification, error)
	UpdateData(ctx context.Context, id string, data datatypes.JSONMap) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// FindByBooking matches on data->booking_id.
func (r *notificationRepository) FindByBooking(ctx context.Context, bookingID string, userIDs []string) ([]models.Notification, error) {
	var out []models.Notification
	q := r.db.WithContext(ctx).Where(datatypes.JSONQuery("data").Equals(bookingID, "booking_id"))
	if len(userIDs) > 0 {
		q = q.Where("user_id IN ?", userIDs)
	}
	err := q.Find(&out).Error
	return out, err
}

func (r *notificationRepository) UpdateData(ctx context.Context, id string, data datatypes.JSONMap) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("data", data).Error
}

type ConsumedEventRepository interface {
	Exists(ctx context.Context, tx *gorm.DB, id string) (bool, error)
	Record(ctx context.Context, tx *gorm.DB, event *models.ConsumedEvent) error
}

type consumedEventRepository struct {
	db *gorm.DB
}

func NewConsumedEventRepository(db *gorm.DB) ConsumedEventRepository {
	return &consumedEventRepository{db: db}
}

func (r *consumedEventRepository) Exists(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	var count int64
	err := conn(r.db, tx).WithContext(ctx).
		Model(&models.ConsumedEvent{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

func (r *consumedEventRepository) Record(ctx context.Context, tx *gorm.DB, event *models.ConsumedEvent) error {
	return conn(r.db, tx).WithContext(ctx).Create(event).Error
}
