package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error)
	FindByVideoCall(ctx context.Context, tx *gorm.DB, videoCallID string) (*models.Booking, error)
	FindOverlapping(ctx context.Context, tx *gorm.DB, caregiverID string, start, end time.Time, excludeID string) ([]models.Booking, error)
	CountBlocking(ctx context.Context, tx *gorm.DB, caregiverID string) (int64, error)
	ListByVideoCalls(ctx context.Context, tx *gorm.DB, videoCallIDs []string) ([]models.Booking, error)
	ListForUser(ctx context.Context, userID string, status *models.BookingStatus) ([]models.Booking, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id string, fields map[string]any) error
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	return conn(r.db, tx).WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByIDForUpdate locks the booking row for the rest of the transaction.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := conn(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByVideoCall(ctx context.Context, tx *gorm.DB, videoCallID string) (*models.Booking, error) {
	var booking models.Booking
	err := conn(r.db, tx).WithContext(ctx).
		Where("video_call_request_id = ?", videoCallID).
		Order("created_at ASC").
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindOverlapping returns the caregiver's blocking bookings intersecting [start, end).
func (r *bookingRepository) FindOverlapping(ctx context.Context, tx *gorm.DB, caregiverID string, start, end time.Time, excludeID string) ([]models.Booking, error) {
	var bookings []models.Booking
	q := conn(r.db, tx).WithContext(ctx).
		Where("caregiver_id = ? AND status IN ?", caregiverID, models.BlockingStatuses).
		Where("scheduled_date < ? AND ends_at > ?", end.UTC(), start.UTC())
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Order("scheduled_date ASC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) CountBlocking(ctx context.Context, tx *gorm.DB, caregiverID string) (int64, error) {
	var count int64
	err := conn(r.db, tx).WithContext(ctx).
		Model(&models.Booking{}).
		Where("caregiver_id = ? AND status IN ?", caregiverID, models.BlockingStatuses).
		Count(&count).Error
	return count, err
}

func (r *bookingRepository) ListByVideoCalls(ctx context.Context, tx *gorm.DB, videoCallIDs []string) ([]models.Booking, error) {
	var bookings []models.Booking
	if len(videoCallIDs) == 0 {
		return bookings, nil
	}
	err := conn(r.db, tx).WithContext(ctx).
		Where("video_call_request_id IN ?", videoCallIDs).
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepository) ListForUser(ctx context.Context, userID string, status *models.BookingStatus) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx).Where("(care_recipient_id = ? OR caregiver_id = ?)", userID, userID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("scheduled_date DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) UpdateFields(ctx context.Context, tx *gorm.DB, id string, fields map[string]any) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Updates(fields).Error
}
