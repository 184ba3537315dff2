package repository

import (
	"context"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HistoryRepository interface {
	Append(ctx context.Context, tx *gorm.DB, entry *models.BookingHistory) error
	ListByBooking(ctx context.Context, bookingID string) ([]models.BookingHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, tx *gorm.DB, entry *models.BookingHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	return conn(r.db, tx).WithContext(ctx).Create(entry).Error
}

func (r *historyRepository) ListByBooking(ctx context.Context, bookingID string) ([]models.BookingHistory, error) {
	var entries []models.BookingHistory
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

type NoteRepository interface {
	Create(ctx context.Context, note *models.BookingNote) error
	ListByBooking(ctx context.Context, bookingID, viewerID string) ([]models.BookingNote, error)
}

type noteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &noteRepository{db: db}
}

func (r *noteRepository) Create(ctx context.Context, note *models.BookingNote) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(note).Error
}

// ListByBooking hides other users' private notes from viewerID.
func (r *noteRepository) ListByBooking(ctx context.Context, bookingID, viewerID string) ([]models.BookingNote, error) {
	var notes []models.BookingNote
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Where("(is_private = ? OR user_id = ?)", false, viewerID).
		Order("created_at ASC").
		Find(&notes).Error
	return notes, err
}
