package repository

import (
	"context"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CaregiverRepository interface {
	FindProfile(ctx context.Context, userID string) (*models.CaregiverProfile, error)
	LockProfile(ctx context.Context, tx *gorm.DB, userID string) (*models.CaregiverProfile, error)
	SetAvailability(ctx context.Context, tx *gorm.DB, userID string, status models.Availability) error
}

type caregiverRepository struct {
	db *gorm.DB
}

func NewCaregiverRepository(db *gorm.DB) CaregiverRepository {
	return &caregiverRepository{db: db}
}

func (r *caregiverRepository) FindProfile(ctx context.Context, userID string) (*models.CaregiverProfile, error) {
	var profile models.CaregiverProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// LockProfile acquires a row-level lock on the caregiver's profile within the
// given transaction, creating the row first if the caregiver has none. Every
// booking allocation for the caregiver queues behind this lock.
func (r *caregiverRepository) LockProfile(ctx context.Context, tx *gorm.DB, userID string) (*models.CaregiverProfile, error) {
	db := conn(r.db, tx).WithContext(ctx)

	seed := models.CaregiverProfile{UserID: userID, AvailabilityStatus: models.AvailabilityAvailable}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}

	var profile models.CaregiverProfile
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *caregiverRepository) SetAvailability(ctx context.Context, tx *gorm.DB, userID string, status models.Availability) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&models.CaregiverProfile{}).
		Where("user_id = ?", userID).
		Update("availability_status", status).Error
}
