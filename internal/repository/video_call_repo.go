package repository

import (
	"context"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VideoCallRepository interface {
	Create(ctx context.Context, call *models.VideoCallRequest) error
	FindByID(ctx context.Context, id string) (*models.VideoCallRequest, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.VideoCallRequest, error)
	FindLatestAccepted(ctx context.Context, recipientID, caregiverID string) (*models.VideoCallRequest, error)
	ListActiveForCaregiver(ctx context.Context, tx *gorm.DB, caregiverID string) ([]models.VideoCallRequest, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id string, fields map[string]any) error
}

type videoCallRepository struct {
	db *gorm.DB
}

func NewVideoCallRepository(db *gorm.DB) VideoCallRepository {
	return &videoCallRepository{db: db}
}

func (r *videoCallRepository) Create(ctx context.Context, call *models.VideoCallRequest) error {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(call).Error
}

func (r *videoCallRepository) FindByID(ctx context.Context, id string) (*models.VideoCallRequest, error) {
	var call models.VideoCallRequest
	if err := r.db.WithContext(ctx).First(&call, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &call, nil
}

func (r *videoCallRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.VideoCallRequest, error) {
	var call models.VideoCallRequest
	if err := conn(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&call, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &call, nil
}

func (r *videoCallRepository) FindLatestAccepted(ctx context.Context, recipientID, caregiverID string) (*models.VideoCallRequest, error) {
	var call models.VideoCallRequest
	err := r.db.WithContext(ctx).
		Where("care_recipient_id = ? AND caregiver_id = ? AND status = ?", recipientID, caregiverID, models.CallAccepted).
		Order("created_at DESC").
		First(&call).Error
	if err != nil {
		return nil, err
	}
	return &call, nil
}

// ListActiveForCaregiver returns accepted or running calls.
func (r *videoCallRepository) ListActiveForCaregiver(ctx context.Context, tx *gorm.DB, caregiverID string) ([]models.VideoCallRequest, error) {
	var calls []models.VideoCallRequest
	err := conn(r.db, tx).WithContext(ctx).
		Where("caregiver_id = ? AND status IN ?", caregiverID, []models.VideoCallStatus{models.CallAccepted, models.CallInProgress}).
		Find(&calls).Error
	return calls, err
}

func (r *videoCallRepository) UpdateFields(ctx context.Context, tx *gorm.DB, id string, fields map[string]any) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&models.VideoCallRequest{}).
		Where("id = ?", id).
		Updates(fields).Error
}
