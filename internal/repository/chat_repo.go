package repository

import (
	"context"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository interface {
	Create(ctx context.Context, tx *gorm.DB, chat *models.ChatSession) error
	FindByID(ctx context.Context, id string) (*models.ChatSession, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.ChatSession, error)
	FindByPair(ctx context.Context, tx *gorm.DB, recipientID, caregiverID string) (*models.ChatSession, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id string, fields map[string]any) error
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, tx *gorm.DB, chat *models.ChatSession) error {
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	return conn(r.db, tx).WithContext(ctx).Create(chat).Error
}

func (r *chatRepository) FindByID(ctx context.Context, id string) (*models.ChatSession, error) {
	var chat models.ChatSession
	if err := r.db.WithContext(ctx).First(&chat, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.ChatSession, error) {
	var chat models.ChatSession
	if err := conn(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&chat, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) FindByPair(ctx context.Context, tx *gorm.DB, recipientID, caregiverID string) (*models.ChatSession, error) {
	var chat models.ChatSession
	err := conn(r.db, tx).WithContext(ctx).
		Where("care_recipient_id = ? AND caregiver_id = ?", recipientID, caregiverID).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) UpdateFields(ctx context.Context, tx *gorm.DB, id string, fields map[string]any) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&models.ChatSession{}).
		Where("id = ?", id).
		Updates(fields).Error
}
