package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotifyBooking     NotificationType = "booking"
	NotifyVideoCall   NotificationType = "video_call"
	NotifyChatSession NotificationType = "chat_session"
	NotifyPayment     NotificationType = "payment"
)

type Notification struct {
	ID        string            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string            `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      NotificationType  `gorm:"type:varchar(32);not null" json:"type"`
	Title     string            `gorm:"not null" json:"title"`
	Message   string            `gorm:"not null" json:"message"`
	Data      datatypes.JSONMap `json:"data"`
	IsRead    bool              `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time         `json:"created_at"`
}

// ConsumedEvent records a processed broker message so redeliveries are skipped.
type ConsumedEvent struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	EventKey    string    `gorm:"index;not null" json:"event_key"`
	ProcessedAt time.Time `json:"processed_at"`
}
