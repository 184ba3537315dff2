package models

import "time"

// BookingHistory is append-only; one row per status change.
type BookingHistory struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID      string         `gorm:"type:uuid;not null;index" json:"booking_id"`
	PreviousStatus *BookingStatus `gorm:"type:varchar(20)" json:"previous_status"`
	NewStatus      BookingStatus  `gorm:"type:varchar(20);not null" json:"new_status"`
	ChangedBy      string         `gorm:"not null" json:"changed_by"`
	Reason         *string        `json:"reason"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
}

func (BookingHistory) TableName() string { return "booking_history" }

type BookingNote struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID string    `gorm:"type:uuid;not null;index" json:"booking_id"`
	UserID    string    `gorm:"type:uuid;not null" json:"user_id"`
	Note      string    `gorm:"not null" json:"note"`
	IsPrivate bool      `gorm:"not null;default:false" json:"is_private"`
	CreatedAt time.Time `json:"created_at"`
}
