package models

import "time"

type ChatSession struct {
	ID                    string     `gorm:"type:uuid;primaryKey" json:"id"`
	CareRecipientID       string     `gorm:"type:uuid;not null;uniqueIndex:idx_chat_pair" json:"care_recipient_id"`
	CaregiverID           string     `gorm:"type:uuid;not null;uniqueIndex:idx_chat_pair" json:"caregiver_id"`
	VideoCallRequestID    *string    `gorm:"type:uuid" json:"video_call_request_id,omitempty"`
	IsEnabled             bool       `gorm:"not null;default:false" json:"is_enabled"`
	CareRecipientAccepted bool       `gorm:"not null;default:false" json:"care_recipient_accepted"`
	CaregiverAccepted     bool       `gorm:"not null;default:false" json:"caregiver_accepted"`
	EnabledAt             *time.Time `json:"enabled_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (c *ChatSession) IsParty(userID string) bool {
	return c.CareRecipientID == userID || c.CaregiverID == userID
}

func (c *ChatSession) OtherParty(userID string) string {
	if c.CareRecipientID == userID {
		return c.CaregiverID
	}
	return c.CareRecipientID
}
