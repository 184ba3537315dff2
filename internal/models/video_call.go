package models

import "time"

type VideoCallStatus string

const (
	CallPending    VideoCallStatus = "pending"
	CallAccepted   VideoCallStatus = "accepted"
	CallDeclined   VideoCallStatus = "declined"
	CallInProgress VideoCallStatus = "in_progress"
	CallCompleted  VideoCallStatus = "completed"
	CallCancelled  VideoCallStatus = "cancelled"
)

func (s VideoCallStatus) IsTerminal() bool {
	return s == CallDeclined || s == CallCompleted || s == CallCancelled
}

func (s VideoCallStatus) Valid() bool {
	switch s {
	case CallPending, CallAccepted, CallDeclined, CallInProgress, CallCompleted, CallCancelled:
		return true
	}
	return false
}

const (
	DefaultCallSeconds = 15
	MaxCallSeconds     = 900
)

type VideoCallRequest struct {
	ID                    string          `gorm:"type:uuid;primaryKey" json:"id"`
	CareRecipientID       string          `gorm:"type:uuid;not null;index" json:"care_recipient_id"`
	CaregiverID           string          `gorm:"type:uuid;not null;index" json:"caregiver_id"`
	ScheduledTime         time.Time       `gorm:"not null" json:"scheduled_time"`
	DurationSeconds       int             `gorm:"not null;default:15" json:"duration_seconds"`
	Status                VideoCallStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CareRecipientAccepted bool            `gorm:"not null;default:false" json:"care_recipient_accepted"`
	CaregiverAccepted     bool            `gorm:"not null;default:false" json:"caregiver_accepted"`
	VideoCallURL          string          `json:"video_call_url"`
	CompletedAt           *time.Time      `json:"completed_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (v *VideoCallRequest) IsParty(userID string) bool {
	return v.CareRecipientID == userID || v.CaregiverID == userID
}

func (v *VideoCallRequest) OtherParty(userID string) string {
	if v.CareRecipientID == userID {
		return v.CaregiverID
	}
	return v.CareRecipientID
}

// DurationHours converts the call length for booking allocation.
func (v *VideoCallRequest) DurationHours() float64 {
	secs := v.DurationSeconds
	if secs <= 0 {
		secs = MaxCallSeconds
	}
	return float64(secs) / 3600
}
