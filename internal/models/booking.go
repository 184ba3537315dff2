package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	StatusDraft      BookingStatus = "draft"
	StatusRequested  BookingStatus = "requested"
	StatusAccepted   BookingStatus = "accepted"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusInProgress BookingStatus = "in_progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
)

// BlockingStatuses count toward a caregiver's double-booking constraint.
var BlockingStatuses = []BookingStatus{StatusRequested, StatusAccepted, StatusConfirmed, StatusInProgress}

func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s BookingStatus) IsBlocking() bool {
	for _, b := range BlockingStatuses {
		if s == b {
			return true
		}
	}
	return false
}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusRequested, StatusAccepted, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type ServiceType string

const (
	ServiceExamAssistance   ServiceType = "exam_assistance"
	ServiceDailyCare        ServiceType = "daily_care"
	ServiceOneTime          ServiceType = "one_time"
	ServiceRecurring        ServiceType = "recurring"
	ServiceVideoCallSession ServiceType = "video_call_session"
)

type UrgencyLevel string

const (
	UrgencyLow       UrgencyLevel = "low"
	UrgencyMedium    UrgencyLevel = "medium"
	UrgencyHigh      UrgencyLevel = "high"
	UrgencyEmergency UrgencyLevel = "emergency"
)

const MaxDurationHours = 24.0

type Booking struct {
	ID                 string            `gorm:"type:uuid;primaryKey" json:"id"`
	CareRecipientID    string            `gorm:"type:uuid;not null;index" json:"care_recipient_id"`
	CaregiverID        *string           `gorm:"type:uuid;index" json:"caregiver_id,omitempty"`
	ServiceType        ServiceType       `gorm:"type:varchar(32);not null" json:"service_type"`
	ScheduledDate      time.Time         `gorm:"not null;index" json:"scheduled_date"`
	DurationHours      float64           `gorm:"not null" json:"duration_hours"`
	EndsAt             time.Time         `gorm:"not null;index" json:"ends_at"`
	Status             BookingStatus     `gorm:"type:varchar(20);not null;default:'requested';index" json:"status"`
	UrgencyLevel       UrgencyLevel      `gorm:"type:varchar(16);not null;default:'medium'" json:"urgency_level"`
	IsEmergency        bool              `gorm:"not null;default:false" json:"is_emergency"`
	Location           datatypes.JSONMap `json:"location,omitempty"`
	SpecificNeeds      *string           `json:"specific_needs,omitempty"`
	VideoCallRequestID *string           `gorm:"type:uuid" json:"video_call_request_id,omitempty"`
	ChatSessionID      *string           `gorm:"type:uuid" json:"chat_session_id,omitempty"`
	CancellationReason *string           `json:"cancellation_reason,omitempty"`
	AcceptedAt         *time.Time        `json:"accepted_at,omitempty"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// EndOf returns the exclusive end of a window starting at start.
func EndOf(start time.Time, durationHours float64) time.Time {
	return start.Add(time.Duration(durationHours * float64(time.Hour)))
}

// BeforeCreate fills EndsAt for callers that only set the start and duration.
func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.EndsAt.IsZero() {
		b.EndsAt = EndOf(b.ScheduledDate, b.DurationHours)
	}
	return nil
}

// IsParty reports whether userID is the recipient or the assigned caregiver.
func (b *Booking) IsParty(userID string) bool {
	if b.CareRecipientID == userID {
		return true
	}
	return b.CaregiverID != nil && *b.CaregiverID == userID
}

// OtherParty returns the counterpart of userID, or "" when there is none.
func (b *Booking) OtherParty(userID string) string {
	if b.CareRecipientID == userID {
		if b.CaregiverID != nil {
			return *b.CaregiverID
		}
		return ""
	}
	return b.CareRecipientID
}
