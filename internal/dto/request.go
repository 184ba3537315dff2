package dto

import "time"

type CreateBookingRequest struct {
	CaregiverID   *string        `json:"caregiver_id" validate:"omitempty,uuid"`
	ServiceType   string         `json:"service_type" validate:"required,oneof=exam_assistance daily_care one_time recurring video_call_session"`
	ScheduledDate time.Time      `json:"scheduled_date" validate:"required"`
	DurationHours float64        `json:"duration_hours" validate:"required,gt=0,lte=24"`
	UrgencyLevel  string         `json:"urgency_level" validate:"omitempty,oneof=low medium high emergency"`
	Location      map[string]any `json:"location"`
	SpecificNeeds *string        `json:"specific_needs" validate:"omitempty,max=2000"`
	Status        string         `json:"status" validate:"omitempty,oneof=draft requested"`
}

type BookSlotRequest struct {
	CaregiverID        string         `json:"caregiver_id" validate:"required,uuid"`
	ServiceType        string         `json:"service_type" validate:"required,oneof=exam_assistance daily_care one_time recurring video_call_session"`
	ScheduledDate      time.Time      `json:"scheduled_date" validate:"required"`
	DurationHours      float64        `json:"duration_hours" validate:"required,gt=0,lte=24"`
	UrgencyLevel       string         `json:"urgency_level" validate:"omitempty,oneof=low medium high emergency"`
	IsEmergency        bool           `json:"is_emergency"`
	Location           map[string]any `json:"location"`
	SpecificNeeds      *string        `json:"specific_needs" validate:"omitempty,max=2000"`
	VideoCallRequestID *string        `json:"video_call_request_id" validate:"omitempty,uuid"`
	ChatSessionID      *string        `json:"chat_session_id" validate:"omitempty,uuid"`
}

type UpdateStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

type RespondRequest struct {
	Status string  `json:"status" validate:"required,oneof=accepted rejected cancelled"`
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

type CreateNoteRequest struct {
	Note      string `json:"note" validate:"required,min=1,max=2000"`
	IsPrivate bool   `json:"is_private"`
}

type CreateVideoCallRequest struct {
	CaregiverID     string    `json:"caregiver_id" validate:"required,uuid"`
	ScheduledTime   time.Time `json:"scheduled_time" validate:"required"`
	DurationSeconds int       `json:"duration_seconds" validate:"omitempty,min=1,max=900"`
}

// AcceptRequest is shared by video call and chat acceptance.
type AcceptRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

type UpdateVideoCallStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending accepted declined in_progress completed cancelled"`
}

// Query structs are filled through echo's ValueBinder, which parses RFC3339.
type SlotsQuery struct {
	CaregiverID string    `validate:"required,uuid"`
	From        time.Time `validate:"required"`
	To          time.Time `validate:"required,gtfield=From"`
	SlotMinutes int       `validate:"min=1,max=1440"`
}

type SlotAvailabilityQuery struct {
	CaregiverID string    `validate:"required,uuid"`
	StartTime   time.Time `validate:"required"`
	EndTime     time.Time `validate:"required,gtfield=StartTime"`
}
