package dto

import (
	"time"

	"github.com/Eursukkul/care-booking-service/internal/models"
)

type BookingResponse struct {
	ID                 string               `json:"id"`
	CareRecipientID    string               `json:"care_recipient_id"`
	CaregiverID        *string              `json:"caregiver_id,omitempty"`
	ServiceType        models.ServiceType   `json:"service_type"`
	ScheduledDate      time.Time            `json:"scheduled_date"`
	DurationHours      float64              `json:"duration_hours"`
	EndsAt             time.Time            `json:"ends_at"`
	Status             models.BookingStatus `json:"status"`
	UrgencyLevel       models.UrgencyLevel  `json:"urgency_level"`
	IsEmergency        bool                 `json:"is_emergency"`
	Location           map[string]any       `json:"location,omitempty"`
	SpecificNeeds      *string              `json:"specific_needs,omitempty"`
	VideoCallRequestID *string              `json:"video_call_request_id,omitempty"`
	ChatSessionID      *string              `json:"chat_session_id,omitempty"`
	CancellationReason *string              `json:"cancellation_reason,omitempty"`
	AcceptedAt         *time.Time           `json:"accepted_at,omitempty"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

type SlotResponse struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

type SlotsResponse struct {
	CaregiverID string         `json:"caregiver_id"`
	SlotMinutes int            `json:"slot_minutes"`
	Slots       []SlotResponse `json:"slots"`
}

type SlotAvailabilityResponse struct {
	CaregiverID string    `json:"caregiver_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Available   bool      `json:"available"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		CareRecipientID:    b.CareRecipientID,
		CaregiverID:        b.CaregiverID,
		ServiceType:        b.ServiceType,
		ScheduledDate:      b.ScheduledDate,
		DurationHours:      b.DurationHours,
		EndsAt:             b.EndsAt,
		Status:             b.Status,
		UrgencyLevel:       b.UrgencyLevel,
		IsEmergency:        b.IsEmergency,
		Location:           b.Location,
		SpecificNeeds:      b.SpecificNeeds,
		VideoCallRequestID: b.VideoCallRequestID,
		ChatSessionID:      b.ChatSessionID,
		CancellationReason: b.CancellationReason,
		AcceptedAt:         b.AcceptedAt,
		CompletedAt:        b.CompletedAt,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func ToBookingResponses(bookings []models.Booking) []BookingResponse {
	resp := make([]BookingResponse, len(bookings))
	for i := range bookings {
		resp[i] = ToBookingResponse(&bookings[i])
	}
	return resp
}

func ToSlotsResponse(caregiverID string, slotMinutes int, slots []models.Slot) SlotsResponse {
	out := make([]SlotResponse, len(slots))
	for i, s := range slots {
		out[i] = SlotResponse{Start: s.Start, End: s.End, Available: s.Available}
	}
	return SlotsResponse{CaregiverID: caregiverID, SlotMinutes: slotMinutes, Slots: out}
}
