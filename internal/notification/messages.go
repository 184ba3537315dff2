package notification

import (
	"fmt"

	"github.com/Eursukkul/care-booking-service/internal/models"
)

// BookingCreated is addressed to the assigned caregiver; UserID is empty
// when the booking has none, which makes the dispatcher skip it.
func BookingCreated(b *models.Booking) Message {
	var caregiverID string
	if b.CaregiverID != nil {
		caregiverID = *b.CaregiverID
	}
	return Message{
		UserID: caregiverID,
		Type:   models.NotifyBooking,
		Title:  "New Booking Request",
		Body:   "A care recipient has created a new booking request",
		Data: map[string]any{
			"booking_id":     b.ID,
			"booking_status": string(b.Status),
			"scheduled_date": b.ScheduledDate.Format("2006-01-02T15:04:05Z07:00"),
			"is_emergency":   b.IsEmergency,
			"action":         "view_booking",
		},
	}
}

var statusPhrases = map[models.BookingStatus]string{
	models.StatusAccepted:   "has accepted your booking",
	models.StatusConfirmed:  "booking has been confirmed",
	models.StatusCancelled:  "has cancelled the booking",
	models.StatusInProgress: "booking has started",
	models.StatusCompleted:  "booking has been completed",
}

func BookingStatusChanged(userID, bookingID string, status models.BookingStatus) Message {
	phrase, ok := statusPhrases[status]
	if !ok {
		phrase = fmt.Sprintf("booking status changed to %s", status)
	}
	return Message{
		UserID: userID,
		Type:   models.NotifyBooking,
		Title:  "Booking Status Update",
		Body:   "The other party " + phrase,
		Data: map[string]any{
			"booking_id":     bookingID,
			"status":         string(status),
			"booking_status": string(status),
			"action":         "view_booking",
		},
	}
}

func VideoCallRequested(caregiverID, callID string) Message {
	return Message{
		UserID: caregiverID,
		Type:   models.NotifyVideoCall,
		Title:  "New Video Call Request",
		Body:   "A care recipient wants to schedule a short video call with you",
		Data:   map[string]any{"video_call_id": callID, "action": "view_video_call"},
	}
}

func VideoCallUpdated(userID, callID string, status models.VideoCallStatus) Message {
	return Message{
		UserID: userID,
		Type:   models.NotifyVideoCall,
		Title:  "Video Call Update",
		Body:   fmt.Sprintf("The video call request is now %s", status),
		Data:   map[string]any{"video_call_id": callID, "status": string(status), "action": "view_video_call"},
	}
}

func VideoCallJoined(userID, callID string) Message {
	return Message{
		UserID: userID,
		Type:   models.NotifyVideoCall,
		Title:  "Video Call Started",
		Body:   "The other party has joined the video call",
		Data:   map[string]any{"video_call_id": callID, "action": "join_call"},
	}
}

func ChatEnabled(userID, chatID string) Message {
	return Message{
		UserID: userID,
		Type:   models.NotifyChatSession,
		Title:  "Chat Enabled",
		Body:   "Chat is now enabled. You can start messaging!",
		Data:   map[string]any{"chat_session_id": chatID, "action": "open_chat"},
	}
}

func PaymentConfirmed(userID, bookingID string) Message {
	return Message{
		UserID: userID,
		Type:   models.NotifyPayment,
		Title:  "Payment Completed",
		Body:   "Payment received. The booking is confirmed and chat is enabled.",
		Data:   map[string]any{"booking_id": bookingID, "booking_status": string(models.StatusConfirmed), "action": "view_booking"},
	}
}
