package service

import (
	"context"
	"errors"
	"time"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/Eursukkul/care-booking-service/internal/notification"
	"github.com/Eursukkul/care-booking-service/internal/repository"
	"github.com/Eursukkul/care-booking-service/pkg/clock"
	"github.com/Eursukkul/care-booking-service/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer = otel.Tracer("github.com/Eursukkul/care-booking-service/internal/service")

// Notifier fires notifications after commit. Implementations must not block.
type Notifier interface {
	Dispatch(ctx context.Context, msgs ...notification.Message)
	DispatchBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus, userIDs ...string)
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, payload any) error
}

// SlotCache stores slot grids. Get returns the key the grid belongs under;
// Set writes to exactly that key.
type SlotCache interface {
	Get(ctx context.Context, caregiverID string, from, to time.Time, slotMinutes int) (slots []models.Slot, key string, ok bool, err error)
	Set(ctx context.Context, key string, slots []models.Slot) error
	Invalidate(ctx context.Context, caregiverID string) error
}

// Deps bundles the collaborators shared by the services. Notifier, Events
// and Cache are optional; a nil value turns the side effect off.
type Deps struct {
	Tx             repository.Transactor
	Users          repository.UserRepository
	Caregivers     repository.CaregiverRepository
	Bookings       repository.BookingRepository
	StatusHistory  repository.HistoryRepository
	Notes          repository.NoteRepository
	VideoCalls     repository.VideoCallRepository
	Chats          repository.ChatRepository
	ConsumedEvents repository.ConsumedEventRepository

	Notifier Notifier
	Events   EventPublisher
	Cache    SlotCache
	Clock    clock.Clock
	Log      *logger.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

func (d Deps) notify(ctx context.Context, msgs ...notification.Message) {
	if d.Notifier != nil {
		d.Notifier.Dispatch(ctx, msgs...)
	}
}

func (d Deps) publish(ctx context.Context, key string, payload any) {
	if d.Events == nil {
		return
	}
	if err := d.Events.PublishJSON(ctx, key, payload); err != nil {
		d.Log.Warn("event publish failed", "routing_key", key, "error", err)
	}
}

func (d Deps) invalidateSlots(ctx context.Context, caregiverID *string) {
	if d.Cache == nil || caregiverID == nil {
		return
	}
	if err := d.Cache.Invalidate(ctx, *caregiverID); err != nil {
		d.Log.Warn("slot cache invalidate failed", "caregiver_id", *caregiverID, "error", err)
	}
}

// Routing keys for booking lifecycle events.
const (
	RoutingBookingCreated       = "booking.created"
	RoutingBookingStatusChanged = "booking.status_changed"
)

type BookingEvent struct {
	BookingID       string                `json:"booking_id"`
	CareRecipientID string                `json:"care_recipient_id"`
	CaregiverID     *string               `json:"caregiver_id,omitempty"`
	PreviousStatus  *models.BookingStatus `json:"previous_status,omitempty"`
	Status          models.BookingStatus  `json:"status"`
	ChangedBy       string                `json:"changed_by"`
	IsEmergency     bool                  `json:"is_emergency"`
	OccurredAt      time.Time             `json:"occurred_at"`
}

func bookingEvent(b *models.Booking, prev *models.BookingStatus, by string, at time.Time) BookingEvent {
	return BookingEvent{
		BookingID:       b.ID,
		CareRecipientID: b.CareRecipientID,
		CaregiverID:     b.CaregiverID,
		PreviousStatus:  prev,
		Status:          b.Status,
		ChangedBy:       by,
		IsEmergency:     b.IsEmergency,
		OccurredAt:      at,
	}
}

// classify leaves typed errors alone and files everything else as a store failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return dbError(op, err)
}

// partyRole derives the acting role from the actor's relation to the booking,
// not from the token, so a user can only act as the side they are on.
func partyRole(b *models.Booking, actorID string) models.Role {
	if b.CaregiverID != nil && *b.CaregiverID == actorID {
		return models.RoleCaregiver
	}
	return models.RoleCareRecipient
}

func ptr[T any](v T) *T { return &v }
