package service

import (
	"context"
	"time"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/Eursukkul/care-booking-service/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

// ErrVideoCallBooked reports that a booking already exists for the video
// call being provisioned. Callers re-read the existing row.
var ErrVideoCallBooked = newError(ErrConflict, "a booking already exists for this video call")

type BookSlotRequest struct {
	CareRecipientID    string
	CaregiverID        string
	ServiceType        models.ServiceType
	ScheduledDate      time.Time
	DurationHours      float64
	UrgencyLevel       models.UrgencyLevel
	IsEmergency        bool
	Location           map[string]any
	SpecificNeeds      *string
	VideoCallRequestID *string
	ChatSessionID      *string
	// Status defaults to requested and must be a blocking status.
	Status models.BookingStatus
}

// Allocator is the only path that creates a blocking booking for a caregiver.
type Allocator interface {
	BookSlotAtomic(ctx context.Context, req BookSlotRequest) (*models.Booking, error)
}

type allocator struct {
	Deps
}

func NewAllocator(deps Deps) Allocator {
	return &allocator{Deps: deps.withDefaults()}
}

// BookSlotAtomic checks and inserts under the caregiver's profile row lock so
// that competing requests for one caregiver are serialized. The exclusion
// constraint on bookings backs this up for writers that bypass the lock.
func (a *allocator) BookSlotAtomic(ctx context.Context, req BookSlotRequest) (*models.Booking, error) {
	ctx, span := tracer.Start(ctx, "allocator.BookSlotAtomic")
	defer span.End()
	span.SetAttributes(
		attribute.String("caregiver.id", req.CaregiverID),
		attribute.String("slot.start", req.ScheduledDate.UTC().Format(time.RFC3339)),
		attribute.Float64("slot.duration_hours", req.DurationHours),
	)

	booking, err := a.allocate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return booking, nil
}

func (a *allocator) allocate(ctx context.Context, req BookSlotRequest) (*models.Booking, error) {
	if req.DurationHours <= 0 || req.DurationHours > models.MaxDurationHours || req.ScheduledDate.IsZero() {
		return nil, ErrInvalidDuration
	}
	start := req.ScheduledDate.UTC()
	end := models.EndOf(start, req.DurationHours)
	now := a.Clock.Now()
	if !end.After(now) {
		return nil, ErrSlotInPast
	}

	status := req.Status
	if status == "" {
		status = models.StatusRequested
	}
	if !status.IsBlocking() {
		return nil, newError(ErrValidation, "status '%s' cannot be allocated", status)
	}

	if err := a.checkCaregiver(ctx, req.CaregiverID); err != nil {
		return nil, err
	}

	urgency := req.UrgencyLevel
	if urgency == "" {
		urgency = models.UrgencyMedium
	}
	caregiverID := req.CaregiverID
	booking := &models.Booking{
		CareRecipientID:    req.CareRecipientID,
		CaregiverID:        &caregiverID,
		ServiceType:        req.ServiceType,
		ScheduledDate:      start,
		DurationHours:      req.DurationHours,
		EndsAt:             end,
		Status:             status,
		UrgencyLevel:       urgency,
		IsEmergency:        req.IsEmergency,
		Location:           req.Location,
		SpecificNeeds:      req.SpecificNeeds,
		VideoCallRequestID: req.VideoCallRequestID,
		ChatSessionID:      req.ChatSessionID,
	}
	if status != models.StatusRequested {
		booking.AcceptedAt = &now
	}

	err := a.Tx.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := a.Caregivers.LockProfile(ctx, tx, caregiverID); err != nil {
			return dbError("lock caregiver", err)
		}

		clashes, err := a.Bookings.FindOverlapping(ctx, tx, caregiverID, start, end, "")
		if err != nil {
			return dbError("check overlap", err)
		}
		if len(clashes) > 0 {
			a.Log.Info("slot already taken", "caregiver_id", caregiverID, "start", start, "clash_id", clashes[0].ID)
			return ErrSlotTaken
		}

		if err := a.Bookings.Create(ctx, tx, booking); err != nil {
			switch {
			case repository.IsOverlapViolation(err):
				return ErrSlotTaken
			case repository.IsUniqueViolation(err) && req.VideoCallRequestID != nil:
				return ErrVideoCallBooked
			}
			return dbError("create booking", err)
		}
		return nil
	})
	if err != nil {
		if repository.IsOverlapViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, classify("allocate slot", err)
	}

	a.Log.Info("slot allocated", "booking_id", booking.ID, "caregiver_id", caregiverID, "start", start, "end", end)
	return booking, nil
}

func (a *allocator) checkCaregiver(ctx context.Context, caregiverID string) error {
	if caregiverID == "" {
		return ErrCaregiverUnavailable
	}
	user, err := a.Users.FindByID(ctx, caregiverID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrCaregiverUnavailable
		}
		return dbError("load caregiver", err)
	}
	if user.Role != models.RoleCaregiver || !user.IsActive {
		return ErrCaregiverUnavailable
	}
	return nil
}
