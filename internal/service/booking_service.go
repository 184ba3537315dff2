package service

import (
	"context"
	"strings"
	"time"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/Eursukkul/care-booking-service/internal/notification"
	"github.com/Eursukkul/care-booking-service/internal/repository"
	"gorm.io/gorm"
)

const maxNoteLength = 2000

type CreateBookingInput struct {
	CaregiverID   *string
	ServiceType   models.ServiceType
	ScheduledDate time.Time
	DurationHours float64
	UrgencyLevel  models.UrgencyLevel
	Location      map[string]any
	SpecificNeeds *string
	// Status is draft or requested; empty means requested.
	Status models.BookingStatus
}

type BookSlotInput struct {
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
}

type BookingService interface {
	CreateBooking(ctx context.Context, actor models.Actor, in CreateBookingInput) (*models.Booking, error)
	BookSlot(ctx context.Context, actor models.Actor, in BookSlotInput) (*models.Booking, error)
	GetBooking(ctx context.Context, actor models.Actor, id string) (*models.Booking, error)
	ListBookings(ctx context.Context, actor models.Actor, status *models.BookingStatus) ([]models.Booking, error)
	Transition(ctx context.Context, actor models.Actor, id string, target models.BookingStatus, reason *string) (*models.Booking, error)
	Respond(ctx context.Context, actor models.Actor, id, response string, reason *string) (*models.Booking, error)
	Complete(ctx context.Context, actor models.Actor, id string) (*models.Booking, error)
	CompletePayment(ctx context.Context, actor models.Actor, id string) (*models.Booking, error)
	ConfirmPayment(ctx context.Context, eventID, bookingID string) (*models.Booking, error)
	History(ctx context.Context, actor models.Actor, id string) ([]models.BookingHistory, error)
	AddNote(ctx context.Context, actor models.Actor, id, note string, private bool) (*models.BookingNote, error)
	ListNotes(ctx context.Context, actor models.Actor, id string) ([]models.BookingNote, error)
}

type bookingService struct {
	Deps
	allocator    Allocator
	availability AvailabilityService
}

func NewBookingService(deps Deps, allocator Allocator, availability AvailabilityService) BookingService {
	return &bookingService{
		Deps:         deps.withDefaults(),
		allocator:    allocator,
		availability: availability,
	}
}

// CreateBooking creates a draft, or a requested booking. A requested booking
// with a caregiver goes through the allocator; the latest accepted video call
// not yet backing a booking and an enabled chat between the pair are linked
// when present.
func (s *bookingService) CreateBooking(ctx context.Context, actor models.Actor, in CreateBookingInput) (*models.Booking, error) {
	if actor.Role != models.RoleCareRecipient {
		return nil, newError(ErrForbidden, "only care recipients can create bookings")
	}
	status := in.Status
	if status == "" {
		status = models.StatusRequested
	}
	if status != models.StatusDraft && status != models.StatusRequested {
		return nil, newError(ErrValidation, "new bookings must be 'draft' or 'requested'")
	}
	urgency := in.UrgencyLevel
	if urgency == "" {
		urgency = models.UrgencyMedium
	}

	var videoCallID, chatID *string
	if in.CaregiverID != nil {
		videoCallID, chatID = s.pairLinks(ctx, actor.ID, *in.CaregiverID)
	}

	var (
		booking *models.Booking
		err     error
	)
	if status == models.StatusRequested && in.CaregiverID != nil {
		booking, err = s.allocator.BookSlotAtomic(ctx, BookSlotRequest{
			CareRecipientID:    actor.ID,
			CaregiverID:        *in.CaregiverID,
			ServiceType:        in.ServiceType,
			ScheduledDate:      in.ScheduledDate,
			DurationHours:      in.DurationHours,
			UrgencyLevel:       urgency,
			IsEmergency:        urgency == models.UrgencyEmergency,
			Location:           in.Location,
			SpecificNeeds:      in.SpecificNeeds,
			VideoCallRequestID: videoCallID,
			ChatSessionID:      chatID,
		})
		if err != nil {
			return nil, err
		}
		s.afterCreate(ctx, actor, booking, "Initial booking creation (atomic)")
		return booking, nil
	}

	// Drafts and caregiver-less requests do not hold a slot, so they skip
	// the allocator.
	if in.DurationHours <= 0 || in.DurationHours > models.MaxDurationHours || in.ScheduledDate.IsZero() {
		return nil, ErrInvalidDuration
	}
	start := in.ScheduledDate.UTC()
	booking = &models.Booking{
		CareRecipientID:    actor.ID,
		CaregiverID:        in.CaregiverID,
		ServiceType:        in.ServiceType,
		ScheduledDate:      start,
		DurationHours:      in.DurationHours,
		EndsAt:             models.EndOf(start, in.DurationHours),
		Status:             status,
		UrgencyLevel:       urgency,
		IsEmergency:        urgency == models.UrgencyEmergency,
		Location:           in.Location,
		SpecificNeeds:      in.SpecificNeeds,
		VideoCallRequestID: videoCallID,
		ChatSessionID:      chatID,
	}
	if err := s.Bookings.Create(ctx, nil, booking); err != nil {
		return nil, dbError("create booking", err)
	}
	s.afterCreate(ctx, actor, booking, "Initial booking creation")
	return booking, nil
}

// BookSlot books an explicit slot with a known caregiver.
func (s *bookingService) BookSlot(ctx context.Context, actor models.Actor, in BookSlotInput) (*models.Booking, error) {
	if actor.Role != models.RoleCareRecipient {
		return nil, newError(ErrForbidden, "only care recipients can book slots")
	}
	if in.VideoCallRequestID != nil {
		call, err := s.VideoCalls.FindByID(ctx, *in.VideoCallRequestID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrVideoCallNotFound
			}
			return nil, dbError("load video call", err)
		}
		if call.CareRecipientID != actor.ID || call.CaregiverID != in.CaregiverID {
			return nil, newError(ErrValidation, "video call does not belong to this care recipient and caregiver")
		}
	}
	if in.ChatSessionID != nil {
		chat, err := s.Chats.FindByID(ctx, *in.ChatSessionID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrChatNotFound
			}
			return nil, dbError("load chat session", err)
		}
		if chat.CareRecipientID != actor.ID || chat.CaregiverID != in.CaregiverID {
			return nil, newError(ErrValidation, "chat session does not belong to this care recipient and caregiver")
		}
	}

	booking, err := s.allocator.BookSlotAtomic(ctx, BookSlotRequest{
		CareRecipientID:    actor.ID,
		CaregiverID:        in.CaregiverID,
		ServiceType:        in.ServiceType,
		ScheduledDate:      in.ScheduledDate,
		DurationHours:      in.DurationHours,
		UrgencyLevel:       in.UrgencyLevel,
		IsEmergency:        in.IsEmergency,
		Location:           in.Location,
		SpecificNeeds:      in.SpecificNeeds,
		VideoCallRequestID: in.VideoCallRequestID,
		ChatSessionID:      in.ChatSessionID,
	})
	if err != nil {
		return nil, err
	}
	s.afterCreate(ctx, actor, booking, "Slot booking")
	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, actor models.Actor, id string) (*models.Booking, error) {
	booking, err := s.Bookings.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrBookingNotFound
		}
		return nil, dbError("load booking", err)
	}
	if !booking.IsParty(actor.ID) {
		return nil, ErrNotParty
	}
	return booking, nil
}

func (s *bookingService) ListBookings(ctx context.Context, actor models.Actor, status *models.BookingStatus) ([]models.Booking, error) {
	if status != nil && !status.Valid() {
		return nil, newError(ErrValidation, "invalid status filter '%s'", *status)
	}
	bookings, err := s.Bookings.ListForUser(ctx, actor.ID, status)
	if err != nil {
		return nil, dbError("list bookings", err)
	}
	return bookings, nil
}

// Transition applies a status change under the state machine.
func (s *bookingService) Transition(ctx context.Context, actor models.Actor, id string, target models.BookingStatus, reason *string) (*models.Booking, error) {
	return s.apply(ctx, actor, id, change{
		target:        target,
		reason:        reason,
		terminalFirst: true,
	})
}

// Respond is the caregiver's answer to a requested booking. "rejected" is
// accepted as an alias of cancelled.
func (s *bookingService) Respond(ctx context.Context, actor models.Actor, id, response string, reason *string) (*models.Booking, error) {
	var target models.BookingStatus
	switch response {
	case string(models.StatusAccepted):
		target = models.StatusAccepted
	case string(models.StatusCancelled), "rejected":
		target = models.StatusCancelled
	default:
		return nil, newError(ErrValidation, "Response status must be 'accepted' or 'cancelled'")
	}

	c := change{
		target: target,
		reason: reason,
		guard: func(b *models.Booking) error {
			if b.CaregiverID == nil || *b.CaregiverID != actor.ID {
				return newError(ErrForbidden, "You are not assigned to this booking")
			}
			return nil
		},
	}
	if target == models.StatusCancelled && reason == nil {
		c.reason = ptr("Rejected by caregiver")
	}
	return s.apply(ctx, actor, id, c)
}

// Complete finishes an in-progress booking and its linked video call.
func (s *bookingService) Complete(ctx context.Context, actor models.Actor, id string) (*models.Booking, error) {
	return s.apply(ctx, actor, id, change{
		target: models.StatusCompleted,
		extra: func(ctx context.Context, tx *gorm.DB, b *models.Booking, now time.Time) (map[string]any, error) {
			if b.VideoCallRequestID == nil {
				return nil, nil
			}
			if err := s.VideoCalls.UpdateFields(ctx, tx, *b.VideoCallRequestID, map[string]any{
				"status":       models.CallCompleted,
				"completed_at": now,
				"updated_at":   now,
			}); err != nil && !repository.IsNotFound(err) {
				return nil, dbError("complete video call", err)
			}
			return nil, nil
		},
	})
}

// CompletePayment moves an accepted booking to confirmed on the care
// recipient's behalf and force-enables the pair's chat.
func (s *bookingService) CompletePayment(ctx context.Context, actor models.Actor, id string) (*models.Booking, error) {
	return s.apply(ctx, actor, id, s.paymentChange(ptr("Payment completed"), func(b *models.Booking) error {
		if b.CareRecipientID != actor.ID {
			return newError(ErrForbidden, "Only the care recipient can complete payment")
		}
		return nil
	}, nil))
}

// ConfirmPayment handles a payment.paid event. Redelivery of the same event
// id is a no-op.
func (s *bookingService) ConfirmPayment(ctx context.Context, eventID, bookingID string) (*models.Booking, error) {
	seen, err := s.ConsumedEvents.Exists(ctx, nil, eventID)
	if err != nil {
		return nil, dbError("check consumed event", err)
	}
	if seen {
		s.Log.Info("payment event already processed", "event_id", eventID, "booking_id", bookingID)
		booking, err := s.Bookings.FindByID(ctx, bookingID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrBookingNotFound
			}
			return nil, dbError("load booking", err)
		}
		return booking, nil
	}

	system := models.Actor{ID: "system:payment", Role: models.RoleSystem}
	return s.apply(ctx, system, bookingID, s.paymentChange(ptr("Payment received"), nil,
		func(ctx context.Context, tx *gorm.DB) error {
			err := s.ConsumedEvents.Record(ctx, tx, &models.ConsumedEvent{ID: eventID, EventKey: "payment.paid"})
			if repository.IsUniqueViolation(err) {
				return newError(ErrConflict, "payment event %s already processed", eventID)
			}
			return classify("record consumed event", err)
		}))
}

func (s *bookingService) paymentChange(reason *string, guard func(*models.Booking) error, record func(context.Context, *gorm.DB) error) change {
	return change{
		target: models.StatusConfirmed,
		reason: reason,
		guard:  guard,
		validate: func(b *models.Booking, _ models.Role) error {
			if b.Status.IsTerminal() {
				return newError(ErrConflict, "Booking is already %s and can no longer change status.", b.Status)
			}
			if b.Status != models.StatusAccepted {
				return newError(ErrConflict, "Payment can only be completed for an accepted booking. Current status: %s", b.Status)
			}
			if b.CaregiverID == nil {
				return newError(ErrValidation, "booking has no caregiver")
			}
			return nil
		},
		extra: func(ctx context.Context, tx *gorm.DB, b *models.Booking, now time.Time) (map[string]any, error) {
			if record != nil {
				if err := record(ctx, tx); err != nil {
					return nil, err
				}
			}
			chat, _, err := forceEnableChat(ctx, s.Chats, tx, b.CareRecipientID, *b.CaregiverID, b.VideoCallRequestID, now)
			if err != nil {
				return nil, err
			}
			if b.ChatSessionID != nil && *b.ChatSessionID == chat.ID {
				return nil, nil
			}
			b.ChatSessionID = &chat.ID
			return map[string]any{"chat_session_id": chat.ID}, nil
		},
		after: func(ctx context.Context, b *models.Booking) {
			msgs := []notification.Message{notification.PaymentConfirmed(b.CareRecipientID, b.ID)}
			if b.CaregiverID != nil {
				msgs = append(msgs, notification.PaymentConfirmed(*b.CaregiverID, b.ID))
			}
			if b.ChatSessionID != nil {
				msgs = append(msgs, notification.ChatEnabled(b.CareRecipientID, *b.ChatSessionID))
				if b.CaregiverID != nil {
					msgs = append(msgs, notification.ChatEnabled(*b.CaregiverID, *b.ChatSessionID))
				}
			}
			s.notify(ctx, msgs...)
		},
	}
}

func (s *bookingService) History(ctx context.Context, actor models.Actor, id string) ([]models.BookingHistory, error) {
	if _, err := s.GetBooking(ctx, actor, id); err != nil {
		return nil, err
	}
	entries, err := s.StatusHistory.ListByBooking(ctx, id)
	if err != nil {
		return nil, dbError("list booking history", err)
	}
	return entries, nil
}

func (s *bookingService) AddNote(ctx context.Context, actor models.Actor, id, text string, private bool) (*models.BookingNote, error) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxNoteLength {
		return nil, newError(ErrValidation, "note must be between 1 and %d characters", maxNoteLength)
	}
	if _, err := s.GetBooking(ctx, actor, id); err != nil {
		return nil, err
	}
	note := &models.BookingNote{
		BookingID: id,
		UserID:    actor.ID,
		Note:      text,
		IsPrivate: private,
	}
	if err := s.Notes.Create(ctx, note); err != nil {
		return nil, dbError("create note", err)
	}
	return note, nil
}

// ListNotes hides other users' private notes.
func (s *bookingService) ListNotes(ctx context.Context, actor models.Actor, id string) ([]models.BookingNote, error) {
	if _, err := s.GetBooking(ctx, actor, id); err != nil {
		return nil, err
	}
	notes, err := s.Notes.ListByBooking(ctx, id, actor.ID)
	if err != nil {
		return nil, dbError("list notes", err)
	}
	return notes, nil
}

// change describes one status mutation run by apply.
type change struct {
	target models.BookingStatus
	reason *string
	// guard runs before the same-status short circuit.
	guard func(b *models.Booking) error
	// terminalFirst rejects a finished booking even when target equals its status.
	terminalFirst bool
	// validate replaces the state machine check when set.
	validate func(b *models.Booking, role models.Role) error
	// extra runs inside the transaction and may add columns to the update.
	extra func(ctx context.Context, tx *gorm.DB, b *models.Booking, now time.Time) (map[string]any, error)
	// after runs once the transaction has committed.
	after func(ctx context.Context, b *models.Booking)
}

func (s *bookingService) apply(ctx context.Context, actor models.Actor, id string, c change) (*models.Booking, error) {
	var (
		booking *models.Booking
		prev    models.BookingStatus
		changed bool
	)
	now := s.Clock.Now()

	err := s.Tx.Transaction(ctx, func(tx *gorm.DB) error {
		// 1. Lock the booking row
		b, err := s.Bookings.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrBookingNotFound
			}
			return dbError("load booking", err)
		}
		booking, prev = b, b.Status

		// 2. Authorize
		if actor.Role != models.RoleSystem && !b.IsParty(actor.ID) {
			return ErrNotParty
		}
		if c.guard != nil {
			if err := c.guard(b); err != nil {
				return err
			}
		}

		// 3. Same status is a no-op, except on a finished booking for direct transitions
		if c.terminalFirst && b.Status.IsTerminal() {
			return ValidateTransition(b.Status, c.target, partyRole(b, actor.ID))
		}
		if b.Status == c.target {
			return nil
		}

		// 4. Validate against the state machine
		validate := c.validate
		if validate == nil {
			validate = func(b *models.Booking, role models.Role) error {
				return ValidateTransition(b.Status, c.target, role)
			}
		}
		if err := validate(b, partyRole(b, actor.ID)); err != nil {
			return err
		}

		// 5. Re-check the caregiver's calendar when the booking starts blocking
		if c.target.IsBlocking() && !b.Status.IsBlocking() && b.CaregiverID != nil {
			if _, err := s.Caregivers.LockProfile(ctx, tx, *b.CaregiverID); err != nil {
				return dbError("lock caregiver", err)
			}
			clashes, err := s.Bookings.FindOverlapping(ctx, tx, *b.CaregiverID, b.ScheduledDate, b.EndsAt, b.ID)
			if err != nil {
				return dbError("check overlap", err)
			}
			if len(clashes) > 0 {
				return ErrCaregiverBusy
			}
		}

		// 6. Write the change and its history row
		fields := map[string]any{"status": c.target, "updated_at": now}
		switch c.target {
		case models.StatusAccepted, models.StatusConfirmed:
			if b.AcceptedAt == nil {
				fields["accepted_at"] = now
				b.AcceptedAt = &now
			}
		case models.StatusCompleted:
			fields["completed_at"] = now
			b.CompletedAt = &now
		case models.StatusCancelled:
			if c.reason != nil {
				fields["cancellation_reason"] = *c.reason
				b.CancellationReason = c.reason
			}
		}
		if c.extra != nil {
			more, err := c.extra(ctx, tx, b, now)
			if err != nil {
				return err
			}
			for k, v := range more {
				fields[k] = v
			}
		}
		if err := s.Bookings.UpdateFields(ctx, tx, b.ID, fields); err != nil {
			if repository.IsOverlapViolation(err) {
				if partyRole(b, actor.ID) == models.RoleCaregiver && c.target == models.StatusAccepted {
					return ErrCaregiverOverlap
				}
				return ErrCaregiverBusy
			}
			return dbError("update booking", err)
		}
		if err := s.StatusHistory.Append(ctx, tx, &models.BookingHistory{
			BookingID:      b.ID,
			PreviousStatus: &prev,
			NewStatus:      c.target,
			ChangedBy:      actor.ID,
			Reason:         c.reason,
		}); err != nil {
			return dbError("record history", err)
		}

		b.Status = c.target
		b.UpdatedAt = now
		changed = true
		return nil
	})
	if err != nil {
		return nil, classify("update booking status", err)
	}
	if !changed {
		return booking, nil
	}

	s.Log.Info("booking status changed", "booking_id", booking.ID, "from", prev, "to", booking.Status, "by", actor.ID)
	s.invalidateSlots(ctx, booking.CaregiverID)
	refreshAvailability(ctx, s.Deps, s.availability, booking.CaregiverID)
	s.publish(ctx, RoutingBookingStatusChanged, bookingEvent(booking, &prev, actor.ID, now))

	parties := []string{booking.CareRecipientID}
	if booking.CaregiverID != nil {
		parties = append(parties, *booking.CaregiverID)
	}
	if s.Notifier != nil {
		s.Notifier.DispatchBookingStatus(ctx, booking.ID, booking.Status, parties...)
	}
	if other := booking.OtherParty(actor.ID); other != "" && actor.Role != models.RoleSystem {
		s.notify(ctx, notification.BookingStatusChanged(other, booking.ID, booking.Status))
	}
	if c.after != nil {
		c.after(ctx, booking)
	}
	return booking, nil
}

func (s *bookingService) afterCreate(ctx context.Context, actor models.Actor, b *models.Booking, reason string) {
	if err := s.StatusHistory.Append(ctx, nil, &models.BookingHistory{
		BookingID: b.ID,
		NewStatus: b.Status,
		ChangedBy: actor.ID,
		Reason:    &reason,
	}); err != nil {
		s.Log.Warn("initial history write failed", "booking_id", b.ID, "error", err)
	}
	if b.Status.IsBlocking() {
		s.invalidateSlots(ctx, b.CaregiverID)
		refreshAvailability(ctx, s.Deps, s.availability, b.CaregiverID)
	}
	s.publish(ctx, RoutingBookingCreated, bookingEvent(b, nil, actor.ID, b.CreatedAt))
	if b.Status == models.StatusRequested && b.CaregiverID != nil {
		s.notify(ctx, notification.BookingCreated(b))
	}
	s.Log.Info("booking created", "booking_id", b.ID, "status", b.Status, "emergency", b.IsEmergency)
}

// pairLinks finds the latest accepted video call and an enabled chat between
// the pair. Lookup failures only mean nothing gets linked.
func (s *bookingService) pairLinks(ctx context.Context, recipientID, caregiverID string) (videoCallID, chatID *string) {
	if call, err := s.VideoCalls.FindLatestAccepted(ctx, recipientID, caregiverID); err == nil {
		// A call backs at most one booking; later bookings of the pair stay unlinked.
		_, err := s.Bookings.FindByVideoCall(ctx, nil, call.ID)
		switch {
		case repository.IsNotFound(err):
			videoCallID = &call.ID
		case err != nil:
			s.Log.Warn("video call booking lookup failed", "video_call_id", call.ID, "error", err)
		}
	} else if !repository.IsNotFound(err) {
		s.Log.Warn("video call lookup failed", "caregiver_id", caregiverID, "error", err)
	}
	if chat, err := s.Chats.FindByPair(ctx, nil, recipientID, caregiverID); err == nil {
		if chat.IsEnabled {
			chatID = &chat.ID
		}
	} else if !repository.IsNotFound(err) {
		s.Log.Warn("chat lookup failed", "caregiver_id", caregiverID, "error", err)
	}
	return videoCallID, chatID
}
