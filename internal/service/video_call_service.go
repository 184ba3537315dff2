package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/Eursukkul/care-booking-service/internal/notification"
	"github.com/Eursukkul/care-booking-service/internal/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

type CreateVideoCallInput struct {
	CaregiverID     string
	ScheduledTime   time.Time
	DurationSeconds int
}

// AcceptResult carries what the acceptance produced. Booking and Chat are
// nil until the caregiver has accepted.
type AcceptResult struct {
	VideoCall *models.VideoCallRequest `json:"video_call"`
	Booking   *models.Booking          `json:"booking,omitempty"`
	Chat      *models.ChatSession      `json:"chat_session,omitempty"`
}

type VideoCallService interface {
	CreateVideoCall(ctx context.Context, actor models.Actor, in CreateVideoCallInput) (*models.VideoCallRequest, error)
	GetVideoCall(ctx context.Context, actor models.Actor, id string) (*models.VideoCallRequest, error)
	Accept(ctx context.Context, actor models.Actor, id string, accept bool) (*AcceptResult, error)
	Join(ctx context.Context, actor models.Actor, id string) (*models.VideoCallRequest, error)
	UpdateStatus(ctx context.Context, actor models.Actor, id string, status models.VideoCallStatus) (*models.VideoCallRequest, error)
	Complete(ctx context.Context, actor models.Actor, id string) (*models.VideoCallRequest, error)
}

type videoCallService struct {
	Deps
	allocator    Allocator
	availability AvailabilityService
	baseURL      string
}

func NewVideoCallService(deps Deps, allocator Allocator, availability AvailabilityService, baseURL string) VideoCallService {
	return &videoCallService{
		Deps:         deps.withDefaults(),
		allocator:    allocator,
		availability: availability,
		baseURL:      strings.TrimRight(baseURL, "/"),
	}
}

func (s *videoCallService) CreateVideoCall(ctx context.Context, actor models.Actor, in CreateVideoCallInput) (*models.VideoCallRequest, error) {
	if actor.Role != models.RoleCareRecipient {
		return nil, newError(ErrForbidden, "only care recipients can request video calls")
	}
	secs := in.DurationSeconds
	if secs == 0 {
		secs = models.DefaultCallSeconds
	}
	if secs < 1 || secs > models.MaxCallSeconds {
		return nil, newError(ErrValidation, "duration_seconds must be between 1 and %d", models.MaxCallSeconds)
	}
	if in.ScheduledTime.IsZero() {
		return nil, newError(ErrValidation, "scheduled_time is required")
	}
	start := in.ScheduledTime.UTC()
	end := start.Add(time.Duration(secs) * time.Second)
	if !end.After(s.Clock.Now()) {
		return nil, newError(ErrValidation, "Video call cannot be scheduled in the past.")
	}

	caregiver, err := s.Users.FindByID(ctx, in.CaregiverID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCaregiverNotFound
		}
		return nil, dbError("load caregiver", err)
	}
	if caregiver.Role != models.RoleCaregiver {
		return nil, ErrCaregiverNotFound
	}
	if !caregiver.IsActive {
		return nil, ErrCaregiverUnavailable
	}

	clashes, err := s.Bookings.FindOverlapping(ctx, nil, in.CaregiverID, start, end, "")
	if err != nil {
		return nil, dbError("check overlap", err)
	}
	if len(clashes) > 0 {
		return nil, ErrCaregiverBusy
	}

	id := uuid.NewString()
	call := &models.VideoCallRequest{
		ID:              id,
		CareRecipientID: actor.ID,
		CaregiverID:     in.CaregiverID,
		ScheduledTime:   start,
		DurationSeconds: secs,
		Status:          models.CallPending,
		VideoCallURL:    s.baseURL + "/" + id,
	}
	if err := s.VideoCalls.Create(ctx, call); err != nil {
		return nil, dbError("create video call", err)
	}

	s.notify(ctx, notification.VideoCallRequested(call.CaregiverID, call.ID))
	s.Log.Info("video call requested", "video_call_id", call.ID, "caregiver_id", call.CaregiverID)
	return call, nil
}

func (s *videoCallService) GetVideoCall(ctx context.Context, actor models.Actor, id string) (*models.VideoCallRequest, error) {
	call, err := s.VideoCalls.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrVideoCallNotFound
		}
		return nil, dbError("load video call", err)
	}
	if !call.IsParty(actor.ID) {
		return nil, ErrNotParty
	}
	return call, nil
}

// Accept records one party's answer. Once the caregiver has accepted, a
// booking and a disabled chat session are provisioned for the pair. If
// provisioning fails the request's flags and status are put back the way
// they were; a booking that was already created is left in place.
func (s *videoCallService) Accept(ctx context.Context, actor models.Actor, id string, accept bool) (*AcceptResult, error) {
	ctx, span := tracer.Start(ctx, "videocall.Accept")
	defer span.End()
	span.SetAttributes(attribute.String("video_call.id", id), attribute.Bool("accept", accept))

	var (
		call   *models.VideoCallRequest
		before models.VideoCallRequest
	)
	err := s.Tx.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		call, err = s.VideoCalls.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrVideoCallNotFound
			}
			return dbError("load video call", err)
		}
		if !call.IsParty(actor.ID) {
			return ErrNotParty
		}
		if call.Status.IsTerminal() {
			return ErrVideoCallFinalized
		}
		before = *call

		isCaregiver := actor.ID == call.CaregiverID
		if isCaregiver {
			call.CaregiverAccepted = accept
		} else {
			call.CareRecipientAccepted = accept
		}
		switch {
		case !accept:
			call.Status = models.CallDeclined
		case call.CaregiverAccepted && call.CareRecipientAccepted && call.Status == models.CallPending:
			call.Status = models.CallAccepted
		}
		call.UpdatedAt = s.Clock.Now()
		return classify("update video call", s.VideoCalls.UpdateFields(ctx, tx, call.ID, flagFields(call)))
	})
	if err != nil {
		span.RecordError(err)
		return nil, classify("accept video call", err)
	}

	result := &AcceptResult{VideoCall: call}
	other := call.OtherParty(actor.ID)
	if !accept || !call.CaregiverAccepted {
		s.notify(ctx, notification.VideoCallUpdated(other, call.ID, call.Status))
		return result, nil
	}

	booking, chat, created, err := s.provision(ctx, call)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		written := *call
		s.rollback(ctx, &before, &written, actor.ID == call.CaregiverID)
		return nil, rolledBack(err)
	}
	result.Booking, result.Chat = booking, chat

	if created {
		s.afterBookingCreated(ctx, actor, booking)
	}
	s.notify(ctx, notification.VideoCallUpdated(other, call.ID, call.Status))
	s.Log.Info("video call accepted", "video_call_id", call.ID, "booking_id", booking.ID, "chat_session_id", chat.ID, "booking_created", created)
	return result, nil
}

// provision finds or creates the booking for the call, then the pair's chat
// session, then links the two.
func (s *videoCallService) provision(ctx context.Context, call *models.VideoCallRequest) (*models.Booking, *models.ChatSession, bool, error) {
	created := false
	booking, err := s.Bookings.FindByVideoCall(ctx, nil, call.ID)
	switch {
	case err == nil:
	case repository.IsNotFound(err):
		booking, err = s.allocator.BookSlotAtomic(ctx, BookSlotRequest{
			CareRecipientID:    call.CareRecipientID,
			CaregiverID:        call.CaregiverID,
			ServiceType:        models.ServiceVideoCallSession,
			ScheduledDate:      call.ScheduledTime,
			DurationHours:      call.DurationHours(),
			UrgencyLevel:       models.UrgencyMedium,
			VideoCallRequestID: &call.ID,
		})
		if errors.Is(err, ErrVideoCallBooked) {
			booking, err = s.Bookings.FindByVideoCall(ctx, nil, call.ID)
		} else if err == nil {
			created = true
			s.recordCreation(ctx, call.CaregiverID, booking)
		}
		if err != nil {
			return nil, nil, created, classify("find booking", err)
		}
	default:
		return nil, nil, false, dbError("find booking", err)
	}

	chat, err := findOrCreateChat(ctx, s.Chats, nil, call.CareRecipientID, call.CaregiverID, &call.ID)
	if err != nil {
		return booking, nil, created, err
	}

	if booking.ChatSessionID == nil {
		if err := s.Bookings.UpdateFields(ctx, nil, booking.ID, map[string]any{"chat_session_id": chat.ID}); err != nil {
			return booking, chat, created, dbError("link chat session", err)
		}
		booking.ChatSessionID = &chat.ID
	}
	return booking, chat, created, nil
}

// rollback restores the request as it was before this accept. When the other
// party has answered in the meantime only the caller's own flag is undone, so
// their answer survives.
func (s *videoCallService) rollback(ctx context.Context, before, written *models.VideoCallRequest, byCaregiver bool) {
	ctx = context.WithoutCancel(ctx)
	var revert models.VideoCallRequest
	err := s.Tx.Transaction(ctx, func(tx *gorm.DB) error {
		cur, err := s.VideoCalls.FindByIDForUpdate(ctx, tx, before.ID)
		if err != nil {
			return err
		}
		if sameAnswers(cur, written) {
			revert = *before
		} else {
			revert = *cur
			if byCaregiver {
				revert.CaregiverAccepted = before.CaregiverAccepted
			} else {
				revert.CareRecipientAccepted = before.CareRecipientAccepted
			}
			if revert.Status == models.CallAccepted && !(revert.CaregiverAccepted && revert.CareRecipientAccepted) {
				revert.Status = models.CallPending
			}
		}
		revert.UpdatedAt = s.Clock.Now()
		return s.VideoCalls.UpdateFields(ctx, tx, before.ID, flagFields(&revert))
	})
	if err != nil {
		s.Log.Error("video call rollback failed", "video_call_id", before.ID, "error", err)
		return
	}
	s.Log.Warn("video call acceptance rolled back", "video_call_id", before.ID, "status", revert.Status)
}

func sameAnswers(a, b *models.VideoCallRequest) bool {
	return a.Status == b.Status &&
		a.CaregiverAccepted == b.CaregiverAccepted &&
		a.CareRecipientAccepted == b.CareRecipientAccepted
}

// rolledBack keeps conflict and validation failures as they are and
// reports anything else as a store failure.
func rolledBack(err error) error {
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrValidation) {
		return err
	}
	return &Error{Kind: ErrDatabase, Msg: "Operation failed and was rolled back", Err: err}
}

func flagFields(c *models.VideoCallRequest) map[string]any {
	return map[string]any{
		"status":                  c.Status,
		"care_recipient_accepted": c.CareRecipientAccepted,
		"caregiver_accepted":      c.CaregiverAccepted,
		"updated_at":              c.UpdatedAt,
	}
}

// recordCreation logs the new booking's first history row right away so it
// exists even if the rest of provisioning is rolled back.
func (s *videoCallService) recordCreation(ctx context.Context, by string, b *models.Booking) {
	reason := "Booking created from video call acceptance"
	if err := s.StatusHistory.Append(ctx, nil, &models.BookingHistory{
		BookingID: b.ID,
		NewStatus: b.Status,
		ChangedBy: by,
		Reason:    &reason,
	}); err != nil {
		s.Log.Warn("initial history write failed", "booking_id", b.ID, "error", err)
	}
}

func (s *videoCallService) afterBookingCreated(ctx context.Context, actor models.Actor, b *models.Booking) {
	s.invalidateSlots(ctx, b.CaregiverID)
	refreshAvailability(ctx, s.Deps, s.availability, b.CaregiverID)
	s.publish(ctx, RoutingBookingCreated, bookingEvent(b, nil, actor.ID, b.CreatedAt))
	s.notify(ctx, notification.BookingStatusChanged(b.CareRecipientID, b.ID, b.Status))
}

func (s *videoCallService) Join(ctx context.Context, actor models.Actor, id string) (*models.VideoCallRequest, error) {
	call, err := s.GetVideoCall(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if call.Status.IsTerminal() {
		return nil, ErrVideoCallFinalized
	}
	s.notify(ctx, notification.VideoCallJoined(call.OtherParty(actor.ID), call.ID))
	return call, nil
}

// UpdateStatus sets the call status directly. Finalized calls are immutable.
func (s *videoCallService) UpdateStatus(ctx context.Context, actor models.Actor, id string, status models.VideoCallStatus) (*models.VideoCallRequest, error) {
	if !status.Valid() {
		return nil, newError(ErrValidation, "invalid video call status '%s'", status)
	}
	call, changed, err := s.setStatus(ctx, actor, id, status, nil)
	if err != nil {
		return nil, err
	}
	if changed {
		s.afterStatusChange(ctx, actor, call)
	}
	return call, nil
}

// Complete finishes the call and completes its booking when that booking is
// in progress.
func (s *videoCallService) Complete(ctx context.Context, actor models.Actor, id string) (*models.VideoCallRequest, error) {
	var completed *models.Booking
	call, changed, err := s.setStatus(ctx, actor, id, models.CallCompleted, func(ctx context.Context, tx *gorm.DB, call *models.VideoCallRequest, now time.Time) error {
		b, err := s.Bookings.FindByVideoCall(ctx, tx, call.ID)
		if repository.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return dbError("find booking", err)
		}
		if b.Status != models.StatusInProgress {
			return nil
		}
		if err := s.Bookings.UpdateFields(ctx, tx, b.ID, map[string]any{
			"status":       models.StatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		}); err != nil {
			return dbError("complete booking", err)
		}
		prev := b.Status
		reason := "Completed with video call"
		if err := s.StatusHistory.Append(ctx, tx, &models.BookingHistory{
			BookingID:      b.ID,
			PreviousStatus: &prev,
			NewStatus:      models.StatusCompleted,
			ChangedBy:      actor.ID,
			Reason:         &reason,
		}); err != nil {
			return dbError("record history", err)
		}
		b.Status = models.StatusCompleted
		completed = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.afterStatusChange(ctx, actor, call)
	}
	if completed != nil {
		s.publish(ctx, RoutingBookingStatusChanged, bookingEvent(completed, ptr(models.StatusInProgress), actor.ID, call.UpdatedAt))
		if s.Notifier != nil {
			s.Notifier.DispatchBookingStatus(ctx, completed.ID, completed.Status, completed.CareRecipientID, call.CaregiverID)
		}
	}
	return call, nil
}

func (s *videoCallService) setStatus(ctx context.Context, actor models.Actor, id string, status models.VideoCallStatus,
	extra func(ctx context.Context, tx *gorm.DB, call *models.VideoCallRequest, now time.Time) error,
) (*models.VideoCallRequest, bool, error) {
	var (
		call    *models.VideoCallRequest
		changed bool
	)
	err := s.Tx.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		call, err = s.VideoCalls.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrVideoCallNotFound
			}
			return dbError("load video call", err)
		}
		if !call.IsParty(actor.ID) {
			return ErrNotParty
		}
		if call.Status == status {
			return nil
		}
		if call.Status.IsTerminal() {
			return ErrVideoCallFinalized
		}

		now := s.Clock.Now()
		fields := map[string]any{"status": status, "updated_at": now}
		if status == models.CallCompleted {
			fields["completed_at"] = now
			call.CompletedAt = &now
		}
		if err := s.VideoCalls.UpdateFields(ctx, tx, call.ID, fields); err != nil {
			return dbError("update video call", err)
		}
		if extra != nil {
			if err := extra(ctx, tx, call, now); err != nil {
				return err
			}
		}
		call.Status = status
		call.UpdatedAt = now
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, classify("update video call status", err)
	}
	return call, changed, nil
}

func (s *videoCallService) afterStatusChange(ctx context.Context, actor models.Actor, call *models.VideoCallRequest) {
	s.Log.Info("video call status changed", "video_call_id", call.ID, "status", call.Status, "by", actor.ID)
	if call.Status.IsTerminal() || call.Status == models.CallInProgress {
		s.invalidateSlots(ctx, &call.CaregiverID)
		refreshAvailability(ctx, s.Deps, s.availability, &call.CaregiverID)
	}
	s.notify(ctx, notification.VideoCallUpdated(call.OtherParty(actor.ID), call.ID, call.Status))
}
