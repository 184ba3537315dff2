package service

import (
	"context"
	"time"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/Eursukkul/care-booking-service/internal/repository"
)

type SlotService interface {
	ListSlots(ctx context.Context, caregiverID string, from, to time.Time, slotMinutes int) ([]models.Slot, error)
	CheckSlotAvailable(ctx context.Context, caregiverID string, start, end time.Time) (bool, error)
}

type SlotOptions struct {
	// Buffer widens the booking fetch on both sides of the requested range.
	Buffer time.Duration
	// MaxRange caps to-from; zero means unbounded.
	MaxRange time.Duration
}

type slotService struct {
	Deps
	opts SlotOptions
}

func NewSlotService(deps Deps, opts SlotOptions) SlotService {
	return &slotService{Deps: deps.withDefaults(), opts: opts}
}

// ListSlots partitions [from, to) into contiguous slots of slotMinutes. A
// trailing remainder shorter than one slot is dropped. A slot is unavailable
// when it has already ended or overlaps a blocking booking of the caregiver.
func (s *slotService) ListSlots(ctx context.Context, caregiverID string, from, to time.Time, slotMinutes int) ([]models.Slot, error) {
	from, to = from.UTC(), to.UTC()
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}
	if slotMinutes <= 0 {
		return nil, newError(ErrValidation, "slot_minutes must be positive")
	}
	if s.opts.MaxRange > 0 && to.Sub(from) > s.opts.MaxRange {
		return nil, newError(ErrValidation, "requested range exceeds %s", s.opts.MaxRange)
	}
	if err := s.checkCaregiver(ctx, caregiverID); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	var cacheKey string
	if s.Cache != nil {
		cached, key, ok, err := s.Cache.Get(ctx, caregiverID, from, to, slotMinutes)
		cacheKey = key
		if err != nil {
			s.Log.Warn("slot cache read failed", "caregiver_id", caregiverID, "error", err)
		} else if ok {
			return markPast(cached, now), nil
		}
	}

	busy, err := s.Bookings.FindOverlapping(ctx, nil, caregiverID, from.Add(-s.opts.Buffer), to.Add(s.opts.Buffer), "")
	if err != nil {
		return nil, dbError("load bookings", err)
	}

	step := time.Duration(slotMinutes) * time.Minute
	slots := make([]models.Slot, 0, int(to.Sub(from)/step))
	for start := from; !start.Add(step).After(to); start = start.Add(step) {
		end := start.Add(step)
		available := true
		for i := range busy {
			if models.Overlaps(start, end, busy[i].ScheduledDate, busy[i].EndsAt) {
				available = false
				break
			}
		}
		slots = append(slots, models.Slot{Start: start, End: end, Available: available})
	}

	if s.Cache != nil && cacheKey != "" {
		if err := s.Cache.Set(ctx, cacheKey, slots); err != nil {
			s.Log.Warn("slot cache write failed", "caregiver_id", caregiverID, "error", err)
		}
	}
	return markPast(slots, now), nil
}

// CheckSlotAvailable reports whether [start, end) is free of blocking bookings.
func (s *slotService) CheckSlotAvailable(ctx context.Context, caregiverID string, start, end time.Time) (bool, error) {
	if !start.Before(end) {
		return false, ErrInvalidRange
	}
	clashes, err := s.Bookings.FindOverlapping(ctx, nil, caregiverID, start.UTC(), end.UTC(), "")
	if err != nil {
		return false, dbError("check overlap", err)
	}
	return len(clashes) == 0, nil
}

func (s *slotService) checkCaregiver(ctx context.Context, caregiverID string) error {
	user, err := s.Users.FindByID(ctx, caregiverID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrCaregiverNotFound
		}
		return dbError("load caregiver", err)
	}
	if user.Role != models.RoleCaregiver {
		return ErrCaregiverNotFound
	}
	if !user.IsActive {
		return ErrCaregiverUnavailable
	}
	return nil
}

// markPast is applied on every read since cached grids outlive "now".
func markPast(slots []models.Slot, now time.Time) []models.Slot {
	out := make([]models.Slot, len(slots))
	for i, sl := range slots {
		if !sl.End.After(now) {
			sl.Available = false
		}
		out[i] = sl
	}
	return out
}
