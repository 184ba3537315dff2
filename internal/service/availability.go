package service

import (
	"context"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"gorm.io/gorm"
)

type AvailabilityService interface {
	Recompute(ctx context.Context, caregiverID string) (models.Availability, error)
}

type availabilityService struct {
	Deps
}

func NewAvailabilityService(deps Deps) AvailabilityService {
	return &availabilityService{Deps: deps.withDefaults()}
}

// Recompute derives the caregiver's availability flag. A manual
// "unavailable" is never overwritten. Otherwise the caregiver is busy while
// holding any blocking booking, or an in-progress call, or an accepted call
// whose linked bookings are not all finished.
func (s *availabilityService) Recompute(ctx context.Context, caregiverID string) (models.Availability, error) {
	var result models.Availability
	err := s.Tx.Transaction(ctx, func(tx *gorm.DB) error {
		profile, err := s.Caregivers.LockProfile(ctx, tx, caregiverID)
		if err != nil {
			return dbError("lock caregiver", err)
		}
		if profile.AvailabilityStatus == models.AvailabilityUnavailable {
			result = profile.AvailabilityStatus
			return nil
		}

		busy, err := s.isBusy(ctx, tx, caregiverID)
		if err != nil {
			return err
		}
		result = models.AvailabilityAvailable
		if busy {
			result = models.AvailabilityBusy
		}
		if result == profile.AvailabilityStatus {
			return nil
		}
		if err := s.Caregivers.SetAvailability(ctx, tx, caregiverID, result); err != nil {
			return dbError("update availability", err)
		}
		s.Log.Debug("caregiver availability changed", "caregiver_id", caregiverID, "from", profile.AvailabilityStatus, "to", result)
		return nil
	})
	if err != nil {
		return "", classify("recompute availability", err)
	}
	return result, nil
}

func (s *availabilityService) isBusy(ctx context.Context, tx *gorm.DB, caregiverID string) (bool, error) {
	n, err := s.Bookings.CountBlocking(ctx, tx, caregiverID)
	if err != nil {
		return false, dbError("count bookings", err)
	}
	if n > 0 {
		return true, nil
	}

	calls, err := s.VideoCalls.ListActiveForCaregiver(ctx, tx, caregiverID)
	if err != nil {
		return false, dbError("list video calls", err)
	}
	var accepted []string
	for _, c := range calls {
		if c.Status == models.CallInProgress {
			return true, nil
		}
		accepted = append(accepted, c.ID)
	}
	if len(accepted) == 0 {
		return false, nil
	}

	linked, err := s.Bookings.ListByVideoCalls(ctx, tx, accepted)
	if err != nil {
		return false, dbError("list linked bookings", err)
	}
	for _, b := range linked {
		if !b.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

// refreshAvailability is the post-commit hook used by the mutating services.
func refreshAvailability(ctx context.Context, d Deps, svc AvailabilityService, caregiverID *string) {
	if svc == nil || caregiverID == nil {
		return
	}
	if _, err := svc.Recompute(ctx, *caregiverID); err != nil {
		d.Log.Warn("availability recompute failed", "caregiver_id", *caregiverID, "error", err)
	}
}
