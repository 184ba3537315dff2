package service

import (
	"github.com/Eursukkul/care-booking-service/internal/models"
)

// transitions maps (current status, actor role) to the permitted targets.
var transitions = map[models.BookingStatus]map[models.Role][]models.BookingStatus{
	models.StatusDraft: {
		models.RoleCareRecipient: {models.StatusRequested},
	},
	models.StatusRequested: {
		models.RoleCareRecipient: {models.StatusCancelled},
		models.RoleCaregiver:     {models.StatusAccepted, models.StatusCancelled},
	},
	models.StatusAccepted: {
		models.RoleCareRecipient: {models.StatusCancelled},
		models.RoleCaregiver:     {models.StatusCancelled},
	},
	models.StatusConfirmed: {
		models.RoleCareRecipient: {models.StatusCancelled},
		models.RoleCaregiver:     {models.StatusInProgress, models.StatusCancelled},
	},
	models.StatusInProgress: {
		models.RoleCareRecipient: {models.StatusCompleted, models.StatusCancelled},
		models.RoleCaregiver:     {models.StatusCompleted, models.StatusCancelled},
	},
}

// AllowedTargets lists where role may move a booking currently in status.
func AllowedTargets(status models.BookingStatus, role models.Role) []models.BookingStatus {
	return transitions[status][role]
}

// ValidateTransition checks a status change without applying it. A finished
// booking always fails with Conflict; otherwise a target equal to the current
// status is not a transition and callers treat it as a no-op.
func ValidateTransition(current, target models.BookingStatus, role models.Role) error {
	if current.IsTerminal() {
		return newError(ErrConflict, "Booking is already %s and can no longer change status.", current)
	}
	if !target.Valid() {
		return newError(ErrValidation, "invalid target status '%s'", target)
	}
	if contains(transitions[current][role], target) {
		return nil
	}

	for _, targets := range transitions[current] {
		if contains(targets, target) {
			return newError(ErrForbidden, "Role '%s' is not authorized to transition from '%s' to '%s'", role, current, target)
		}
	}
	if target == models.StatusCompleted {
		return newError(ErrConflict, "Booking can only be marked completed when the visit is in progress. Current status: '%s'.", current)
	}
	return newError(ErrConflict, "Transition from '%s' to '%s' is invalid", current, target)
}

func contains(list []models.BookingStatus, s models.BookingStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
