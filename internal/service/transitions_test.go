package service

import (
	"errors"
	"testing"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestValidateTransition_AllowedPaths(t *testing.T) {
	cases := []struct {
		from, to models.BookingStatus
		role     models.Role
	}{
		{models.StatusDraft, models.StatusRequested, models.RoleCareRecipient},
		{models.StatusRequested, models.StatusAccepted, models.RoleCaregiver},
		{models.StatusRequested, models.StatusCancelled, models.RoleCareRecipient},
		{models.StatusRequested, models.StatusCancelled, models.RoleCaregiver},
		{models.StatusAccepted, models.StatusCancelled, models.RoleCaregiver},
		{models.StatusConfirmed, models.StatusInProgress, models.RoleCaregiver},
		{models.StatusInProgress, models.StatusCompleted, models.RoleCareRecipient},
		{models.StatusInProgress, models.StatusCompleted, models.RoleCaregiver},
	}
	for _, tc := range cases {
		assert.NoError(t, ValidateTransition(tc.from, tc.to, tc.role), "%s -> %s as %s", tc.from, tc.to, tc.role)
	}
}

func TestValidateTransition_TerminalIsImmutable(t *testing.T) {
	for _, from := range []models.BookingStatus{models.StatusCompleted, models.StatusCancelled} {
		for _, role := range []models.Role{models.RoleCareRecipient, models.RoleCaregiver} {
			err := ValidateTransition(from, models.StatusRequested, role)
			assert.True(t, errors.Is(err, ErrConflict), "%s as %s", from, role)
		}
	}
}

func TestValidateTransition_WrongRoleIsForbidden(t *testing.T) {
	err := ValidateTransition(models.StatusRequested, models.StatusAccepted, models.RoleCareRecipient)
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Contains(t, err.Error(), "care_recipient")

	err = ValidateTransition(models.StatusDraft, models.StatusRequested, models.RoleCaregiver)
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestValidateTransition_CompletedOnlyFromInProgress(t *testing.T) {
	err := ValidateTransition(models.StatusConfirmed, models.StatusCompleted, models.RoleCaregiver)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Contains(t, err.Error(), "in progress")
}

func TestValidateTransition_UnreachableTarget(t *testing.T) {
	err := ValidateTransition(models.StatusAccepted, models.StatusDraft, models.RoleCaregiver)
	assert.True(t, errors.Is(err, ErrConflict))

	err = ValidateTransition(models.StatusAccepted, models.BookingStatus("paused"), models.RoleCaregiver)
	assert.True(t, errors.Is(err, ErrValidation))
}

// Accepted -> confirmed is driven by payment, never by either party directly.
func TestValidateTransition_ConfirmIsNotAPartyTransition(t *testing.T) {
	for _, role := range []models.Role{models.RoleCareRecipient, models.RoleCaregiver} {
		assert.Error(t, ValidateTransition(models.StatusAccepted, models.StatusConfirmed, role))
	}
}

func TestAllowedTargets(t *testing.T) {
	assert.ElementsMatch(t,
		[]models.BookingStatus{models.StatusAccepted, models.StatusCancelled},
		AllowedTargets(models.StatusRequested, models.RoleCaregiver))
	assert.Empty(t, AllowedTargets(models.StatusCompleted, models.RoleCaregiver))
}
