package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package unwraps to one of them.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrDatabase   = errors.New("database error")
)

type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

// Is matches the kind as well as the identity of the error itself.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func dbError(op string, err error) *Error {
	return &Error{Kind: ErrDatabase, Msg: op, Err: err}
}

var (
	ErrBookingNotFound   = newError(ErrNotFound, "booking not found")
	ErrVideoCallNotFound = newError(ErrNotFound, "video call request not found")
	ErrChatNotFound      = newError(ErrNotFound, "chat session not found")
	ErrCaregiverNotFound = newError(ErrNotFound, "caregiver not found")

	ErrNotParty = newError(ErrForbidden, "access denied")

	ErrSlotInPast           = newError(ErrValidation, "You cannot book a slot in the past. Please choose a future time.")
	ErrInvalidDuration      = newError(ErrValidation, "Invalid time range. Please use a valid start time and duration (up to 24 hours).")
	ErrInvalidRange         = newError(ErrValidation, "start_time must be before end_time.")
	ErrCaregiverUnavailable = newError(ErrValidation, "Caregiver is not available or inactive.")

	ErrSlotTaken          = newError(ErrConflict, "This time slot was just booked by someone else. Please choose another time or caregiver.")
	ErrCaregiverBusy      = newError(ErrConflict, "Caregiver is already booked for this time slot.")
	ErrCaregiverOverlap   = newError(ErrConflict, "You're already booked for an overlapping time. Please decline this request or ask the care recipient to choose a different time.")
	ErrVideoCallFinalized = newError(ErrConflict, "video call request is already finalized")
)
