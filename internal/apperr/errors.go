package apperr

import "errors"

// Error families. Every concrete error below belongs to exactly one of them,
// so callers can branch either on the precise error or on its family:
//
//	errors.Is(err, apperr.ErrOverlap)  // precise
//	errors.Is(err, apperr.ErrConflict) // family
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("conflict")
	ErrAuthorization = errors.New("not authorized")
	ErrState         = errors.New("invalid state")
)

// Error is a typed, recoverable scheduling error bound to a family.
type Error struct {
	kind error
	msg  string
}

// New creates an error of the given family.
func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

// Is reports family membership; identity is handled by errors.Is itself.
func (e *Error) Is(target error) bool {
	return target == e.kind
}

// Kind returns the family sentinel.
func (e *Error) Kind() error {
	return e.kind
}

// KindOf returns the family of err, or nil for errors outside the taxonomy.
func KindOf(err error) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.kind
	}
	return nil
}

// Not found
var (
	ErrUserNotFound        = New(ErrNotFound, "user not found")
	ErrStudentNotFound     = New(ErrNotFound, "student not found")
	ErrFacultyNotFound     = New(ErrNotFound, "faculty not found")
	ErrSlotNotFound        = New(ErrNotFound, "availability slot not found")
	ErrAppointmentNotFound = New(ErrNotFound, "appointment not found")
)

// Validation
var (
	ErrPastDate        = New(ErrValidation, "cannot set availability for past dates")
	ErrWeekend         = New(ErrValidation, "availability can only be set for weekdays (Monday to Friday)")
	ErrInvalidDate     = New(ErrValidation, "appointments can only be scheduled on weekdays (Monday to Friday)")
	ErrOutOfHours      = New(ErrValidation, "time must be between 09:00 and 18:00")
	ErrInvalidRange    = New(ErrValidation, "end time must be after start time and within 09:00-18:00")
	ErrInvalidTime     = New(ErrValidation, "time must be in HH:MM format")
	ErrInvalidDuration = New(ErrValidation, "duration must be one of 15, 30, 45 or 60 minutes")
	ErrMissingField    = New(ErrValidation, "missing required field")
	ErrInvalidPurpose  = New(ErrValidation, "invalid appointment purpose")
	ErrInvalidStatus   = New(ErrValidation, "status must be accepted or rejected")
	ErrInvalidFilter   = New(ErrValidation, "status filter must be all, pending, accepted, rejected, cancelled or completed")
	ErrMismatch        = New(ErrValidation, "availability slot does not belong to this faculty")
	ErrReasonTooLong   = New(ErrValidation, "reason must be at most 200 characters")
)

// Conflict
var (
	ErrOverlap       = New(ErrConflict, "time slot overlaps with existing availability")
	ErrAlreadyBooked = New(ErrConflict, "availability slot is already booked")
	ErrDoubleBooking = New(ErrConflict, "you already have an appointment at this time")
	ErrSlotLocked    = New(ErrConflict, "cannot modify a booked slot")
	ErrInactive      = New(ErrConflict, "availability slot is not active")
)

// Authorization
var (
	ErrForbidden = New(ErrAuthorization, "not authorized to access this resource")
)

// State
var (
	ErrAlreadyProcessed  = New(ErrState, "appointment is already processed")
	ErrAlreadyCancelled  = New(ErrState, "appointment is already cancelled")
	ErrInvalidTransition = New(ErrState, "invalid appointment status transition")
	ErrNotAccepted       = New(ErrState, "appointment must be accepted before it can be completed")
)
