package application

import "errors"

var (
	// ErrUnauthorized is returned when no valid principal accompanies an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrForbidden is returned when the acting principal lacks permission for an operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrScheduleFull is returned when every spot in a schedule is claimed.
	ErrScheduleFull = errors.New("application: schedule is full")
	// ErrScheduleStarted is returned when a join arrives at or after the start time.
	ErrScheduleStarted = errors.New("application: schedule already started")
	// ErrAlreadyBooked is returned when the user already holds a spot in the schedule.
	ErrAlreadyBooked = errors.New("application: already booked")
	// ErrGuestNameRequired is returned when an anonymous join carries no guest name.
	ErrGuestNameRequired = errors.New("application: guest name required")
	// ErrCancellationTooLate is returned when a cancellation falls inside the cutoff window.
	ErrCancellationTooLate = errors.New("application: cancellation window closed")
	// ErrCapacityBelowOccupancy is returned when an update would shrink a
	// schedule below its current booking count.
	ErrCapacityBelowOccupancy = errors.New("application: capacity below current bookings")
	// ErrInvalidCredentials is returned when login fails. It deliberately
	// does not reveal whether the account exists.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrEmailTaken is returned when registration collides with an existing account.
	ErrEmailTaken = errors.New("application: email already registered")
	// ErrSportInUse is returned when a sport with schedules is deleted.
	ErrSportInUse = errors.New("application: sport has schedules")
	// ErrTokenRevoked is returned when a request presents a blacklisted token.
	ErrTokenRevoked = errors.New("application: token revoked")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
