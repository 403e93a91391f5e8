package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// SportRepository exposes CRUD operations for the sport catalog.
type SportRepository interface {
	CreateSport(ctx context.Context, sport Sport) error
	UpdateSport(ctx context.Context, sport Sport) error
	GetSport(ctx context.Context, id string) (Sport, error)
	ListSports(ctx context.Context) ([]Sport, error)
	// DeleteSport fails with ErrForeignKeyViolation while schedules still
	// reference the sport.
	DeleteSport(ctx context.Context, id string) error
}

// ScheduleFilter narrows schedule queries. Venue matches as a
// case-insensitive substring; the remaining fields are exact bounds.
type ScheduleFilter struct {
	SportID          *string
	Venue            *string
	StartsAfter      *time.Time
	StartsBefore     *time.Time
	CreatedByAdminID *string
}

// DeletionCounts reports how many rows a bulk delete removed.
type DeletionCounts struct {
	Schedules int
	Bookings  int
}

// ScheduleRepository stores dated schedule occurrences and venue metadata.
type ScheduleRepository interface {
	// CreateSchedules inserts a batch of occurrences atomically. Either
	// every occurrence is stored or none are.
	CreateSchedules(ctx context.Context, schedules []Schedule) error
	UpdateSchedule(ctx context.Context, schedule Schedule) error
	GetSchedule(ctx context.Context, id string) (Schedule, error)
	ListSchedules(ctx context.Context, filter ScheduleFilter) ([]Schedule, error)
	// DeleteSchedule removes the occurrence and its bookings.
	DeleteSchedule(ctx context.Context, id string) error
	// DeleteSchedulesByAdmin removes every occurrence the admin created.
	DeleteSchedulesByAdmin(ctx context.Context, adminID string) (DeletionCounts, error)
	// DeleteSchedulesEndedBefore removes occurrences whose end time
	// precedes the cutoff, bookings included.
	DeleteSchedulesEndedBefore(ctx context.Context, cutoff time.Time) (DeletionCounts, error)

	ListVenues(ctx context.Context, prefix string, reference time.Time) ([]VenueUsage, error)
	// RenameVenue rewrites the venue on every matching occurrence and
	// reports how many rows changed. Renaming onto an existing venue
	// merges the two.
	RenameVenue(ctx context.Context, from, to string) (int, error)
}

// BookingRepository stores claimed spots. Admission control lives here:
// InsertBooking is the single point where capacity and duplicates are
// decided, atomically with the insert.
type BookingRepository interface {
	// InsertBooking claims a spot in the booking's schedule. It fails with
	// ErrNotFound when the schedule is gone, ErrCapacityExceeded when the
	// schedule is full, and ErrDuplicate when the user already holds a
	// spot. Concurrent calls never admit more bookings than the schedule's
	// player limit allows.
	InsertBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	ListBookingsForSchedule(ctx context.Context, scheduleID string) ([]Booking, error)
	ListBookingsForUser(ctx context.Context, userID string) ([]Booking, error)
	CountBookings(ctx context.Context, scheduleID string) (int, error)
	// CountBookingsBySchedule returns booking counts keyed by schedule ID.
	// Schedules with no bookings are absent from the map.
	CountBookingsBySchedule(ctx context.Context, scheduleIDs []string) (map[string]int, error)
}

// RevokedTokenRepository stores the token blacklist consulted on every
// authenticated request.
type RevokedTokenRepository interface {
	RevokeToken(ctx context.Context, token RevokedToken) error
	IsTokenRevoked(ctx context.Context, token string) (bool, error)
	// DeleteExpiredTokens drops blacklist entries whose underlying token
	// has already expired and reports how many were removed.
	DeleteExpiredTokens(ctx context.Context, reference time.Time) (int, error)
}
