package application

import (
	"time"

	"github.com/raj29code/playohcanada/internal/recurrence"
	"github.com/raj29code/playohcanada/internal/timeutil"
)

// Roles assigned to user accounts.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Principal represents the authenticated user invoking a service method.
// A zero Principal is an anonymous caller.
type Principal struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsAnonymous reports whether no authenticated user backs the principal.
func (p Principal) IsAnonymous() bool {
	return p.UserID == ""
}

// User represents an account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Mobile      *string
	Role        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Sport represents a sport catalog entry.
type Sport struct {
	ID          string
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Schedule represents a single dated, bookable occurrence. Both instants
// are UTC; callers wanting wall clock renderings shift them with an
// offset of their own choosing.
type Schedule struct {
	ID               string
	SportID          string
	Venue            string
	StartTime        time.Time
	EndTime          time.Time
	MaxPlayers       int
	Equipment        *string
	CreatedByAdminID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ScheduleView decorates a schedule with its booking state for listings.
type ScheduleView struct {
	Schedule
	BookedCount int
	SpotsLeft   int
	Joined      bool
}

// BookingRequester identifies who claimed a spot: a registered user by
// ID, or a walk-in guest by name.
type BookingRequester struct {
	UserID      string
	GuestName   string
	GuestMobile string
}

// IsGuest reports whether the requester is a walk-in guest.
func (r BookingRequester) IsGuest() bool {
	return r.UserID == ""
}

// Booking represents a claimed spot in a schedule.
type Booking struct {
	ID         string
	ScheduleID string
	Requester  BookingRequester
	CreatedAt  time.Time
}

// ScheduleInput captures caller provided schedule fields. Date and the
// time-of-day pair are wall clock values in the zone described by
// UTCOffsetMinutes.
type ScheduleInput struct {
	SportID          string
	Venue            string
	Date             timeutil.Date
	StartTime        timeutil.TimeOfDay
	EndTime          timeutil.TimeOfDay
	UTCOffsetMinutes int
	MaxPlayers       int
	Equipment        *string
	Recurrence       recurrence.Rule
}

// CreateSchedulesParams wraps the data required to create one occurrence
// or a recurring series.
type CreateSchedulesParams struct {
	Principal Principal
	Input     ScheduleInput
}

// UpdateScheduleParams wraps the data required to update an occurrence.
// The recurrence rule is ignored; updates touch one occurrence at a time.
type UpdateScheduleParams struct {
	Principal  Principal
	ScheduleID string
	Input      ScheduleInput
}

// ListSchedulesParams wraps the filters accepted by schedule listings.
type ListSchedulesParams struct {
	Principal     Principal
	SportID       *string
	Venue         *string
	From          *time.Time
	To            *time.Time
	OnlyUpcoming  bool
	OnlyAvailable bool
	ExcludeJoined bool
}

// JoinScheduleParams captures a request to claim a spot. An anonymous
// caller must supply a guest name.
type JoinScheduleParams struct {
	Principal   Principal
	ScheduleID  string
	GuestName   string
	GuestMobile string
}

// CancelBookingParams captures a request to release a claimed spot.
type CancelBookingParams struct {
	Principal Principal
	BookingID string
}

// BookingDetail pairs a booking with the occurrence it claims a spot in.
type BookingDetail struct {
	Booking  Booking
	Schedule Schedule
}

// SportInput captures caller provided sport fields.
type SportInput struct {
	Name        string
	Description *string
}

// CreateSportParams wraps the data required to create a sport.
type CreateSportParams struct {
	Principal Principal
	Input     SportInput
}

// UpdateSportParams wraps the data required to update a sport.
type UpdateSportParams struct {
	Principal Principal
	SportID   string
	Input     SportInput
}

// VenueSummary describes a venue and how heavily it is used.
type VenueSummary struct {
	Venue          string
	ScheduleCount  int
	UpcomingCount  int
	FirstScheduled time.Time
	LastScheduled  time.Time
}

// RenameVenueParams wraps the data required to rename or merge a venue.
type RenameVenueParams struct {
	Principal Principal
	From      string
	To        string
}

// RegisterParams captures the data required to create an account.
type RegisterParams struct {
	Email       string
	DisplayName string
	Mobile      *string
	Password    string
}

// LoginParams captures the data required to authenticate.
type LoginParams struct {
	Email    string
	Password string
}

// LoginResult captures the outcome of a successful login.
type LoginResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}
