package persistence

import "time"

// User represents a player or administrator account.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	Mobile       *string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sport represents a sport catalog entry.
type Sport struct {
	ID          string
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Schedule represents a single dated, bookable activity occurrence.
// StartTime and EndTime are instants in UTC; wall clock renderings are
// derived at the edges, never stored.
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

// Booking represents a claimed spot in a schedule. Exactly one of
// UserID and GuestName is set; guest rows may also carry a mobile.
type Booking struct {
	ID          string
	ScheduleID  string
	UserID      *string
	GuestName   *string
	GuestMobile *string
	CreatedAt   time.Time
}

// VenueUsage summarises how often a venue name appears in the catalog.
type VenueUsage struct {
	Venue          string
	ScheduleCount  int
	UpcomingCount  int
	FirstScheduled time.Time
	LastScheduled  time.Time
}

// RevokedToken records a JWT that must be rejected until it expires.
type RevokedToken struct {
	Token     string
	UserID    string
	RevokedAt time.Time
	ExpiresAt time.Time
}
