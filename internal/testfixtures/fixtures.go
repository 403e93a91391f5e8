// Package testfixtures provides deterministic building blocks for tests:
// a manual clock, a sequential ID generator, record fixtures, and wired
// service environments over the in-memory and SQLite stores.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/raj29code/playohcanada/internal/persistence"
)

var (
	userCounter     uint64
	sportCounter    uint64
	scheduleCounter uint64
	bookingCounter  uint64
)

var referenceTime = time.Date(2026, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// UserOption configures a generated user fixture.
type UserOption func(*persistence.User)

// NewUserFixture returns a deterministic user record with optional
// overrides. Each call yields a fresh identity.
func NewUserFixture(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	user := persistence.User{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("Player %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         "user",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

func WithUserID(id string) UserOption {
	return func(u *persistence.User) { u.ID = id }
}

func WithUserEmail(email string) UserOption {
	return func(u *persistence.User) { u.Email = email }
}

func WithAdminRole() UserOption {
	return func(u *persistence.User) { u.Role = "admin" }
}

func WithPasswordHash(hash string) UserOption {
	return func(u *persistence.User) { u.PasswordHash = hash }
}

// SportOption configures a generated sport fixture.
type SportOption func(*persistence.Sport)

// NewSportFixture returns a deterministic sport record.
func NewSportFixture(opts ...SportOption) persistence.Sport {
	idx := atomic.AddUint64(&sportCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	sport := persistence.Sport{
		ID:        fmt.Sprintf("sport-%03d", idx),
		Name:      fmt.Sprintf("Sport %03d", idx),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&sport)
	}
	return sport
}

func WithSportID(id string) SportOption {
	return func(s *persistence.Sport) { s.ID = id }
}

func WithSportName(name string) SportOption {
	return func(s *persistence.Sport) { s.Name = name }
}

// ScheduleOption configures a generated schedule fixture.
type ScheduleOption func(*persistence.Schedule)

// NewScheduleFixture returns a deterministic schedule record. The default
// occurrence starts one day after ReferenceTime and lasts two hours.
func NewScheduleFixture(opts ...ScheduleOption) persistence.Schedule {
	idx := atomic.AddUint64(&scheduleCounter, 1)
	start := referenceTime.Add(24*time.Hour + time.Duration(idx)*time.Minute)
	schedule := persistence.Schedule{
		ID:               fmt.Sprintf("schedule-%03d", idx),
		SportID:          "sport-001",
		Venue:            fmt.Sprintf("Venue %03d", idx),
		StartTime:        start,
		EndTime:          start.Add(2 * time.Hour),
		MaxPlayers:       10,
		CreatedByAdminID: "admin-001",
		CreatedAt:        referenceTime,
		UpdatedAt:        referenceTime,
	}
	for _, opt := range opts {
		opt(&schedule)
	}
	return schedule
}

func WithScheduleID(id string) ScheduleOption {
	return func(s *persistence.Schedule) { s.ID = id }
}

func WithScheduleSport(sportID string) ScheduleOption {
	return func(s *persistence.Schedule) { s.SportID = sportID }
}

func WithVenue(venue string) ScheduleOption {
	return func(s *persistence.Schedule) { s.Venue = venue }
}

// WithStartTime moves the occurrence, preserving its duration.
func WithStartTime(start time.Time) ScheduleOption {
	return func(s *persistence.Schedule) {
		duration := s.EndTime.Sub(s.StartTime)
		s.StartTime = start
		s.EndTime = start.Add(duration)
	}
}

func WithMaxPlayers(n int) ScheduleOption {
	return func(s *persistence.Schedule) { s.MaxPlayers = n }
}

func WithCreatedByAdmin(adminID string) ScheduleOption {
	return func(s *persistence.Schedule) { s.CreatedByAdminID = adminID }
}

// BookingOption configures a generated booking fixture.
type BookingOption func(*persistence.Booking)

// NewBookingFixture returns a deterministic registered-user booking.
// Use AsGuest to turn it into a guest booking.
func NewBookingFixture(opts ...BookingOption) persistence.Booking {
	idx := atomic.AddUint64(&bookingCounter, 1)
	userID := fmt.Sprintf("user-%03d", idx)
	booking := persistence.Booking{
		ID:         fmt.Sprintf("booking-%03d", idx),
		ScheduleID: "schedule-001",
		UserID:     &userID,
		CreatedAt:  referenceTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&booking)
	}
	return booking
}

func WithBookingID(id string) BookingOption {
	return func(b *persistence.Booking) { b.ID = id }
}

func WithBookingSchedule(scheduleID string) BookingOption {
	return func(b *persistence.Booking) { b.ScheduleID = scheduleID }
}

func WithBookingUser(userID string) BookingOption {
	return func(b *persistence.Booking) {
		b.UserID = &userID
		b.GuestName = nil
		b.GuestMobile = nil
	}
}

// AsGuest converts the booking into a guest booking with the given name.
func AsGuest(name string, mobile *string) BookingOption {
	return func(b *persistence.Booking) {
		b.UserID = nil
		b.GuestName = &name
		b.GuestMobile = mobile
	}
}

// NewRevokedTokenFixture returns a blacklist entry that expires 24 hours
// after it was revoked.
func NewRevokedTokenFixture(token, userID string, revokedAt time.Time) persistence.RevokedToken {
	if revokedAt.IsZero() {
		revokedAt = referenceTime
	}
	return persistence.RevokedToken{
		Token:     token,
		UserID:    userID,
		RevokedAt: revokedAt,
		ExpiresAt: revokedAt.Add(24 * time.Hour),
	}
}
