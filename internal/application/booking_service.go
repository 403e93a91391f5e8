package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/raj29code/playohcanada/internal/persistence"
)

// CancellationCutoff is how close to the start a booking may still be
// cancelled. A cancellation exactly at the cutoff is accepted.
const CancellationCutoff = 2 * time.Hour

// BookingStore captures the persistence interactions needed by the service.
type BookingStore interface {
	InsertBooking(ctx context.Context, booking persistence.Booking) error
	GetBooking(ctx context.Context, id string) (persistence.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	CountBookings(ctx context.Context, scheduleID string) (int, error)
	ListBookingsForSchedule(ctx context.Context, scheduleID string) ([]persistence.Booking, error)
	ListBookingsForUser(ctx context.Context, userID string) ([]persistence.Booking, error)
}

// ScheduleReader exposes the schedule lookups the booking flow needs.
type ScheduleReader interface {
	GetSchedule(ctx context.Context, id string) (persistence.Schedule, error)
}

// BookingService enforces the admission and cancellation rules around
// claimed spots. The capacity and duplicate decisions themselves happen
// atomically in the store; this service sequences the friendlier checks
// in front of them and translates store errors into caller-facing ones.
type BookingService struct {
	bookings    BookingStore
	schedules   ScheduleReader
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(bookings BookingStore, schedules ScheduleReader, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		bookings:    bookings,
		schedules:   schedules,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// Join claims a spot in a schedule. Checks run in a fixed order: the
// schedule must exist, must not have started, must have room, and the
// user must not already hold a spot. An anonymous caller joins as a
// guest and must supply a name. Two racing joins for the last spot
// resolve in the store; the loser surfaces as ErrScheduleFull.
func (s *BookingService) Join(ctx context.Context, params JoinScheduleParams) (booking Booking, err error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil || s.schedules == nil {
		return Booking{}, fmt.Errorf("booking store not configured")
	}

	logger := s.loggerWith(ctx, "Join",
		"schedule_id", params.ScheduleID,
		"user_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "join rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "spot claimed")
	}()

	schedule, err := s.schedules.GetSchedule(ctx, params.ScheduleID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrNotFound
		}
		return Booking{}, err
	}

	now := s.now()
	if !schedule.StartTime.After(now) {
		err = ErrScheduleStarted
		return Booking{}, err
	}

	// Friendlier rejection before the identity checks; the store repeats
	// the count atomically, so a race here only changes which error the
	// loser sees, never the outcome.
	occupied, err := s.bookings.CountBookings(ctx, schedule.ID)
	if err != nil {
		return Booking{}, err
	}
	if occupied >= schedule.MaxPlayers {
		err = ErrScheduleFull
		return Booking{}, err
	}

	record := persistence.Booking{
		ID:         s.idGenerator(),
		ScheduleID: schedule.ID,
		CreatedAt:  now,
	}
	if params.Principal.IsAnonymous() {
		guestName := strings.TrimSpace(params.GuestName)
		if guestName == "" {
			err = ErrGuestNameRequired
			return Booking{}, err
		}
		record.GuestName = &guestName
		if mobile := strings.TrimSpace(params.GuestMobile); mobile != "" {
			record.GuestMobile = &mobile
		}
	} else {
		userID := params.Principal.UserID
		record.UserID = &userID
	}

	if err = s.bookings.InsertBooking(ctx, record); err != nil {
		err = mapBookingRepoError(err)
		return Booking{}, err
	}
	return toBooking(record), nil
}

// Cancel releases a claimed spot. Only the booking's owner may cancel,
// and only while the start is at least the cutoff away. Admins may
// cancel any booking at any time.
func (s *BookingService) Cancel(ctx context.Context, params CancelBookingParams) (err error) {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil || s.schedules == nil {
		return fmt.Errorf("booking store not configured")
	}

	logger := s.loggerWith(ctx, "Cancel",
		"booking_id", params.BookingID,
		"user_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "cancellation rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking cancelled")
	}()

	if params.Principal.IsAnonymous() {
		err = ErrUnauthorized
		return err
	}

	record, err := s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrNotFound
		}
		return err
	}

	isOwner := record.UserID != nil && *record.UserID == params.Principal.UserID
	if !isOwner && !params.Principal.IsAdmin() {
		err = ErrForbidden
		return err
	}

	if !params.Principal.IsAdmin() {
		schedule, getErr := s.schedules.GetSchedule(ctx, record.ScheduleID)
		if getErr != nil && !errors.Is(getErr, persistence.ErrNotFound) {
			err = getErr
			return err
		}
		// A booking whose schedule is already gone can always be released.
		if getErr == nil {
			now := s.now()
			if !schedule.StartTime.After(now) {
				err = ErrScheduleStarted
				return err
			}
			if schedule.StartTime.Sub(now) < CancellationCutoff {
				err = ErrCancellationTooLate
				return err
			}
		}
	}

	if err = s.bookings.DeleteBooking(ctx, params.BookingID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrNotFound
		}
		return err
	}
	return nil
}

// GetBooking returns one booking. Owners see their own; admins see all.
func (s *BookingService) GetBooking(ctx context.Context, principal Principal, bookingID string) (Booking, error) {
	if s == nil || s.bookings == nil {
		return Booking{}, fmt.Errorf("booking store not configured")
	}
	if principal.IsAnonymous() {
		return Booking{}, ErrUnauthorized
	}

	record, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, err
	}

	isOwner := record.UserID != nil && *record.UserID == principal.UserID
	if !isOwner && !principal.IsAdmin() {
		return Booking{}, ErrForbidden
	}
	return toBooking(record), nil
}

// MyBookings lists the caller's bookings together with their schedules,
// soonest start first.
func (s *BookingService) MyBookings(ctx context.Context, principal Principal) ([]BookingDetail, error) {
	if s == nil || s.bookings == nil || s.schedules == nil {
		return nil, fmt.Errorf("booking store not configured")
	}
	if principal.IsAnonymous() {
		return nil, ErrUnauthorized
	}

	records, err := s.bookings.ListBookingsForUser(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	details := make([]BookingDetail, 0, len(records))
	for _, record := range records {
		schedule, err := s.schedules.GetSchedule(ctx, record.ScheduleID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				continue
			}
			return nil, err
		}
		details = append(details, BookingDetail{
			Booking:  toBooking(record),
			Schedule: toSchedule(schedule),
		})
	}

	sortBookingDetails(details)
	return details, nil
}

// ListForSchedule lists every booking in an occurrence. Admin only; the
// roster exposes guest contact details.
func (s *BookingService) ListForSchedule(ctx context.Context, principal Principal, scheduleID string) ([]Booking, error) {
	if s == nil || s.bookings == nil {
		return nil, fmt.Errorf("booking store not configured")
	}
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	if s.schedules != nil {
		if _, err := s.schedules.GetSchedule(ctx, scheduleID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
	}

	records, err := s.bookings.ListBookingsForSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	bookings := make([]Booking, len(records))
	for i, record := range records {
		bookings[i] = toBooking(record)
	}
	return bookings, nil
}

func toBooking(record persistence.Booking) Booking {
	booking := Booking{
		ID:         record.ID,
		ScheduleID: record.ScheduleID,
		CreatedAt:  record.CreatedAt,
	}
	if record.UserID != nil {
		booking.Requester.UserID = *record.UserID
	}
	if record.GuestName != nil {
		booking.Requester.GuestName = *record.GuestName
	}
	if record.GuestMobile != nil {
		booking.Requester.GuestMobile = *record.GuestMobile
	}
	return booking
}

func sortBookingDetails(details []BookingDetail) {
	sort.SliceStable(details, func(i, j int) bool {
		return details[i].Schedule.StartTime.Before(details[j].Schedule.StartTime)
	})
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrCapacityExceeded):
		return ErrScheduleFull
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyBooked
	}
	return err
}
