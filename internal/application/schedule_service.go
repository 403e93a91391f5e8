package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raj29code/playohcanada/internal/persistence"
	"github.com/raj29code/playohcanada/internal/recurrence"
	"github.com/raj29code/playohcanada/internal/timeutil"
)

// Venue and capacity limits enforced on schedule input.
const (
	minVenueLength = 3
	maxVenueLength = 200
	minPlayers     = 1
	maxPlayers     = 100
)

// ScheduleStore captures the persistence interactions needed by the service.
type ScheduleStore interface {
	CreateSchedules(ctx context.Context, schedules []persistence.Schedule) error
	UpdateSchedule(ctx context.Context, schedule persistence.Schedule) error
	GetSchedule(ctx context.Context, id string) (persistence.Schedule, error)
	ListSchedules(ctx context.Context, filter persistence.ScheduleFilter) ([]persistence.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
	DeleteSchedulesByAdmin(ctx context.Context, adminID string) (persistence.DeletionCounts, error)
	DeleteSchedulesEndedBefore(ctx context.Context, cutoff time.Time) (persistence.DeletionCounts, error)
	ListVenues(ctx context.Context, prefix string, reference time.Time) ([]persistence.VenueUsage, error)
	RenameVenue(ctx context.Context, from, to string) (int, error)
}

// SportCatalog exposes sport lookups needed for schedule validation.
type SportCatalog interface {
	GetSport(ctx context.Context, id string) (persistence.Sport, error)
}

// BookingCounter exposes the booking reads used to decorate schedules.
type BookingCounter interface {
	CountBookings(ctx context.Context, scheduleID string) (int, error)
	CountBookingsBySchedule(ctx context.Context, scheduleIDs []string) (map[string]int, error)
	ListBookingsForUser(ctx context.Context, userID string) ([]persistence.Booking, error)
}

// ScheduleService orchestrates recurrence expansion, validation, and
// persistence for schedule operations.
type ScheduleService struct {
	schedules   ScheduleStore
	sports      SportCatalog
	bookings    BookingCounter
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	venues      *venueCache
}

// NewScheduleService wires dependencies for schedule operations.
func NewScheduleService(schedules ScheduleStore, sports SportCatalog, bookings BookingCounter, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ScheduleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		schedules:   schedules,
		sports:      sports,
		bookings:    bookings,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
		venues:      newVenueCache(30*time.Second, 128, now),
	}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

// CreateSchedules expands the recurrence rule and materialises one
// stored occurrence per date, in a single batch.
func (s *ScheduleService) CreateSchedules(ctx context.Context, params CreateSchedulesParams) (created []Schedule, err error) {
	if s == nil {
		return nil, fmt.Errorf("ScheduleService is nil")
	}
	if s.schedules == nil {
		return nil, fmt.Errorf("schedule store not configured")
	}

	logger := s.loggerWith(ctx, "CreateSchedules",
		"sport_id", params.Input.SportID,
		"venue", params.Input.Venue,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "schedule creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("occurrences", len(created)).InfoContext(ctx, "schedules created")
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return nil, err
	}

	input := params.Input
	vErr := &ValidationError{}
	validateScheduleCore(input, vErr)
	if vErr.HasErrors() {
		return nil, vErr
	}

	if err = s.ensureSportExists(ctx, input.SportID); err != nil {
		return nil, err
	}

	dates, err := recurrence.Expand(input.Date, input.Recurrence)
	if err != nil {
		return nil, mapRecurrenceError(err)
	}

	createdAt := s.now()
	records := make([]persistence.Schedule, 0, len(dates))
	for _, date := range dates {
		start, convErr := timeutil.ToUTC(date, input.StartTime, input.UTCOffsetMinutes)
		if convErr != nil {
			err = convErr
			return nil, err
		}
		end, convErr := timeutil.ToUTC(date, input.EndTime, input.UTCOffsetMinutes)
		if convErr != nil {
			err = convErr
			return nil, err
		}

		records = append(records, persistence.Schedule{
			ID:               s.idGenerator(),
			SportID:          input.SportID,
			Venue:            strings.TrimSpace(input.Venue),
			StartTime:        start,
			EndTime:          end,
			MaxPlayers:       input.MaxPlayers,
			Equipment:        input.Equipment,
			CreatedByAdminID: params.Principal.UserID,
			CreatedAt:        createdAt,
			UpdatedAt:        createdAt,
		})
	}

	if err = s.schedules.CreateSchedules(ctx, records); err != nil {
		err = mapScheduleRepoError(err)
		return nil, err
	}
	s.venues.Flush()

	created = make([]Schedule, len(records))
	for i, record := range records {
		created[i] = toSchedule(record)
	}
	return created, nil
}

// GetSchedule returns one occurrence decorated with its booking state.
func (s *ScheduleService) GetSchedule(ctx context.Context, principal Principal, scheduleID string) (ScheduleView, error) {
	if s == nil || s.schedules == nil {
		return ScheduleView{}, fmt.Errorf("schedule store not configured")
	}

	record, err := s.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return ScheduleView{}, mapScheduleRepoError(err)
	}

	view := ScheduleView{Schedule: toSchedule(record)}
	if s.bookings != nil {
		count, err := s.bookings.CountBookings(ctx, scheduleID)
		if err != nil {
			return ScheduleView{}, err
		}
		view.BookedCount = count
		view.SpotsLeft = record.MaxPlayers - count

		if !principal.IsAnonymous() {
			joined, err := s.joinedScheduleIDs(ctx, principal.UserID)
			if err != nil {
				return ScheduleView{}, err
			}
			_, view.Joined = joined[scheduleID]
		}
	}
	return view, nil
}

// ListSchedules enumerates occurrences matching the filters, decorated
// with booking counts and the caller's joined state.
func (s *ScheduleService) ListSchedules(ctx context.Context, params ListSchedulesParams) ([]ScheduleView, error) {
	if s == nil || s.schedules == nil {
		return nil, fmt.Errorf("schedule store not configured")
	}

	filter := persistence.ScheduleFilter{
		SportID:      params.SportID,
		Venue:        params.Venue,
		StartsAfter:  params.From,
		StartsBefore: params.To,
	}
	if params.OnlyUpcoming && filter.StartsAfter == nil {
		now := s.now()
		filter.StartsAfter = &now
	}

	records, err := s.schedules.ListSchedules(ctx, filter)
	if err != nil {
		return nil, mapScheduleRepoError(err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	ids := make([]string, len(records))
	for i, record := range records {
		ids[i] = record.ID
	}

	counts := map[string]int{}
	if s.bookings != nil {
		counts, err = s.bookings.CountBookingsBySchedule(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	joined := map[string]struct{}{}
	if s.bookings != nil && !params.Principal.IsAnonymous() {
		joined, err = s.joinedScheduleIDs(ctx, params.Principal.UserID)
		if err != nil {
			return nil, err
		}
	}

	views := make([]ScheduleView, 0, len(records))
	for _, record := range records {
		count := counts[record.ID]
		_, isJoined := joined[record.ID]

		if params.OnlyAvailable && count >= record.MaxPlayers {
			continue
		}
		if params.ExcludeJoined && isJoined {
			continue
		}

		views = append(views, ScheduleView{
			Schedule:    toSchedule(record),
			BookedCount: count,
			SpotsLeft:   record.MaxPlayers - count,
			Joined:      isJoined,
		})
	}
	return views, nil
}

// UpdateSchedule rewrites one occurrence. Shrinking capacity below the
// current booking count is rejected.
func (s *ScheduleService) UpdateSchedule(ctx context.Context, params UpdateScheduleParams) (Schedule, error) {
	if s == nil || s.schedules == nil {
		return Schedule{}, fmt.Errorf("schedule store not configured")
	}
	if err := requireAdmin(params.Principal); err != nil {
		return Schedule{}, err
	}

	existing, err := s.schedules.GetSchedule(ctx, params.ScheduleID)
	if err != nil {
		return Schedule{}, mapScheduleRepoError(err)
	}

	input := params.Input
	vErr := &ValidationError{}
	validateScheduleCore(input, vErr)
	if vErr.HasErrors() {
		return Schedule{}, vErr
	}

	if err := s.ensureSportExists(ctx, input.SportID); err != nil {
		return Schedule{}, err
	}

	if s.bookings != nil {
		occupied, err := s.bookings.CountBookings(ctx, params.ScheduleID)
		if err != nil {
			return Schedule{}, err
		}
		if input.MaxPlayers < occupied {
			return Schedule{}, ErrCapacityBelowOccupancy
		}
	}

	start, err := timeutil.ToUTC(input.Date, input.StartTime, input.UTCOffsetMinutes)
	if err != nil {
		return Schedule{}, err
	}
	end, err := timeutil.ToUTC(input.Date, input.EndTime, input.UTCOffsetMinutes)
	if err != nil {
		return Schedule{}, err
	}

	updated := existing
	updated.SportID = input.SportID
	updated.Venue = strings.TrimSpace(input.Venue)
	updated.StartTime = start
	updated.EndTime = end
	updated.MaxPlayers = input.MaxPlayers
	updated.Equipment = input.Equipment
	updated.UpdatedAt = s.now()

	if err := s.schedules.UpdateSchedule(ctx, updated); err != nil {
		return Schedule{}, mapScheduleRepoError(err)
	}
	s.venues.Flush()
	return toSchedule(updated), nil
}

// DeleteSchedule removes one occurrence and its bookings.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, principal Principal, scheduleID string) error {
	if s == nil || s.schedules == nil {
		return fmt.Errorf("schedule store not configured")
	}
	if err := requireAdmin(principal); err != nil {
		return err
	}
	affected := 0
	if s.bookings != nil {
		if count, err := s.bookings.CountBookings(ctx, scheduleID); err == nil {
			affected = count
		}
	}

	if err := s.schedules.DeleteSchedule(ctx, scheduleID); err != nil {
		return mapScheduleRepoError(err)
	}
	s.venues.Flush()
	if affected > 0 {
		// No notification channel yet; record who was dropped.
		s.loggerWith(ctx, "DeleteSchedule", "schedule_id", scheduleID).
			InfoContext(ctx, "schedule removed with active bookings", "bookings", affected)
	}
	return nil
}

// DeleteMySchedules removes every occurrence the calling admin created
// and reports how many schedules and bookings went with them.
func (s *ScheduleService) DeleteMySchedules(ctx context.Context, principal Principal) (persistence.DeletionCounts, error) {
	if s == nil || s.schedules == nil {
		return persistence.DeletionCounts{}, fmt.Errorf("schedule store not configured")
	}
	if err := requireAdmin(principal); err != nil {
		return persistence.DeletionCounts{}, err
	}

	counts, err := s.schedules.DeleteSchedulesByAdmin(ctx, principal.UserID)
	if err != nil {
		return persistence.DeletionCounts{}, mapScheduleRepoError(err)
	}
	s.venues.Flush()
	return counts, nil
}

// CleanupOldSchedules drops occurrences that ended before the retention
// window. It runs from the background janitor, not a request path.
func (s *ScheduleService) CleanupOldSchedules(ctx context.Context, retention time.Duration) (persistence.DeletionCounts, error) {
	if s == nil || s.schedules == nil {
		return persistence.DeletionCounts{}, fmt.Errorf("schedule store not configured")
	}

	cutoff := s.now().Add(-retention)
	logger := s.loggerWith(ctx, "CleanupOldSchedules", "cutoff", cutoff)

	counts, err := s.schedules.DeleteSchedulesEndedBefore(ctx, cutoff)
	if err != nil {
		logger.ErrorContext(ctx, "cleanup failed", "error", err, "error_kind", ErrorKind(err))
		return persistence.DeletionCounts{}, err
	}
	if counts.Schedules > 0 {
		s.venues.Flush()
		logger.With("schedules", counts.Schedules, "bookings", counts.Bookings).
			InfoContext(ctx, "old schedules removed")
	}
	return counts, nil
}

// SuggestVenues returns venues starting with the prefix, most used first.
func (s *ScheduleService) SuggestVenues(ctx context.Context, prefix string) ([]VenueSummary, error) {
	if s == nil || s.schedules == nil {
		return nil, fmt.Errorf("schedule store not configured")
	}

	prefix = strings.TrimSpace(prefix)
	if cached, ok := s.venues.Get(prefix); ok {
		return cached, nil
	}

	usages, err := s.schedules.ListVenues(ctx, prefix, s.now())
	if err != nil {
		return nil, err
	}

	summaries := make([]VenueSummary, len(usages))
	for i, usage := range usages {
		summaries[i] = VenueSummary(usage)
	}
	s.venues.Set(prefix, summaries)
	return summaries, nil
}

// RenameVenue rewrites a venue across every occurrence. Renaming onto an
// existing venue merges the two; the count reports affected occurrences.
func (s *ScheduleService) RenameVenue(ctx context.Context, params RenameVenueParams) (int, error) {
	if s == nil || s.schedules == nil {
		return 0, fmt.Errorf("schedule store not configured")
	}
	if err := requireAdmin(params.Principal); err != nil {
		return 0, err
	}

	from := strings.TrimSpace(params.From)
	to := strings.TrimSpace(params.To)
	vErr := &ValidationError{}
	if from == "" {
		vErr.add("from", "venue is required")
	}
	if len(to) < minVenueLength || len(to) > maxVenueLength {
		vErr.add("to", fmt.Sprintf("venue must be between %d and %d characters", minVenueLength, maxVenueLength))
	}
	if vErr.HasErrors() {
		return 0, vErr
	}

	renamed, err := s.schedules.RenameVenue(ctx, from, to)
	if err != nil {
		return 0, mapScheduleRepoError(err)
	}
	if renamed == 0 {
		return 0, ErrNotFound
	}
	s.venues.Flush()
	return renamed, nil
}

func (s *ScheduleService) ensureSportExists(ctx context.Context, sportID string) error {
	if s.sports == nil {
		return nil
	}
	if _, err := s.sports.GetSport(ctx, sportID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			vErr := &ValidationError{}
			vErr.add("sport_id", "sport does not exist")
			return vErr
		}
		return err
	}
	return nil
}

func (s *ScheduleService) joinedScheduleIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	bookings, err := s.bookings.ListBookingsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	joined := make(map[string]struct{}, len(bookings))
	for _, booking := range bookings {
		joined[booking.ScheduleID] = struct{}{}
	}
	return joined, nil
}

func requireAdmin(principal Principal) error {
	if principal.IsAnonymous() {
		return ErrUnauthorized
	}
	if !principal.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func validateScheduleCore(input ScheduleInput, vErr *ValidationError) {
	if strings.TrimSpace(input.SportID) == "" {
		vErr.add("sport_id", "sport is required")
	}

	venue := strings.TrimSpace(input.Venue)
	if len(venue) < minVenueLength || len(venue) > maxVenueLength {
		vErr.add("venue", fmt.Sprintf("venue must be between %d and %d characters", minVenueLength, maxVenueLength))
	}

	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	}

	if !input.StartTime.Before(input.EndTime) {
		vErr.add("time", "start time must be before end time")
	}

	if input.MaxPlayers < minPlayers || input.MaxPlayers > maxPlayers {
		vErr.add("max_players", fmt.Sprintf("max players must be between %d and %d", minPlayers, maxPlayers))
	}

	if err := timeutil.ValidateOffset(input.UTCOffsetMinutes); err != nil {
		vErr.add("utc_offset_minutes", "offset must be between -720 and 720 minutes")
	}
}

func mapRecurrenceError(err error) error {
	if err == nil {
		return nil
	}

	vErr := &ValidationError{}
	switch {
	case errors.Is(err, recurrence.ErrInvalidFrequency):
		vErr.add("frequency", "unknown recurrence frequency")
	case errors.Is(err, recurrence.ErrMissingEndDate):
		vErr.add("end_date", "recurring schedules need an end date")
	case errors.Is(err, recurrence.ErrEndBeforeStart):
		vErr.add("end_date", "end date must not precede the start date")
	case errors.Is(err, recurrence.ErrMissingWeekdays):
		vErr.add("days_of_week", "weekly recurrence needs at least one weekday")
	case errors.Is(err, recurrence.ErrEmptyExpansion):
		vErr.add("recurrence", "rule produces no dates in the given range")
	default:
		return err
	}
	return vErr
}

func toSchedule(record persistence.Schedule) Schedule {
	return Schedule{
		ID:               record.ID,
		SportID:          record.SportID,
		Venue:            record.Venue,
		StartTime:        record.StartTime,
		EndTime:          record.EndTime,
		MaxPlayers:       record.MaxPlayers,
		Equipment:        record.Equipment,
		CreatedByAdminID: record.CreatedByAdminID,
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}
}

func mapScheduleRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "start time must be before end time")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("sport_id", "sport does not exist")
		return vErr
	}
	return err
}
