package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/raj29code/playohcanada/internal/persistence"
	"github.com/raj29code/playohcanada/internal/recurrence"
	"github.com/raj29code/playohcanada/internal/timeutil"
)

func TestScheduleService_CreateSchedules(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)
	admin := Principal{UserID: "admin-1", Role: RoleAdmin}

	validInput := func() ScheduleInput {
		return ScheduleInput{
			SportID:          "sport-1",
			Venue:            "Central Court",
			Date:             timeutil.Date{Year: 2026, Month: time.January, Day: 5},
			StartTime:        timeutil.TimeOfDay{Hour: 18},
			EndTime:          timeutil.TimeOfDay{Hour: 20},
			UTCOffsetMinutes: 330,
			MaxPlayers:       10,
		}
	}

	newService := func(store *scheduleStoreStub) *ScheduleService {
		seq := 0
		sports := &sportCatalogStub{sports: map[string]persistence.Sport{"sport-1": {ID: "sport-1", Name: "Badminton"}}}
		return NewScheduleService(store, sports, newBookingCounterStub(), func() string {
			seq++
			return fmt.Sprintf("schedule-%d", seq)
		}, func() time.Time { return now }, nil)
	}

	t.Run("stores one occurrence for a non-recurring input", func(t *testing.T) {
		t.Parallel()

		store := newScheduleStoreStub()
		svc := newService(store)

		created, err := svc.CreateSchedules(context.Background(), CreateSchedulesParams{Principal: admin, Input: validInput()})
		if err != nil {
			t.Fatalf("CreateSchedules failed: %v", err)
		}
		if len(created) != 1 {
			t.Fatalf("expected one occurrence, got %d", len(created))
		}

		// 18:00 at UTC+05:30 is 12:30 UTC.
		wantStart := time.Date(2026, time.January, 5, 12, 30, 0, 0, time.UTC)
		if !created[0].StartTime.Equal(wantStart) {
			t.Fatalf("expected start %v, got %v", wantStart, created[0].StartTime)
		}
		if created[0].CreatedByAdminID != "admin-1" {
			t.Fatalf("expected creating admin to be recorded, got %q", created[0].CreatedByAdminID)
		}
		if len(store.createBatches) != 1 || len(store.createBatches[0]) != 1 {
			t.Fatalf("expected a single batch of one, got %#v", store.createBatches)
		}
	})

	t.Run("expands a weekly rule into one occurrence per date", func(t *testing.T) {
		t.Parallel()

		store := newScheduleStoreStub()
		svc := newService(store)

		input := validInput()
		input.Recurrence = recurrence.Rule{
			Recurring: true,
			Frequency: recurrence.FrequencyWeekly,
			EndDate:   timeutil.Date{Year: 2026, Month: time.January, Day: 31},
			Weekdays:  []time.Weekday{time.Wednesday},
		}

		created, err := svc.CreateSchedules(context.Background(), CreateSchedulesParams{Principal: admin, Input: input})
		if err != nil {
			t.Fatalf("CreateSchedules failed: %v", err)
		}

		wantDays := []int{7, 14, 21, 28}
		if len(created) != len(wantDays) {
			t.Fatalf("expected %d occurrences, got %d", len(wantDays), len(created))
		}
		for i, day := range wantDays {
			wantStart := time.Date(2026, time.January, day, 12, 30, 0, 0, time.UTC)
			if !created[i].StartTime.Equal(wantStart) {
				t.Fatalf("occurrence %d: expected start %v, got %v", i, wantStart, created[i].StartTime)
			}
		}
		if len(store.createBatches) != 1 {
			t.Fatalf("expected the series to land in one batch, got %d", len(store.createBatches))
		}
	})

	t.Run("maps recurrence mistakes to field errors", func(t *testing.T) {
		t.Parallel()

		store := newScheduleStoreStub()
		svc := newService(store)

		input := validInput()
		input.Recurrence = recurrence.Rule{Recurring: true, Frequency: recurrence.FrequencyDaily}

		_, err := svc.CreateSchedules(context.Background(), CreateSchedulesParams{Principal: admin, Input: input})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if _, ok := vErr.FieldErrors["end_date"]; !ok {
			t.Fatalf("expected end_date field error, got %#v", vErr.FieldErrors)
		}
		if len(store.createBatches) != 0 {
			t.Fatalf("expected nothing stored, got %#v", store.createBatches)
		}
	})

	t.Run("rejects invalid core input with field errors", func(t *testing.T) {
		t.Parallel()

		svc := newService(newScheduleStoreStub())

		input := validInput()
		input.Venue = "ab"
		input.MaxPlayers = 0
		input.UTCOffsetMinutes = 900
		input.EndTime = input.StartTime

		_, err := svc.CreateSchedules(context.Background(), CreateSchedulesParams{Principal: admin, Input: input})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		for _, field := range []string{"venue", "max_players", "utc_offset_minutes", "time"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected field error for %q, got %#v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("rejects unknown sports", func(t *testing.T) {
		t.Parallel()

		svc := newService(newScheduleStoreStub())

		input := validInput()
		input.SportID = "missing"

		_, err := svc.CreateSchedules(context.Background(), CreateSchedulesParams{Principal: admin, Input: input})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if _, ok := vErr.FieldErrors["sport_id"]; !ok {
			t.Fatalf("expected sport_id field error, got %#v", vErr.FieldErrors)
		}
	})

	t.Run("is admin only", func(t *testing.T) {
		t.Parallel()

		svc := newService(newScheduleStoreStub())

		_, err := svc.CreateSchedules(context.Background(), CreateSchedulesParams{
			Principal: Principal{UserID: "user-1", Role: RoleUser},
			Input:     validInput(),
		})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}

		_, err = svc.CreateSchedules(context.Background(), CreateSchedulesParams{Input: validInput()})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestScheduleService_UpdateSchedule(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)
	admin := Principal{UserID: "admin-1", Role: RoleAdmin}

	input := ScheduleInput{
		SportID:          "sport-1",
		Venue:            "East Hall",
		Date:             timeutil.Date{Year: 2026, Month: time.January, Day: 10},
		StartTime:        timeutil.TimeOfDay{Hour: 18},
		EndTime:          timeutil.TimeOfDay{Hour: 20},
		UTCOffsetMinutes: 0,
		MaxPlayers:       4,
	}

	newService := func(store *scheduleStoreStub, counter *bookingCounterStub) *ScheduleService {
		sports := &sportCatalogStub{sports: map[string]persistence.Sport{"sport-1": {ID: "sport-1"}}}
		return NewScheduleService(store, sports, counter, nil, func() time.Time { return now }, nil)
	}

	t.Run("rewrites the occurrence", func(t *testing.T) {
		t.Parallel()

		store := newScheduleStoreStub()
		store.seed(persistence.Schedule{ID: "schedule-1", SportID: "sport-1", Venue: "Old Venue", MaxPlayers: 10, CreatedByAdminID: "admin-1"})

		svc := newService(store, newBookingCounterStub())

		updated, err := svc.UpdateSchedule(context.Background(), UpdateScheduleParams{Principal: admin, ScheduleID: "schedule-1", Input: input})
		if err != nil {
			t.Fatalf("UpdateSchedule failed: %v", err)
		}
		if updated.Venue != "East Hall" || updated.MaxPlayers != 4 {
			t.Fatalf("unexpected result: %#v", updated)
		}

		stored := store.schedules["schedule-1"]
		if stored.CreatedByAdminID != "admin-1" {
			t.Fatalf("expected creator to be preserved, got %q", stored.CreatedByAdminID)
		}
		wantStart := time.Date(2026, time.January, 10, 18, 0, 0, 0, time.UTC)
		if !stored.StartTime.Equal(wantStart) {
			t.Fatalf("expected start %v, got %v", wantStart, stored.StartTime)
		}
	})

	t.Run("refuses to shrink capacity below occupancy", func(t *testing.T) {
		t.Parallel()

		store := newScheduleStoreStub()
		store.seed(persistence.Schedule{ID: "schedule-1", SportID: "sport-1", Venue: "Old Venue", MaxPlayers: 10})

		counter := newBookingCounterStub()
		counter.counts["schedule-1"] = 5

		svc := newService(store, counter)

		_, err := svc.UpdateSchedule(context.Background(), UpdateScheduleParams{Principal: admin, ScheduleID: "schedule-1", Input: input})
		if !errors.Is(err, ErrCapacityBelowOccupancy) {
			t.Fatalf("expected ErrCapacityBelowOccupancy, got %v", err)
		}
	})

	t.Run("rejects unknown schedules", func(t *testing.T) {
		t.Parallel()

		svc := newService(newScheduleStoreStub(), newBookingCounterStub())

		_, err := svc.UpdateSchedule(context.Background(), UpdateScheduleParams{Principal: admin, ScheduleID: "missing", Input: input})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestScheduleService_ListSchedules(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)
	user := Principal{UserID: "user-1", Role: RoleUser}

	store := newScheduleStoreStub()
	store.seed(persistence.Schedule{ID: "past", Venue: "Court", StartTime: now.Add(-2 * time.Hour), MaxPlayers: 10})
	store.seed(persistence.Schedule{ID: "full", Venue: "Court", StartTime: now.Add(2 * time.Hour), MaxPlayers: 2})
	store.seed(persistence.Schedule{ID: "joined", Venue: "Court", StartTime: now.Add(3 * time.Hour), MaxPlayers: 10})
	store.seed(persistence.Schedule{ID: "open", Venue: "Court", StartTime: now.Add(4 * time.Hour), MaxPlayers: 10})

	counter := newBookingCounterStub()
	counter.counts["full"] = 2
	counter.counts["joined"] = 1
	counter.userBookings["user-1"] = []persistence.Booking{{ID: "booking-1", ScheduleID: "joined"}}

	svc := NewScheduleService(store, nil, counter, nil, func() time.Time { return now }, nil)

	t.Run("decorates listings with counts and joined state", func(t *testing.T) {
		t.Parallel()

		views, err := svc.ListSchedules(context.Background(), ListSchedulesParams{Principal: user})
		if err != nil {
			t.Fatalf("ListSchedules failed: %v", err)
		}
		if len(views) != 4 {
			t.Fatalf("expected 4 schedules, got %d", len(views))
		}

		byID := map[string]ScheduleView{}
		for _, view := range views {
			byID[view.ID] = view
		}
		if v := byID["full"]; v.BookedCount != 2 || v.SpotsLeft != 0 {
			t.Fatalf("unexpected full view: %#v", v)
		}
		if v := byID["joined"]; !v.Joined || v.SpotsLeft != 9 {
			t.Fatalf("unexpected joined view: %#v", v)
		}
	})

	t.Run("upcoming filter hides started schedules", func(t *testing.T) {
		t.Parallel()

		views, err := svc.ListSchedules(context.Background(), ListSchedulesParams{Principal: user, OnlyUpcoming: true})
		if err != nil {
			t.Fatalf("ListSchedules failed: %v", err)
		}
		for _, view := range views {
			if view.ID == "past" {
				t.Fatalf("expected past schedule to be filtered out")
			}
		}
		if len(views) != 3 {
			t.Fatalf("expected 3 upcoming schedules, got %d", len(views))
		}
	})

	t.Run("availability filter hides full schedules", func(t *testing.T) {
		t.Parallel()

		views, err := svc.ListSchedules(context.Background(), ListSchedulesParams{Principal: user, OnlyAvailable: true})
		if err != nil {
			t.Fatalf("ListSchedules failed: %v", err)
		}
		for _, view := range views {
			if view.ID == "full" {
				t.Fatalf("expected full schedule to be filtered out")
			}
		}
	})

	t.Run("exclude-joined filter hides the caller's schedules", func(t *testing.T) {
		t.Parallel()

		views, err := svc.ListSchedules(context.Background(), ListSchedulesParams{Principal: user, ExcludeJoined: true})
		if err != nil {
			t.Fatalf("ListSchedules failed: %v", err)
		}
		for _, view := range views {
			if view.ID == "joined" {
				t.Fatalf("expected joined schedule to be filtered out")
			}
		}
	})
}

func TestScheduleService_VenueOperations(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)
	admin := Principal{UserID: "admin-1", Role: RoleAdmin}

	t.Run("suggests venues by prefix", func(t *testing.T) {
		t.Parallel()

		store := newScheduleStoreStub()
		store.venues = []persistence.VenueUsage{{Venue: "Central Court", ScheduleCount: 7, UpcomingCount: 3}}
		svc := NewScheduleService(store, nil, nil, nil, func() time.Time { return now }, nil)

		summaries, err := svc.SuggestVenues(context.Background(), " Cen ")
		if err != nil {
			t.Fatalf("SuggestVenues failed: %v", err)
		}
		if len(summaries) != 1 || summaries[0].Venue != "Central Court" || summaries[0].UpcomingCount != 3 {
			t.Fatalf("unexpected summaries: %#v", summaries)
		}
		if len(store.venuePrefixes) != 1 || store.venuePrefixes[0] != "Cen" {
			t.Fatalf("expected trimmed prefix, got %#v", store.venuePrefixes)
		}
	})

	t.Run("renames venues and reports the occurrence count", func(t *testing.T) {
		t.Parallel()

		store := newScheduleStoreStub()
		store.renameCount = 3
		svc := NewScheduleService(store, nil, nil, nil, func() time.Time { return now }, nil)

		renamed, err := svc.RenameVenue(context.Background(), RenameVenueParams{Principal: admin, From: "Old Hall", To: "New Hall"})
		if err != nil {
			t.Fatalf("RenameVenue failed: %v", err)
		}
		if renamed != 3 {
			t.Fatalf("expected 3 renamed, got %d", renamed)
		}
	})

	t.Run("renaming an unknown venue is ErrNotFound", func(t *testing.T) {
		t.Parallel()

		store := newScheduleStoreStub()
		svc := NewScheduleService(store, nil, nil, nil, func() time.Time { return now }, nil)

		if _, err := svc.RenameVenue(context.Background(), RenameVenueParams{Principal: admin, From: "Nowhere", To: "Somewhere"}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rename validates the new name", func(t *testing.T) {
		t.Parallel()

		store := newScheduleStoreStub()
		svc := NewScheduleService(store, nil, nil, nil, func() time.Time { return now }, nil)

		_, err := svc.RenameVenue(context.Background(), RenameVenueParams{Principal: admin, From: "Old Hall", To: "ab"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestScheduleService_Deletions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)
	admin := Principal{UserID: "admin-1", Role: RoleAdmin}

	t.Run("deletes the calling admin's schedules", func(t *testing.T) {
		t.Parallel()

		store := newScheduleStoreStub()
		store.byAdminCounts = persistence.DeletionCounts{Schedules: 2, Bookings: 5}
		svc := NewScheduleService(store, nil, nil, nil, func() time.Time { return now }, nil)

		counts, err := svc.DeleteMySchedules(context.Background(), admin)
		if err != nil {
			t.Fatalf("DeleteMySchedules failed: %v", err)
		}
		if counts.Schedules != 2 || counts.Bookings != 5 {
			t.Fatalf("unexpected counts: %#v", counts)
		}
		if len(store.byAdminCalls) != 1 || store.byAdminCalls[0] != "admin-1" {
			t.Fatalf("expected deletion scoped to the caller, got %#v", store.byAdminCalls)
		}

		if _, err := svc.DeleteMySchedules(context.Background(), Principal{UserID: "user-1", Role: RoleUser}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("cleanup uses the retention cutoff", func(t *testing.T) {
		t.Parallel()

		store := newScheduleStoreStub()
		store.endedBeforeCounts = persistence.DeletionCounts{Schedules: 4, Bookings: 9}
		svc := NewScheduleService(store, nil, nil, nil, func() time.Time { return now }, nil)

		counts, err := svc.CleanupOldSchedules(context.Background(), 30*24*time.Hour)
		if err != nil {
			t.Fatalf("CleanupOldSchedules failed: %v", err)
		}
		if counts.Schedules != 4 {
			t.Fatalf("unexpected counts: %#v", counts)
		}

		wantCutoff := now.Add(-30 * 24 * time.Hour)
		if len(store.endedBeforeCutoffs) != 1 || !store.endedBeforeCutoffs[0].Equal(wantCutoff) {
			t.Fatalf("expected cutoff %v, got %#v", wantCutoff, store.endedBeforeCutoffs)
		}
	})
}

// scheduleStoreStub implements ScheduleStore for tests.
type scheduleStoreStub struct {
	schedules     map[string]persistence.Schedule
	createBatches [][]persistence.Schedule
	createErr     error

	deletedIDs         []string
	byAdminCalls       []string
	byAdminCounts      persistence.DeletionCounts
	endedBeforeCutoffs []time.Time
	endedBeforeCounts  persistence.DeletionCounts

	venues        []persistence.VenueUsage
	venuePrefixes []string
	renameCount   int
	renameErr     error
}

func newScheduleStoreStub() *scheduleStoreStub {
	return &scheduleStoreStub{schedules: make(map[string]persistence.Schedule)}
}

func (s *scheduleStoreStub) seed(schedule persistence.Schedule) {
	s.schedules[schedule.ID] = schedule
}

func (s *scheduleStoreStub) CreateSchedules(ctx context.Context, schedules []persistence.Schedule) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.createBatches = append(s.createBatches, schedules)
	for _, schedule := range schedules {
		s.schedules[schedule.ID] = schedule
	}
	return nil
}

func (s *scheduleStoreStub) UpdateSchedule(ctx context.Context, schedule persistence.Schedule) error {
	if _, ok := s.schedules[schedule.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.schedules[schedule.ID] = schedule
	return nil
}

func (s *scheduleStoreStub) GetSchedule(ctx context.Context, id string) (persistence.Schedule, error) {
	schedule, ok := s.schedules[id]
	if !ok {
		return persistence.Schedule{}, persistence.ErrNotFound
	}
	return schedule, nil
}

func (s *scheduleStoreStub) ListSchedules(ctx context.Context, filter persistence.ScheduleFilter) ([]persistence.Schedule, error) {
	var out []persistence.Schedule
	for _, schedule := range s.schedules {
		if filter.SportID != nil && schedule.SportID != *filter.SportID {
			continue
		}
		if filter.Venue != nil && schedule.Venue != *filter.Venue {
			continue
		}
		if filter.StartsAfter != nil && schedule.StartTime.Before(*filter.StartsAfter) {
			continue
		}
		if filter.StartsBefore != nil && !schedule.StartTime.Before(*filter.StartsBefore) {
			continue
		}
		out = append(out, schedule)
	}
	return out, nil
}

func (s *scheduleStoreStub) DeleteSchedule(ctx context.Context, id string) error {
	if _, ok := s.schedules[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.schedules, id)
	s.deletedIDs = append(s.deletedIDs, id)
	return nil
}

func (s *scheduleStoreStub) DeleteSchedulesByAdmin(ctx context.Context, adminID string) (persistence.DeletionCounts, error) {
	s.byAdminCalls = append(s.byAdminCalls, adminID)
	return s.byAdminCounts, nil
}

func (s *scheduleStoreStub) DeleteSchedulesEndedBefore(ctx context.Context, cutoff time.Time) (persistence.DeletionCounts, error) {
	s.endedBeforeCutoffs = append(s.endedBeforeCutoffs, cutoff)
	return s.endedBeforeCounts, nil
}

func (s *scheduleStoreStub) ListVenues(ctx context.Context, prefix string, reference time.Time) ([]persistence.VenueUsage, error) {
	s.venuePrefixes = append(s.venuePrefixes, prefix)
	return s.venues, nil
}

func (s *scheduleStoreStub) RenameVenue(ctx context.Context, from, to string) (int, error) {
	if s.renameErr != nil {
		return 0, s.renameErr
	}
	return s.renameCount, nil
}

// sportCatalogStub implements SportCatalog for tests.
type sportCatalogStub struct {
	sports map[string]persistence.Sport
}

func (s *sportCatalogStub) GetSport(ctx context.Context, id string) (persistence.Sport, error) {
	sport, ok := s.sports[id]
	if !ok {
		return persistence.Sport{}, persistence.ErrNotFound
	}
	return sport, nil
}

// bookingCounterStub implements BookingCounter for tests.
type bookingCounterStub struct {
	counts       map[string]int
	userBookings map[string][]persistence.Booking
}

func newBookingCounterStub() *bookingCounterStub {
	return &bookingCounterStub{
		counts:       make(map[string]int),
		userBookings: make(map[string][]persistence.Booking),
	}
}

func (s *bookingCounterStub) CountBookings(ctx context.Context, scheduleID string) (int, error) {
	return s.counts[scheduleID], nil
}

func (s *bookingCounterStub) CountBookingsBySchedule(ctx context.Context, scheduleIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(scheduleIDs))
	for _, id := range scheduleIDs {
		out[id] = s.counts[id]
	}
	return out, nil
}

func (s *bookingCounterStub) ListBookingsForUser(ctx context.Context, userID string) ([]persistence.Booking, error) {
	return s.userBookings[userID], nil
}
