package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raj29code/playohcanada/internal/persistence"
	"github.com/raj29code/playohcanada/internal/testfixtures"
)

// seedCatalog inserts the admin and sport rows the schedule foreign keys
// require, and returns their IDs.
func seedCatalog(t *testing.T, h *testfixtures.SQLiteHarness) (adminID, sportID string) {
	t.Helper()
	ctx := context.Background()

	admin := testfixtures.NewUserFixture(testfixtures.WithAdminRole())
	if err := h.Users.CreateUser(ctx, admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	sport := testfixtures.NewSportFixture()
	if err := h.Sports.CreateSport(ctx, sport); err != nil {
		t.Fatalf("seed sport: %v", err)
	}
	return admin.ID, sport.ID
}

func seedSchedule(t *testing.T, h *testfixtures.SQLiteHarness, opts ...testfixtures.ScheduleOption) persistence.Schedule {
	t.Helper()

	adminID, sportID := seedCatalog(t, h)
	schedule := testfixtures.NewScheduleFixture(append([]testfixtures.ScheduleOption{
		testfixtures.WithScheduleSport(sportID),
		testfixtures.WithCreatedByAdmin(adminID),
	}, opts...)...)
	if err := h.Schedules.CreateSchedules(context.Background(), []persistence.Schedule{schedule}); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}
	return schedule
}

func TestUserRepository(t *testing.T) {
	t.Parallel()

	t.Run("round trips an account", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		mobile := "555-0101"
		user := testfixtures.NewUserFixture(testfixtures.WithUserEmail("Dana@Example.com"))
		user.Mobile = &mobile
		if err := h.Users.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		got, err := h.Users.GetUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if got.Email != "dana@example.com" {
			t.Fatalf("stored email = %q, want lowercased", got.Email)
		}
		if got.Mobile == nil || *got.Mobile != mobile {
			t.Fatalf("mobile = %v, want %q", got.Mobile, mobile)
		}
		if !got.CreatedAt.Equal(user.CreatedAt.UTC()) {
			t.Fatalf("created_at = %v, want %v", got.CreatedAt, user.CreatedAt.UTC())
		}
	})

	t.Run("email lookup ignores case", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		user := testfixtures.NewUserFixture(testfixtures.WithUserEmail("mixed@example.com"))
		if err := h.Users.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		got, err := h.Users.GetUserByEmail(ctx, "MIXED@example.COM")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if got.ID != user.ID {
			t.Fatalf("found %q, want %q", got.ID, user.ID)
		}
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		first := testfixtures.NewUserFixture(testfixtures.WithUserEmail("taken@example.com"))
		if err := h.Users.CreateUser(ctx, first); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		second := testfixtures.NewUserFixture(testfixtures.WithUserEmail("Taken@example.com"))
		if err := h.Users.CreateUser(ctx, second); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("duplicate CreateUser = %v, want ErrDuplicate", err)
		}
	})

	t.Run("delete removes the account exactly once", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		user := testfixtures.NewUserFixture()
		if err := h.Users.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if err := h.Users.DeleteUser(ctx, user.ID); err != nil {
			t.Fatalf("DeleteUser failed: %v", err)
		}
		if err := h.Users.DeleteUser(ctx, user.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("second DeleteUser = %v, want ErrNotFound", err)
		}
		if _, err := h.Users.GetUser(ctx, user.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("GetUser after delete = %v, want ErrNotFound", err)
		}
	})
}

func TestSportRepository(t *testing.T) {
	t.Parallel()

	t.Run("duplicate name maps to ErrDuplicate", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		first := testfixtures.NewSportFixture(testfixtures.WithSportName("Badminton"))
		if err := h.Sports.CreateSport(ctx, first); err != nil {
			t.Fatalf("CreateSport failed: %v", err)
		}
		second := testfixtures.NewSportFixture(testfixtures.WithSportName("Badminton"))
		if err := h.Sports.CreateSport(ctx, second); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("duplicate CreateSport = %v, want ErrDuplicate", err)
		}
	})

	t.Run("deleting a sport with schedules hits the foreign key", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		schedule := seedSchedule(t, h)
		if err := h.Sports.DeleteSport(ctx, schedule.SportID); !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("DeleteSport with schedules = %v, want ErrForeignKeyViolation", err)
		}

		if err := h.Schedules.DeleteSchedule(ctx, schedule.ID); err != nil {
			t.Fatalf("DeleteSchedule failed: %v", err)
		}
		if err := h.Sports.DeleteSport(ctx, schedule.SportID); err != nil {
			t.Fatalf("DeleteSport after schedules removed: %v", err)
		}
	})
}

func TestScheduleRepository(t *testing.T) {
	t.Parallel()

	t.Run("batch create is atomic", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		adminID, sportID := seedCatalog(t, h)
		batch := []persistence.Schedule{
			testfixtures.NewScheduleFixture(testfixtures.WithScheduleSport(sportID), testfixtures.WithCreatedByAdmin(adminID)),
			testfixtures.NewScheduleFixture(testfixtures.WithScheduleSport(sportID), testfixtures.WithCreatedByAdmin(adminID)),
			// Broken row: max_players violates the CHECK constraint.
			testfixtures.NewScheduleFixture(
				testfixtures.WithScheduleSport(sportID),
				testfixtures.WithCreatedByAdmin(adminID),
				testfixtures.WithMaxPlayers(0),
			),
		}

		if err := h.Schedules.CreateSchedules(ctx, batch); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("CreateSchedules with broken row = %v, want ErrConstraintViolation", err)
		}

		listed, err := h.Schedules.ListSchedules(ctx, persistence.ScheduleFilter{})
		if err != nil {
			t.Fatalf("ListSchedules failed: %v", err)
		}
		if len(listed) != 0 {
			t.Fatalf("rows after failed batch = %d, want 0", len(listed))
		}
	})

	t.Run("inverted times are rejected by repository and schema alike", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		adminID, sportID := seedCatalog(t, h)
		inverted := testfixtures.NewScheduleFixture(
			testfixtures.WithScheduleSport(sportID),
			testfixtures.WithCreatedByAdmin(adminID),
		)
		inverted.EndTime = inverted.StartTime

		if err := h.Schedules.CreateSchedules(ctx, []persistence.Schedule{inverted}); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("CreateSchedules with end == start = %v, want ErrConstraintViolation", err)
		}

		// The table carries its own end > start CHECK, so even a write
		// bypassing the repository cannot store an inverted occurrence.
		_, err := h.Pool.DB().ExecContext(ctx, `
			INSERT INTO schedules (id, sport_id, venue, start_time, end_time,
				max_players, equipment, created_by_admin_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?, ?)`,
			"sched-inverted", sportID, "Central Court",
			"2026-01-05T20:00:00Z", "2026-01-05T18:00:00Z",
			10, adminID, "2026-01-01T09:00:00Z", "2026-01-01T09:00:00Z",
		)
		if err == nil {
			t.Fatal("expected the schema to reject end_time <= start_time")
		}
	})

	t.Run("filters narrow the listing", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		adminID, sportID := seedCatalog(t, h)
		base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
		early := testfixtures.NewScheduleFixture(
			testfixtures.WithScheduleSport(sportID),
			testfixtures.WithCreatedByAdmin(adminID),
			testfixtures.WithVenue("Central Court"),
			testfixtures.WithStartTime(base),
		)
		late := testfixtures.NewScheduleFixture(
			testfixtures.WithScheduleSport(sportID),
			testfixtures.WithCreatedByAdmin(adminID),
			testfixtures.WithVenue("Riverside Gym"),
			testfixtures.WithStartTime(base.Add(48*time.Hour)),
		)
		if err := h.Schedules.CreateSchedules(ctx, []persistence.Schedule{early, late}); err != nil {
			t.Fatalf("CreateSchedules failed: %v", err)
		}

		venue := "central"
		byVenue, err := h.Schedules.ListSchedules(ctx, persistence.ScheduleFilter{Venue: &venue})
		if err != nil {
			t.Fatalf("ListSchedules by venue failed: %v", err)
		}
		if len(byVenue) != 1 || byVenue[0].ID != early.ID {
			t.Fatalf("venue filter returned %+v", byVenue)
		}

		after := base.Add(24 * time.Hour)
		upcoming, err := h.Schedules.ListSchedules(ctx, persistence.ScheduleFilter{StartsAfter: &after})
		if err != nil {
			t.Fatalf("ListSchedules by start failed: %v", err)
		}
		if len(upcoming) != 1 || upcoming[0].ID != late.ID {
			t.Fatalf("start filter returned %+v", upcoming)
		}
	})

	t.Run("deleting a schedule cascades to its bookings", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		schedule := seedSchedule(t, h)
		booking := testfixtures.NewBookingFixture(
			testfixtures.WithBookingSchedule(schedule.ID),
			testfixtures.AsGuest("Walk In", nil),
		)
		if err := h.Bookings.InsertBooking(ctx, booking); err != nil {
			t.Fatalf("InsertBooking failed: %v", err)
		}

		if err := h.Schedules.DeleteSchedule(ctx, schedule.ID); err != nil {
			t.Fatalf("DeleteSchedule failed: %v", err)
		}
		if _, err := h.Bookings.GetBooking(ctx, booking.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("GetBooking after cascade = %v, want ErrNotFound", err)
		}
	})

	t.Run("bulk delete reports schedule and booking counts", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		adminID, sportID := seedCatalog(t, h)
		first := testfixtures.NewScheduleFixture(testfixtures.WithScheduleSport(sportID), testfixtures.WithCreatedByAdmin(adminID))
		second := testfixtures.NewScheduleFixture(testfixtures.WithScheduleSport(sportID), testfixtures.WithCreatedByAdmin(adminID))
		if err := h.Schedules.CreateSchedules(ctx, []persistence.Schedule{first, second}); err != nil {
			t.Fatalf("CreateSchedules failed: %v", err)
		}
		for i, scheduleID := range []string{first.ID, first.ID, second.ID} {
			booking := testfixtures.NewBookingFixture(
				testfixtures.WithBookingSchedule(scheduleID),
				testfixtures.AsGuest("Guest", nil),
			)
			if err := h.Bookings.InsertBooking(ctx, booking); err != nil {
				t.Fatalf("InsertBooking %d failed: %v", i, err)
			}
		}

		counts, err := h.Schedules.DeleteSchedulesByAdmin(ctx, adminID)
		if err != nil {
			t.Fatalf("DeleteSchedulesByAdmin failed: %v", err)
		}
		if counts.Schedules != 2 || counts.Bookings != 3 {
			t.Fatalf("counts = %+v, want {2 3}", counts)
		}
	})

	t.Run("retention delete only touches ended occurrences", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		adminID, sportID := seedCatalog(t, h)
		cutoff := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
		old := testfixtures.NewScheduleFixture(
			testfixtures.WithScheduleSport(sportID),
			testfixtures.WithCreatedByAdmin(adminID),
			testfixtures.WithStartTime(cutoff.Add(-72*time.Hour)),
		)
		recent := testfixtures.NewScheduleFixture(
			testfixtures.WithScheduleSport(sportID),
			testfixtures.WithCreatedByAdmin(adminID),
			testfixtures.WithStartTime(cutoff.Add(24*time.Hour)),
		)
		if err := h.Schedules.CreateSchedules(ctx, []persistence.Schedule{old, recent}); err != nil {
			t.Fatalf("CreateSchedules failed: %v", err)
		}

		counts, err := h.Schedules.DeleteSchedulesEndedBefore(ctx, cutoff)
		if err != nil {
			t.Fatalf("DeleteSchedulesEndedBefore failed: %v", err)
		}
		if counts.Schedules != 1 {
			t.Fatalf("deleted %d schedules, want 1", counts.Schedules)
		}
		if _, err := h.Schedules.GetSchedule(ctx, recent.ID); err != nil {
			t.Fatalf("surviving schedule lookup failed: %v", err)
		}
	})

	t.Run("venue statistics and rename", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		adminID, sportID := seedCatalog(t, h)
		reference := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
		past := testfixtures.NewScheduleFixture(
			testfixtures.WithScheduleSport(sportID),
			testfixtures.WithCreatedByAdmin(adminID),
			testfixtures.WithVenue("Central Court"),
			testfixtures.WithStartTime(reference.Add(-24*time.Hour)),
		)
		future := testfixtures.NewScheduleFixture(
			testfixtures.WithScheduleSport(sportID),
			testfixtures.WithCreatedByAdmin(adminID),
			testfixtures.WithVenue("central court"),
			testfixtures.WithStartTime(reference.Add(24*time.Hour)),
		)
		other := testfixtures.NewScheduleFixture(
			testfixtures.WithScheduleSport(sportID),
			testfixtures.WithCreatedByAdmin(adminID),
			testfixtures.WithVenue("Riverside Gym"),
			testfixtures.WithStartTime(reference.Add(24*time.Hour)),
		)
		if err := h.Schedules.CreateSchedules(ctx, []persistence.Schedule{past, future, other}); err != nil {
			t.Fatalf("CreateSchedules failed: %v", err)
		}

		venues, err := h.Schedules.ListVenues(ctx, "cen", reference)
		if err != nil {
			t.Fatalf("ListVenues failed: %v", err)
		}
		if len(venues) != 1 {
			t.Fatalf("venues = %+v, want a single case-folded entry", venues)
		}
		if venues[0].ScheduleCount != 2 || venues[0].UpcomingCount != 1 {
			t.Fatalf("usage = %+v, want 2 total, 1 upcoming", venues[0])
		}

		renamed, err := h.Schedules.RenameVenue(ctx, "CENTRAL COURT", "Main Court")
		if err != nil {
			t.Fatalf("RenameVenue failed: %v", err)
		}
		if renamed != 2 {
			t.Fatalf("renamed %d rows, want 2", renamed)
		}
	})
}

func TestBookingRepository(t *testing.T) {
	t.Parallel()

	t.Run("insert enforces capacity", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		schedule := seedSchedule(t, h, testfixtures.WithMaxPlayers(1))
		first := testfixtures.NewBookingFixture(
			testfixtures.WithBookingSchedule(schedule.ID),
			testfixtures.AsGuest("First", nil),
		)
		if err := h.Bookings.InsertBooking(ctx, first); err != nil {
			t.Fatalf("InsertBooking failed: %v", err)
		}

		second := testfixtures.NewBookingFixture(
			testfixtures.WithBookingSchedule(schedule.ID),
			testfixtures.AsGuest("Second", nil),
		)
		if err := h.Bookings.InsertBooking(ctx, second); !errors.Is(err, persistence.ErrCapacityExceeded) {
			t.Fatalf("InsertBooking past capacity = %v, want ErrCapacityExceeded", err)
		}
	})

	t.Run("registered users hold at most one spot", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		schedule := seedSchedule(t, h, testfixtures.WithMaxPlayers(5))
		player := testfixtures.NewUserFixture()
		if err := h.Users.CreateUser(ctx, player); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		first := testfixtures.NewBookingFixture(
			testfixtures.WithBookingSchedule(schedule.ID),
			testfixtures.WithBookingUser(player.ID),
		)
		if err := h.Bookings.InsertBooking(ctx, first); err != nil {
			t.Fatalf("InsertBooking failed: %v", err)
		}

		second := testfixtures.NewBookingFixture(
			testfixtures.WithBookingSchedule(schedule.ID),
			testfixtures.WithBookingUser(player.ID),
		)
		if err := h.Bookings.InsertBooking(ctx, second); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("second InsertBooking = %v, want ErrDuplicate", err)
		}
	})

	t.Run("guests are never deduplicated", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		schedule := seedSchedule(t, h, testfixtures.WithMaxPlayers(5))
		for i := 0; i < 3; i++ {
			booking := testfixtures.NewBookingFixture(
				testfixtures.WithBookingSchedule(schedule.ID),
				testfixtures.AsGuest("Same Name", nil),
			)
			if err := h.Bookings.InsertBooking(ctx, booking); err != nil {
				t.Fatalf("guest insert %d failed: %v", i, err)
			}
		}

		count, err := h.Bookings.CountBookings(ctx, schedule.ID)
		if err != nil {
			t.Fatalf("CountBookings failed: %v", err)
		}
		if count != 3 {
			t.Fatalf("count = %d, want 3", count)
		}
	})

	t.Run("a booking names a user or a guest, never neither", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		schedule := seedSchedule(t, h)
		booking := testfixtures.NewBookingFixture(testfixtures.WithBookingSchedule(schedule.ID))
		booking.UserID = nil
		booking.GuestName = nil

		if err := h.Bookings.InsertBooking(ctx, booking); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("ownerless InsertBooking = %v, want ErrConstraintViolation", err)
		}
	})

	t.Run("missing schedule maps to ErrNotFound", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		booking := testfixtures.NewBookingFixture(
			testfixtures.WithBookingSchedule("gone"),
			testfixtures.AsGuest("Guest", nil),
		)
		if err := h.Bookings.InsertBooking(ctx, booking); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("InsertBooking for missing schedule = %v, want ErrNotFound", err)
		}
	})

	t.Run("concurrent joins never oversell the last spots", func(t *testing.T) {
		t.Parallel()
		h := testfixtures.NewSQLiteHarness(t)
		ctx := context.Background()

		const capacity = 3
		const contenders = 12
		schedule := seedSchedule(t, h, testfixtures.WithMaxPlayers(capacity))

		var wg sync.WaitGroup
		errs := make([]error, contenders)
		for i := 0; i < contenders; i++ {
			wg.Add(1)
			booking := testfixtures.NewBookingFixture(
				testfixtures.WithBookingSchedule(schedule.ID),
				testfixtures.AsGuest("Racer", nil),
			)
			go func(i int, booking persistence.Booking) {
				defer wg.Done()
				errs[i] = h.Bookings.InsertBooking(ctx, booking)
			}(i, booking)
		}
		wg.Wait()

		var wins, rejections int
		for i, err := range errs {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, persistence.ErrCapacityExceeded):
				rejections++
			default:
				t.Fatalf("insert %d returned unexpected error: %v", i, err)
			}
		}
		if wins != capacity {
			t.Fatalf("wins = %d, want exactly %d", wins, capacity)
		}
		if rejections != contenders-capacity {
			t.Fatalf("rejections = %d, want %d", rejections, contenders-capacity)
		}

		count, err := h.Bookings.CountBookings(ctx, schedule.ID)
		if err != nil {
			t.Fatalf("CountBookings failed: %v", err)
		}
		if count != capacity {
			t.Fatalf("stored bookings = %d, want %d", count, capacity)
		}
	})
}

func TestRevokedTokenRepository(t *testing.T) {
	t.Parallel()

	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	entry := testfixtures.NewRevokedTokenFixture("token-1", "user-1", now)
	if err := h.RevokedTokens.RevokeToken(ctx, entry); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}

	revoked, err := h.RevokedTokens.IsTokenRevoked(ctx, "token-1")
	if err != nil {
		t.Fatalf("IsTokenRevoked failed: %v", err)
	}
	if !revoked {
		t.Fatal("expected token-1 to be revoked")
	}

	revoked, err = h.RevokedTokens.IsTokenRevoked(ctx, "token-2")
	if err != nil {
		t.Fatalf("IsTokenRevoked failed: %v", err)
	}
	if revoked {
		t.Fatal("token-2 was never revoked")
	}

	// Before expiry nothing is pruned; after it, the entry goes away.
	removed, err := h.RevokedTokens.DeleteExpiredTokens(ctx, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpiredTokens failed: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed %d entries early, want 0", removed)
	}

	removed, err = h.RevokedTokens.DeleteExpiredTokens(ctx, now.Add(25*time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpiredTokens failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d entries, want 1", removed)
	}
}
