package testfixtures

import (
	"path/filepath"
	"testing"

	"github.com/raj29code/playohcanada/internal/persistence"
	"github.com/raj29code/playohcanada/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a throwaway SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool          *sqlite.ConnectionPool
	Users         persistence.UserRepository
	Sports        persistence.SportRepository
	Schedules     persistence.ScheduleRepository
	Bookings      persistence.BookingRepository
	RevokedTokens persistence.RevokedTokenRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a temporary database file, runs the schema, and
// wires every repository. Each harness gets its own file so parallel
// tests stay isolated. Cleanup is registered with the testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "playoh.db")
	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(path))
	if err != nil {
		tb.Fatalf("failed to open sqlite pool: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:          pool,
		Users:         sqlite.NewUserRepository(pool),
		Sports:        sqlite.NewSportRepository(pool),
		Schedules:     sqlite.NewScheduleRepository(pool),
		Bookings:      sqlite.NewBookingRepository(pool),
		RevokedTokens: sqlite.NewRevokedTokenRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
