package testfixtures

import (
	"log/slog"
	"testing"
	"time"

	"github.com/raj29code/playohcanada/internal/application"
	"github.com/raj29code/playohcanada/internal/auth"
	"github.com/raj29code/playohcanada/internal/persistence/memory"
	"github.com/raj29code/playohcanada/internal/revocation"
)

// Environment wires the full service layer over the in-memory store with
// a manual clock and deterministic IDs. It is the fixture for tests that
// want real service interplay without a database file.
type Environment struct {
	Storage *memory.Storage
	Clock   *Clock
	IDs     *IDGenerator
	Tokens  *auth.TokenManager

	Auth      *application.AuthService
	Sports    *application.SportService
	Schedules *application.ScheduleService
	Bookings  *application.BookingService
	Users     *application.UserService
}

// EnvironmentOption configures the environment under construction.
type EnvironmentOption func(*environmentConfig)

type environmentConfig struct {
	start    time.Time
	tokenTTL time.Duration
	logger   *slog.Logger
}

// WithClockStart sets the clock's initial instant.
func WithClockStart(start time.Time) EnvironmentOption {
	return func(c *environmentConfig) { c.start = start }
}

// WithTokenTTL overrides the default 24 hour token lifetime.
func WithTokenTTL(ttl time.Duration) EnvironmentOption {
	return func(c *environmentConfig) { c.tokenTTL = ttl }
}

// WithLogger attaches a logger to every service.
func WithLogger(logger *slog.Logger) EnvironmentOption {
	return func(c *environmentConfig) { c.logger = logger }
}

// NewEnvironment builds a ready-to-use service environment.
func NewEnvironment(tb testing.TB, opts ...EnvironmentOption) *Environment {
	tb.Helper()

	cfg := environmentConfig{
		start:    ReferenceTime(),
		tokenTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	tokens, err := auth.NewTokenManager([]byte("testfixtures-signing-secret-0123456789"), cfg.tokenTTL)
	if err != nil {
		tb.Fatalf("failed to build token manager: %v", err)
	}

	storage := memory.Open()
	clock := NewClock(cfg.start)
	ids := NewIDGenerator("id")
	blacklist := revocation.NewRepositoryStore(storage)

	env := &Environment{
		Storage: storage,
		Clock:   clock,
		IDs:     ids,
		Tokens:  tokens,
	}
	env.Auth = application.NewAuthService(storage, tokens, blacklist, ids.NextFunc(), clock.NowFunc(), cfg.logger)
	env.Sports = application.NewSportService(storage, ids.NextFunc(), clock.NowFunc(), cfg.logger)
	env.Schedules = application.NewScheduleService(storage, storage, storage, ids.NextFunc(), clock.NowFunc(), cfg.logger)
	env.Bookings = application.NewBookingService(storage, storage, ids.NextFunc(), clock.NowFunc(), cfg.logger)
	env.Users = application.NewUserService(storage, clock.NowFunc())
	return env
}
