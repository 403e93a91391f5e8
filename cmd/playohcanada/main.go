package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/raj29code/playohcanada/internal/application"
	"github.com/raj29code/playohcanada/internal/auth"
	"github.com/raj29code/playohcanada/internal/config"
	httptransport "github.com/raj29code/playohcanada/internal/http"
	"github.com/raj29code/playohcanada/internal/persistence/sqlite"
	"github.com/raj29code/playohcanada/internal/revocation"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.SQLiteDSN))
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	users := sqlite.NewUserRepository(pool)
	sports := sqlite.NewSportRepository(pool)
	schedules := sqlite.NewScheduleRepository(pool)
	bookings := sqlite.NewBookingRepository(pool)
	revokedTokens := sqlite.NewRevokedTokenRepository(pool)

	blacklist, err := newRevocationStore(cfg, revokedTokens)
	if err != nil {
		logger.Error("failed to configure token revocation", "error", err, "backend", cfg.RevocationBackend)
		os.Exit(1)
	}

	tokens, err := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		logger.Error("failed to configure token signing", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	authService := application.NewAuthService(users, tokens, blacklist, idGenerator, now, logger)
	sportService := application.NewSportService(sports, idGenerator, now, logger)
	scheduleService := application.NewScheduleService(schedules, sports, bookings, idGenerator, now, logger)
	bookingService := application.NewBookingService(bookings, schedules, idGenerator, now, logger)
	userService := application.NewUserService(users, now)

	if cfg.AdminEmail != "" {
		if err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminDisplayName, cfg.AdminPassword); err != nil {
			logger.Error("failed to seed administrator account", "error", err)
			os.Exit(1)
		}
	}

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:      httptransport.NewAuthHandler(authService, userService, logger),
		Sports:    httptransport.NewSportHandler(sportService, logger),
		Schedules: httptransport.NewScheduleHandler(scheduleService, logger),
		Bookings:  httptransport.NewBookingHandler(bookingService, logger),
		Users:     httptransport.NewUserHandler(userService, logger),
		Logger:    logger,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			corsMiddleware.Handler,
			httptransport.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst, logger),
			httptransport.Authenticate(authService, logger),
		},
	})

	janitor := cron.New()
	if _, err := janitor.AddFunc(cfg.CleanupSchedule, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		counts, err := scheduleService.CleanupOldSchedules(jobCtx, cfg.ScheduleRetention)
		if err != nil {
			logger.Error("failed to clean up old schedules", "error", err)
		} else if counts.Schedules > 0 || counts.Bookings > 0 {
			logger.Info("cleaned up old schedules", "schedules", counts.Schedules, "bookings", counts.Bookings)
		}

		removed, err := blacklist.CleanupExpired(jobCtx, time.Now())
		if err != nil {
			logger.Error("failed to clean up revoked tokens", "error", err)
		} else if removed > 0 {
			logger.Info("cleaned up revoked tokens", "removed", removed)
		}
	}); err != nil {
		logger.Error("failed to schedule cleanup job", "error", err, "schedule", cfg.CleanupSchedule)
		os.Exit(1)
	}
	janitor.Start()
	defer janitor.Stop()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("booking API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// newRevocationStore picks the revocation backend. SQLite shares the main
// database; Redis keeps entries only until the token would expire anyway.
func newRevocationStore(cfg config.Config, repo *sqlite.RevokedTokenRepository) (revocation.Store, error) {
	switch cfg.RevocationBackend {
	case config.RevocationRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return revocation.NewRedisStore(client), nil
	case config.RevocationSQLite:
		return revocation.NewRepositoryStore(repo), nil
	default:
		return nil, errors.New("unknown revocation backend")
	}
}
