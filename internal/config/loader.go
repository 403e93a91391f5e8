package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Revocation backend selectors.
const (
	RevocationSQLite = "sqlite"
	RevocationRedis  = "redis"
)

// Config captures environment driven configuration for the booking service.
type Config struct {
	HTTPPort  int
	SQLiteDSN string

	JWTSecret string
	TokenTTL  time.Duration

	RevocationBackend string
	RedisAddr         string

	ScheduleRetention time.Duration
	CleanupSchedule   string

	RateLimitPerSecond float64
	RateLimitBurst     int
	CORSOrigins        []string

	AdminEmail       string
	AdminDisplayName string
	AdminPassword    string
}

// Load parses configuration from the process environment. A .env file in
// the working directory is folded in first without overriding variables
// already set.
//
// The loader applies defaults for optional fields while validating
// required values, and reports every missing or malformed entry at once.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:           8080,
		SQLiteDSN:          "file:playoh.db",
		TokenTTL:           24 * time.Hour,
		RevocationBackend:  RevocationSQLite,
		ScheduleRetention:  30 * 24 * time.Hour,
		CleanupSchedule:    "0 3 * * *",
		RateLimitPerSecond: 20,
		RateLimitBurst:     40,
		AdminDisplayName:   "Administrator",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("PLAYOH_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "PLAYOH_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("PLAYOH_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := strings.TrimSpace(os.Getenv("PLAYOH_JWT_SECRET")); secret == "" {
		missing = append(missing, "PLAYOH_JWT_SECRET")
	} else if len(secret) < 32 {
		invalid = append(invalid, "PLAYOH_JWT_SECRET")
	} else {
		cfg.JWTSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("PLAYOH_TOKEN_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "PLAYOH_TOKEN_TTL")
		} else {
			cfg.TokenTTL = ttl
		}
	}

	if backend := strings.TrimSpace(os.Getenv("PLAYOH_REVOCATION_BACKEND")); backend != "" {
		switch backend {
		case RevocationSQLite, RevocationRedis:
			cfg.RevocationBackend = backend
		default:
			invalid = append(invalid, "PLAYOH_REVOCATION_BACKEND")
		}
	}
	if addr := strings.TrimSpace(os.Getenv("PLAYOH_REDIS_ADDR")); addr != "" {
		cfg.RedisAddr = addr
	}
	if cfg.RevocationBackend == RevocationRedis && cfg.RedisAddr == "" {
		missing = append(missing, "PLAYOH_REDIS_ADDR")
	}

	if retentionValue := strings.TrimSpace(os.Getenv("PLAYOH_SCHEDULE_RETENTION")); retentionValue != "" {
		retention, err := time.ParseDuration(retentionValue)
		if err != nil || retention <= 0 {
			invalid = append(invalid, "PLAYOH_SCHEDULE_RETENTION")
		} else {
			cfg.ScheduleRetention = retention
		}
	}

	if schedule := strings.TrimSpace(os.Getenv("PLAYOH_CLEANUP_SCHEDULE")); schedule != "" {
		cfg.CleanupSchedule = schedule
	}

	if rateValue := strings.TrimSpace(os.Getenv("PLAYOH_RATE_LIMIT_PER_SECOND")); rateValue != "" {
		rate, err := strconv.ParseFloat(rateValue, 64)
		if err != nil || rate <= 0 {
			invalid = append(invalid, "PLAYOH_RATE_LIMIT_PER_SECOND")
		} else {
			cfg.RateLimitPerSecond = rate
		}
	}

	if burstValue := strings.TrimSpace(os.Getenv("PLAYOH_RATE_LIMIT_BURST")); burstValue != "" {
		burst, err := strconv.Atoi(burstValue)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "PLAYOH_RATE_LIMIT_BURST")
		} else {
			cfg.RateLimitBurst = burst
		}
	}

	if originsValue := strings.TrimSpace(os.Getenv("PLAYOH_CORS_ORIGINS")); originsValue != "" {
		for _, origin := range strings.Split(originsValue, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	cfg.AdminEmail = strings.TrimSpace(os.Getenv("PLAYOH_ADMIN_EMAIL"))
	cfg.AdminPassword = os.Getenv("PLAYOH_ADMIN_PASSWORD")
	if name := strings.TrimSpace(os.Getenv("PLAYOH_ADMIN_DISPLAY_NAME")); name != "" {
		cfg.AdminDisplayName = name
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword == "" {
		missing = append(missing, "PLAYOH_ADMIN_PASSWORD")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr returns the listen address derived from the configured port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
