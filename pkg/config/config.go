package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Environment string
	ServerPort  int
	LogLevel    string

	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabaseSSLMode  string

	RedisURL string

	JWTSecret       string
	TokenTTL        time.Duration
	BookingLockTTL  time.Duration
	SweepInterval   time.Duration
	SpaceCacheTTL   time.Duration
	RateLimitPerMin int

	// Bookable window of a business day, hours in 24h local time. Used by
	// the free-slot search.
	BusinessDayStartHour int
	BusinessDayEndHour   int

	// Booking duration bounds in minutes.
	MinBookingMinutes int
	MaxBookingMinutes int

	CORSAllowedOrigins []string
}

// Load reads configuration from a .env file (if present) and the
// environment.
func Load() (*Config, error) {
	// Missing .env is fine; env vars still apply.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	lockTTL, err := time.ParseDuration(getEnv("BOOKING_LOCK_TTL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_LOCK_TTL: %w", err)
	}

	sweepInterval, err := time.ParseDuration(getEnv("SWEEP_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnv("SPACE_CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SPACE_CACHE_TTL: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	dayStart, err := strconv.Atoi(getEnv("BUSINESS_DAY_START_HOUR", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_DAY_START_HOUR: %w", err)
	}

	dayEnd, err := strconv.Atoi(getEnv("BUSINESS_DAY_END_HOUR", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_DAY_END_HOUR: %w", err)
	}

	minBooking, err := strconv.Atoi(getEnv("MIN_BOOKING_MINUTES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_BOOKING_MINUTES: %w", err)
	}

	maxBooking, err := strconv.Atoi(getEnv("MAX_BOOKING_MINUTES", "720"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_BOOKING_MINUTES: %w", err)
	}

	if dayEnd <= dayStart {
		return nil, fmt.Errorf("BUSINESS_DAY_END_HOUR must be after BUSINESS_DAY_START_HOUR")
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DatabaseHost:     getEnv("DB_HOST", "localhost"),
		DatabasePort:     dbPort,
		DatabaseUser:     getEnv("DB_USER", "reservespace"),
		DatabasePassword: getEnv("DB_PASSWORD", "dev"),
		DatabaseName:     getEnv("DB_NAME", "reservespace"),
		DatabaseSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		TokenTTL:        tokenTTL,
		BookingLockTTL:  lockTTL,
		SweepInterval:   sweepInterval,
		SpaceCacheTTL:   cacheTTL,
		RateLimitPerMin: rateLimit,

		BusinessDayStartHour: dayStart,
		BusinessDayEndHour:   dayEnd,
		MinBookingMinutes:    minBooking,
		MaxBookingMinutes:    maxBooking,

		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
