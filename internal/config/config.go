package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	AppEnv         string
	ServerPort     int
	DatabasePath   string
	LogLevel       string
	RequestTimeout time.Duration
	AllowedOrigins []string

	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	TokenPurgeSchedule string // cron spec, e.g. "@hourly" or "0 * * * *"

	// Bootstrap admin account, created on startup when both are set.
	AdminEmail    string
	AdminUsername string
	AdminPassword string
}

const devJWTSecret = "insecure-development-secret"

// Load reads an optional .env file and then loads configuration from
// environment variables, falling back to defaults.
func Load() (*Config, error) {
	// A missing .env file is fine; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	requestTimeout, err := getDuration("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	accessTTL, err := getDuration("JWT_ACCESS_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := getDuration("JWT_REFRESH_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	if accessTTL > refreshTTL {
		return nil, fmt.Errorf("JWT_ACCESS_TTL (%s) must not exceed JWT_REFRESH_TTL (%s)", accessTTL, refreshTTL)
	}

	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		ServerPort:         port,
		DatabasePath:       getEnv("DATABASE_PATH", "./quill.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RequestTimeout:     requestTimeout,
		AllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTIssuer:          getEnv("JWT_ISSUER", "quill"),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
		TokenPurgeSchedule: getEnv("TOKEN_PURGE_SCHEDULE", "@hourly"),
		AdminEmail:         getEnv("ADMIN_EMAIL", ""),
		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Helper to get an environment variable with a default value. Empty values count as unset.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
