// Package config loads service configuration from the environment and
// engine tuning from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds process settings. Every field has a working default so the
// service starts with an empty environment.
type Config struct {
	Port             string
	DatabaseURL      string // empty selects the in-memory store
	DBMigrate        bool
	RedisURL         string // empty selects the in-process broker
	SeedFile         string // JSON dataset loaded into the in-memory store
	TuningFile       string
	RateRPS          float64
	RateBurst        int
	GoogleMapsAPIKey string // empty disables live geocoding
	GoogleMapsURL    string
	GeocodeTimeout   time.Duration
	GeocodeCacheSize int
	LogLevel         string
	LogFormat        string // console or json
	WebhookURL       string // empty disables tour notifications
	WebhookSecret    string
	WebhookAttempts  int
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	c := Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:         strings.TrimSpace(os.Getenv("REDIS_URL")),
		SeedFile:         os.Getenv("SEED_FILE"),
		TuningFile:       os.Getenv("TOUR_TUNING_FILE"),
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		GoogleMapsURL:    getEnv("GOOGLE_MAPS_URL", "https://maps.googleapis.com/maps/api/geocode/json"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "console"),
		WebhookURL:       strings.TrimSpace(os.Getenv("WEBHOOK_URL")),
		WebhookSecret:    os.Getenv("WEBHOOK_SECRET"),
	}
	var err error
	if c.DBMigrate, err = getEnvBool("DB_MIGRATE", true); err != nil {
		return c, err
	}
	if c.RateRPS, err = getEnvFloat("RATE_RPS", 5); err != nil {
		return c, err
	}
	if c.RateBurst, err = getEnvInt("RATE_BURST", 10); err != nil {
		return c, err
	}
	if c.GeocodeTimeout, err = getEnvDuration("GEOCODE_TIMEOUT", 5*time.Second); err != nil {
		return c, err
	}
	if c.GeocodeCacheSize, err = getEnvInt("GEOCODE_CACHE_SIZE", 10000); err != nil {
		return c, err
	}
	if c.WebhookAttempts, err = getEnvInt("WEBHOOK_MAX_ATTEMPTS", 5); err != nil {
		return c, err
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return c, fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	return c, nil
}

// Addr is the listen address.
func (c Config) Addr() string { return ":" + c.Port }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
