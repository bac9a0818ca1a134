// Package config loads settings from an optional YAML file, .env and
// TRANSIT_* environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultStaticURL           = "https://passio3.com/uga/passioTransit/gtfs/google_transit.zip"
	DefaultVehiclePositionsURL = "https://passio3.com/uga/passioTransit/gtfs/realtime/vehiclePositions"
	DefaultTripUpdatesURL      = "https://passio3.com/uga/passioTransit/gtfs/realtime/tripUpdates"
	DefaultAlertsURL           = "https://passio3.com/uga/passioTransit/gtfs/realtime/serviceAlerts"
)

type StorageConfig struct {
	// One of memory, sqlite or postgres.
	Driver string `yaml:"driver" validate:"oneof=memory sqlite postgres"`

	// Connection string for postgres. For sqlite, the directory
	// holding the database file; blank keeps it in memory.
	DSN string `yaml:"dsn" validate:"required_if=Driver postgres"`
}

type Config struct {
	StaticURL           string            `yaml:"static_url" validate:"required,url"`
	StaticHeaders       map[string]string `yaml:"static_headers"`
	VehiclePositionsURL string            `yaml:"vehicle_positions_url" validate:"omitempty,url"`
	TripUpdatesURL      string            `yaml:"trip_updates_url" validate:"omitempty,url"`
	AlertsURL           string            `yaml:"alerts_url" validate:"omitempty,url"`
	RealtimeHeaders     map[string]string `yaml:"realtime_headers"`

	// IANA name. Blank defers to the archive's agency timezone.
	Timezone string `yaml:"timezone" validate:"omitempty,timezone"`

	StaticTTL       time.Duration `yaml:"static_ttl" validate:"min=1m"`
	StaticTimeout   time.Duration `yaml:"static_timeout" validate:"min=1s"`
	RealtimeTimeout time.Duration `yaml:"realtime_timeout" validate:"min=1s"`

	Storage StorageConfig `yaml:"storage"`

	// Address to serve /metrics on. Blank disables.
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

func Default() *Config {
	return &Config{
		StaticURL:           DefaultStaticURL,
		VehiclePositionsURL: DefaultVehiclePositionsURL,
		TripUpdatesURL:      DefaultTripUpdatesURL,
		AlertsURL:           DefaultAlertsURL,
		StaticTTL:           24 * time.Hour,
		StaticTimeout:       60 * time.Second,
		RealtimeTimeout:     10 * time.Second,
		Storage:             StorageConfig{Driver: "memory"},
		LogLevel:            "info",
	}
}

// Loads configuration. path names an optional YAML file; blank skips
// it. A missing .env file is ignored.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"TRANSIT_STATIC_URL":            &c.StaticURL,
		"TRANSIT_VEHICLE_POSITIONS_URL": &c.VehiclePositionsURL,
		"TRANSIT_TRIP_UPDATES_URL":      &c.TripUpdatesURL,
		"TRANSIT_ALERTS_URL":            &c.AlertsURL,
		"TRANSIT_TIMEZONE":              &c.Timezone,
		"TRANSIT_STORAGE_DRIVER":        &c.Storage.Driver,
		"TRANSIT_STORAGE_DSN":           &c.Storage.DSN,
		"TRANSIT_METRICS_ADDR":          &c.MetricsAddr,
		"TRANSIT_LOG_LEVEL":             &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	durations := map[string]*time.Duration{
		"TRANSIT_STATIC_TTL":       &c.StaticTTL,
		"TRANSIT_STATIC_TIMEOUT":   &c.StaticTimeout,
		"TRANSIT_REALTIME_TIMEOUT": &c.RealtimeTimeout,
	}
	for key, dst := range durations {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %q", key, v)
		}
		*dst = d
	}

	return nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Service time zone, or nil if unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
