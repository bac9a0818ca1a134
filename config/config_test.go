package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "transit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultStaticURL, cfg.StaticURL)
	assert.Equal(t, DefaultVehiclePositionsURL, cfg.VehiclePositionsURL)
	assert.Equal(t, DefaultTripUpdatesURL, cfg.TripUpdatesURL)
	assert.Equal(t, DefaultAlertsURL, cfg.AlertsURL)
	assert.Equal(t, 24*time.Hour, cfg.StaticTTL)
	assert.Equal(t, 60*time.Second, cfg.StaticTimeout)
	assert.Equal(t, 10*time.Second, cfg.RealtimeTimeout)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "info", cfg.LogLevel)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
static_url: https://transit.example.edu/gtfs.zip
static_headers:
  Authorization: Bearer abc
alerts_url: ""
timezone: America/New_York
static_ttl: 6h
realtime_timeout: 3s
storage:
  driver: sqlite
  dsn: /var/lib/transit
metrics_addr: localhost:9090
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://transit.example.edu/gtfs.zip", cfg.StaticURL)
	assert.Equal(t, map[string]string{"Authorization": "Bearer abc"}, cfg.StaticHeaders)
	assert.Equal(t, "", cfg.AlertsURL)
	assert.Equal(t, DefaultTripUpdatesURL, cfg.TripUpdatesURL)
	assert.Equal(t, 6*time.Hour, cfg.StaticTTL)
	assert.Equal(t, 60*time.Second, cfg.StaticTimeout)
	assert.Equal(t, 3*time.Second, cfg.RealtimeTimeout)
	assert.Equal(t, StorageConfig{Driver: "sqlite", DSN: "/var/lib/transit"}, cfg.Storage)
	assert.Equal(t, "localhost:9090", cfg.MetricsAddr)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "static_url: https://from-file.example.edu/gtfs.zip\nlog_level: debug\n")

	t.Setenv("TRANSIT_STATIC_URL", "https://from-env.example.edu/gtfs.zip")
	t.Setenv("TRANSIT_STATIC_TTL", "90m")
	t.Setenv("TRANSIT_STORAGE_DRIVER", "postgres")
	t.Setenv("TRANSIT_STORAGE_DSN", "postgres://localhost/transit")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://from-env.example.edu/gtfs.zip", cfg.StaticURL)
	assert.Equal(t, 90*time.Minute, cfg.StaticTTL)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadInvalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad url", yaml: "static_url: not a url\n"},
		{name: "missing static url", yaml: "static_url: \"\"\n"},
		{name: "bad realtime url", yaml: "trip_updates_url: nope\n"},
		{name: "unknown driver", yaml: "storage:\n  driver: mongo\n"},
		{name: "postgres without dsn", yaml: "storage:\n  driver: postgres\n"},
		{name: "bad log level", yaml: "log_level: loud\n"},
		{name: "bad timezone", yaml: "timezone: Mars/Olympus_Mons\n"},
		{name: "ttl too short", yaml: "static_ttl: 1s\n"},
		{name: "bad metrics addr", yaml: "metrics_addr: nine thousand\n"},
		{name: "malformed yaml", yaml: "static_url: [\n"},
		{name: "bad env duration", env: map[string]string{"TRANSIT_REALTIME_TIMEOUT": "soon"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := ""
			if tc.yaml != "" {
				path = writeConfig(t, tc.yaml)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	for level, expected := range map[string]string{
		"debug": "DEBUG",
		"info":  "INFO",
		"warn":  "WARN",
		"error": "ERROR",
	} {
		cfg.LogLevel = level
		assert.Equal(t, expected, cfg.SlogLevel().String())
	}
}
