package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"campustransit.dev/transit"
	"campustransit.dev/transit/config"
	"campustransit.dev/transit/downloader"
	"campustransit.dev/transit/metrics"
	"campustransit.dev/transit/storage"
)

var rootCmd = &cobra.Command{
	Use:          "transit",
	Short:        "Campus transit tool",
	Long:         "Answers schedule, directions and vehicle queries from GTFS and GTFS-realtime feeds",
	SilenceUsage: true,
}

var (
	configPath          string
	staticURL           string
	vehiclePositionsURL string
	tripUpdatesURL      string
	alertsURL           string
	storageDriver       string
	storageDSN          string
	logLevel            string
	staticHeaders       []string
	realtimeHeaders     []string
	sharedHeaders       []string
)

var _ transit.Metrics = (*metrics.Collector)(nil)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file")
	flags.StringVarP(&staticURL, "static-url", "", "", "GTFS Static URL")
	flags.StringVarP(&vehiclePositionsURL, "vehicle-positions-url", "", "", "GTFS Realtime vehicle positions URL")
	flags.StringVarP(&tripUpdatesURL, "trip-updates-url", "", "", "GTFS Realtime trip updates URL")
	flags.StringVarP(&alertsURL, "alerts-url", "", "", "GTFS Realtime service alerts URL")
	flags.StringVarP(&storageDriver, "storage", "", "", "Storage driver (memory, sqlite, postgres)")
	flags.StringVarP(&storageDSN, "dsn", "", "", "Postgres connection string, or sqlite directory")
	flags.StringVarP(&logLevel, "log-level", "", "", "Log level (debug, info, warn, error)")
	flags.StringSliceVarP(
		&staticHeaders,
		"static-header",
		"",
		[]string{},
		"GTFS Static HTTP header",
	)
	flags.StringSliceVarP(
		&realtimeHeaders,
		"realtime-header",
		"",
		[]string{},
		"GTFS Realtime HTTP header",
	)
	flags.StringSliceVarP(
		&sharedHeaders,
		"header",
		"",
		[]string{},
		"GTFS HTTP header (shared between static and realtime)",
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func parseHeaders(headers []string) (map[string]string, error) {
	parsed := map[string]string{}
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("'%s' is not on form <key>:<value>", header)
		}
		parsed[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return parsed, nil
}

// Merges header flags into configured headers. Flags win.
func mergeHeaders(base map[string]string, flagSets ...[]string) (map[string]string, error) {
	merged := map[string]string{}
	for k, v := range base {
		merged[k] = v
	}
	for _, flagSet := range flagSets {
		parsed, err := parseHeaders(flagSet)
		if err != nil {
			return nil, err
		}
		for k, v := range parsed {
			merged[k] = v
		}
	}
	return merged, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := rootCmd.PersistentFlags()
	overrides := map[string]*string{
		"static-url":            &cfg.StaticURL,
		"vehicle-positions-url": &cfg.VehiclePositionsURL,
		"trip-updates-url":      &cfg.TripUpdatesURL,
		"alerts-url":            &cfg.AlertsURL,
		"storage":               &cfg.Storage.Driver,
		"dsn":                   &cfg.Storage.DSN,
		"log-level":             &cfg.LogLevel,
	}
	for name, dst := range overrides {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func openStorage(cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case "sqlite":
		if cfg.DSN == "" {
			return storage.NewSQLiteStorage()
		}
		return storage.NewSQLiteStorage(storage.SQLiteConfig{OnDisk: true, Directory: cfg.DSN})
	case "postgres":
		return storage.NewPSQLStorage(cfg.DSN, false)
	}
	return storage.NewMemoryStorage(), nil
}

// A Manager wired from config and flags, plus its storage and metrics
// collector (nil unless a metrics address is configured).
type app struct {
	cfg       *config.Config
	manager   *transit.Manager
	storage   storage.Storage
	collector *metrics.Collector
}

func (a *app) Close() {
	if err := a.storage.Close(); err != nil {
		slog.Warn("closing storage", "error", err)
	}
}

func setup() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	location, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}

	sh, err := mergeHeaders(cfg.StaticHeaders, sharedHeaders, staticHeaders)
	if err != nil {
		return nil, fmt.Errorf("invalid static header: %w", err)
	}
	rh, err := mergeHeaders(cfg.RealtimeHeaders, sharedHeaders, realtimeHeaders)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime header: %w", err)
	}

	s, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Driver, err)
	}

	fetcher := downloader.NewHTTP()
	fetcher.Notify = func(url string, err error, wait time.Duration) {
		logger.Debug("retrying download", "url", url, "error", err, "wait", wait)
	}

	m := transit.NewManager(s)
	m.StaticURL = cfg.StaticURL
	m.StaticHeaders = sh
	m.VehiclePositionsURL = cfg.VehiclePositionsURL
	m.TripUpdatesURL = cfg.TripUpdatesURL
	m.AlertsURL = cfg.AlertsURL
	m.RealtimeHeaders = rh
	m.StaticTTL = cfg.StaticTTL
	m.StaticTimeout = cfg.StaticTimeout
	m.RealtimeTimeout = cfg.RealtimeTimeout
	m.Location = location
	m.Downloader = downloader.NewFilesystem(fetcher)
	m.Logger = logger

	a := &app{cfg: cfg, manager: m, storage: s}

	if cfg.MetricsAddr != "" {
		a.collector = metrics.NewCollector()
		m.Metrics = a.collector
	}

	return a, nil
}
