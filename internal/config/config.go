// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Platform selects the permission model used by the location gate.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// Config holds the application configuration.
type Config struct {
	APIBaseURL      string
	DatabasePath    string
	DevicePath      string
	LogPath         string
	LogLevel        string
	ExportDir       string
	Platform        Platform
	DisplayTimezone *time.Location

	HTTPTimeout       time.Duration
	LocationCacheTTL  time.Duration
	FastFixTimeout    time.Duration
	PreciseFixTimeout time.Duration
	GPSProbeTimeout   time.Duration

	DesktopNotifications bool
}

// Default values
const (
	defaultHTTPTimeout       = 30 * time.Second
	defaultLocationCacheTTL  = 2 * time.Minute
	defaultFastFixTimeout    = 2 * time.Second
	defaultPreciseFixTimeout = 10 * time.Second
	defaultGPSProbeTimeout   = 3 * time.Second
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// First .env found wins; real environment variables take precedence
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	dataDir := getDefaultDataDir()

	cfg := &Config{
		APIBaseURL:           strings.TrimRight(getEnvString("ATTENDANCE_API_BASE_URL", ""), "/"),
		DatabasePath:         getEnvString("DATABASE_PATH", filepath.Join(dataDir, "attendance.db")),
		DevicePath:           getEnvString("DEVICE_PATH", filepath.Join(dataDir, "device.json")),
		LogPath:              getEnvString("LOG_PATH", filepath.Join(dataDir, "attendance.log")),
		LogLevel:             getEnvString("LOG_LEVEL", "info"),
		ExportDir:            getEnvString("EXPORT_DIR", dataDir),
		Platform:             Platform(strings.ToLower(getEnvString("DEVICE_PLATFORM", string(PlatformAndroid)))),
		HTTPTimeout:          getEnvDuration("HTTP_TIMEOUT", defaultHTTPTimeout),
		LocationCacheTTL:     getEnvDuration("LOCATION_CACHE_TTL", defaultLocationCacheTTL),
		FastFixTimeout:       getEnvDuration("FAST_FIX_TIMEOUT", defaultFastFixTimeout),
		PreciseFixTimeout:    getEnvDuration("PRECISE_FIX_TIMEOUT", defaultPreciseFixTimeout),
		GPSProbeTimeout:      getEnvDuration("GPS_PROBE_TIMEOUT", defaultGPSProbeTimeout),
		DesktopNotifications: getEnvBool("DESKTOP_NOTIFICATIONS", true),
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("ATTENDANCE_API_BASE_URL is required (set via env or .env file)")
	}

	if cfg.Platform != PlatformAndroid && cfg.Platform != PlatformIOS {
		return nil, fmt.Errorf("DEVICE_PLATFORM must be %q or %q, got %q",
			PlatformAndroid, PlatformIOS, cfg.Platform)
	}

	loc, err := loadTimezone(getEnvString("DISPLAY_TIMEZONE", ""))
	if err != nil {
		return nil, err
	}
	cfg.DisplayTimezone = loc

	for _, dir := range []string{
		filepath.Dir(cfg.DatabasePath),
		filepath.Dir(cfg.DevicePath),
		filepath.Dir(cfg.LogPath),
		cfg.ExportDir,
	} {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadTimezone resolves an IANA zone name. Empty means the machine's local zone.
func loadTimezone(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "attendance-tui", ".env"),
			filepath.Join(home, ".attendance", ".env"),
		)
	}

	// Parent directory (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(cwd), ".env"))
	}

	return paths
}

// getDefaultDataDir returns the directory holding the database, device file and log.
func getDefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "attendance-tui")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
