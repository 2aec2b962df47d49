package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/unklstewy/sonde-scope/pkg/geodesy"
)

// Config represents the complete application configuration.
// Every command loads the same file so the observer site, archive database
// and SondeHub access are defined once.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Observer ObserverConfig `json:"observer"`
	SondeHub SondeHubConfig `json:"sondehub"`
	Archive  ArchiveConfig  `json:"archive"`
	Paths    PathsConfig    `json:"paths"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port string `json:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host"`
}

// DatabaseConfig contains postgres connection settings for the archive.
type DatabaseConfig struct {
	// Host is the database server hostname
	Host string `json:"host"`

	// Port is the database server port
	Port int `json:"port"`

	// DBName is the database name
	DBName string `json:"dbname"`

	// User for database authentication
	User string `json:"user"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns"`
}

// ObserverConfig contains the ground observer's location. Look angles,
// visibility searches and the scope display are all computed relative to
// this point.
type ObserverConfig struct {
	// Name is a friendly identifier for this observer site
	Name string `json:"name"`

	// Latitude in decimal degrees (-90 to +90)
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64 `json:"longitude"`

	// Elevation in meters above sea level
	Elevation float64 `json:"elevation"`

	// TimeZone is the IANA timezone name (e.g., "America/Chicago")
	TimeZone string `json:"timezone"`
}

// Position returns the observer location in the form the look-angle solver
// takes.
func (o ObserverConfig) Position() geodesy.Position {
	return geodesy.Position{
		Latitude:  o.Latitude,
		Longitude: o.Longitude,
		Altitude:  o.Elevation,
	}
}

// SondeHubConfig contains SondeHub API access settings.
type SondeHubConfig struct {
	// BaseURL is the SondeHub API root
	BaseURL string `json:"base_url"`

	// TimeoutSeconds is the per-request HTTP timeout
	TimeoutSeconds int `json:"timeout_seconds"`

	// RequestsPerMinute caps the API call rate. SondeHub asks bulk users
	// to stay polite; 30/min is well inside their guidance.
	RequestsPerMinute int `json:"requests_per_minute"`

	// SearchRadiusKm is the default radius for position queries around the
	// observer
	SearchRadiusKm float64 `json:"search_radius_km"`
}

// Timeout returns the request timeout as a duration.
func (s SondeHubConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// ArchiveConfig controls the archiver daemon.
type ArchiveConfig struct {
	// UpdateIntervalSeconds is how often the archiver polls SondeHub
	UpdateIntervalSeconds int `json:"update_interval_seconds"`

	// RetentionDays is how long telemetry points are kept before cleanup
	RetentionDays int `json:"retention_days"`
}

// UpdateInterval returns the poll interval as a duration.
func (a ArchiveConfig) UpdateInterval() time.Duration {
	return time.Duration(a.UpdateIntervalSeconds) * time.Second
}

// Retention returns the retention window as a duration.
func (a ArchiveConfig) Retention() time.Duration {
	return time.Duration(a.RetentionDays) * 24 * time.Hour
}

// PathsConfig locates the on-disk telemetry store.
type PathsConfig struct {
	// SummaryDir holds the per-flight summary files (launch/burst/landing)
	SummaryDir string `json:"summary_dir"`

	// TelemetryDir holds the raw flight logs
	TelemetryDir string `json:"telemetry_dir"`
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
func Load(path string) (*Config, error) {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvironmentOverrides()

	return &cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to JSON with indentation
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
// The default observer is the Cape Girardeau chase site the batch tools
// were originally run from.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			DBName:       "sondescope",
			User:         "sondescope",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Observer: ObserverConfig{
			Name:      "Cape Girardeau",
			Latitude:  37.4300,
			Longitude: -89.6436,
			Elevation: 161.0,
			TimeZone:  "America/Chicago",
		},
		SondeHub: SondeHubConfig{
			BaseURL:           "https://api.v2.sondehub.org",
			TimeoutSeconds:    30,
			RequestsPerMinute: 30,
			SearchRadiusKm:    500.0,
		},
		Archive: ArchiveConfig{
			UpdateIntervalSeconds: 120,
			RetentionDays:         30,
		},
		Paths: PathsConfig{
			SummaryDir:   "summary_data",
			TelemetryDir: "telemetry",
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the
// config. This allows sensitive data like passwords to be kept out of
// config files.
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("SONDE_SCOPE_PORT"); port != "" {
		c.Server.Port = port
	}
	if host := os.Getenv("SONDE_SCOPE_DB_HOST"); host != "" {
		c.Database.Host = host
	}
	if port := os.Getenv("SONDE_SCOPE_DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Database.Port = p
		}
	}
	if user := os.Getenv("SONDE_SCOPE_DB_USER"); user != "" {
		c.Database.User = user
	}
	if password := os.Getenv("SONDE_SCOPE_DB_PASSWORD"); password != "" {
		c.Database.Password = password
	}
	if name := os.Getenv("SONDE_SCOPE_DB_NAME"); name != "" {
		c.Database.DBName = name
	}
	if url := os.Getenv("SONDE_SCOPE_API_URL"); url != "" {
		c.SondeHub.BaseURL = url
	}
}
