package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that DefaultConfig returns valid defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Server defaults
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected default host 0.0.0.0, got %s", cfg.Server.Host)
	}

	// Database defaults
	if cfg.Database.Port != 5432 {
		t.Errorf("Expected default postgres port 5432, got %d", cfg.Database.Port)
	}
	if cfg.Database.DBName != "sondescope" {
		t.Errorf("Expected database sondescope, got %s", cfg.Database.DBName)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("Expected max open conns 25, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns != 5 {
		t.Errorf("Expected max idle conns 5, got %d", cfg.Database.MaxIdleConns)
	}

	// Observer defaults
	if cfg.Observer.Latitude != 37.4300 || cfg.Observer.Longitude != -89.6436 {
		t.Errorf("Expected Cape Girardeau site, got %f, %f",
			cfg.Observer.Latitude, cfg.Observer.Longitude)
	}
	if cfg.Observer.TimeZone != "America/Chicago" {
		t.Errorf("Expected America/Chicago timezone, got %s", cfg.Observer.TimeZone)
	}

	// SondeHub defaults
	if cfg.SondeHub.BaseURL != "https://api.v2.sondehub.org" {
		t.Errorf("Expected SondeHub v2 API, got %s", cfg.SondeHub.BaseURL)
	}
	if cfg.SondeHub.RequestsPerMinute != 30 {
		t.Errorf("Expected 30 requests/minute, got %d", cfg.SondeHub.RequestsPerMinute)
	}

	// Archive defaults
	if cfg.Archive.UpdateIntervalSeconds != 120 {
		t.Errorf("Expected 120s update interval, got %d", cfg.Archive.UpdateIntervalSeconds)
	}
	if cfg.Archive.RetentionDays != 30 {
		t.Errorf("Expected 30 day retention, got %d", cfg.Archive.RetentionDays)
	}

	// Paths defaults
	if cfg.Paths.SummaryDir != "summary_data" {
		t.Errorf("Expected summary_data dir, got %s", cfg.Paths.SummaryDir)
	}
	if cfg.Paths.TelemetryDir != "telemetry" {
		t.Errorf("Expected telemetry dir, got %s", cfg.Paths.TelemetryDir)
	}
}

// TestLoadNonExistentFile tests that Load returns default config when file doesn't exist.
func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("Expected no error for non-existent file, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config, got nil")
	}
	// Verify it's actually the default config
	if cfg.Server.Port != "8080" {
		t.Error("Did not get default config for non-existent file")
	}
}

// TestLoadValidConfig tests loading a valid configuration file.
func TestLoadValidConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.json")

	testConfig := &Config{
		Server: ServerConfig{
			Port: "9090",
			Host: "127.0.0.1",
		},
		Database: DatabaseConfig{
			Host:   "db.example.com",
			Port:   5433,
			DBName: "testdb",
			User:   "testuser",
		},
		Observer: ObserverConfig{
			Name:      "Test Observer",
			Latitude:  35.5,
			Longitude: -80.8,
			Elevation: 200,
			TimeZone:  "America/New_York",
		},
		SondeHub: SondeHubConfig{
			BaseURL:           "https://test.api",
			TimeoutSeconds:    10,
			RequestsPerMinute: 5,
			SearchRadiusKm:    250.0,
		},
	}

	// Write config to file
	data, err := json.MarshalIndent(testConfig, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal test config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	// Load config
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify loaded values
	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.example.com" {
		t.Errorf("Expected db.example.com, got %s", cfg.Database.Host)
	}
	if cfg.Observer.Latitude != 35.5 {
		t.Errorf("Expected latitude 35.5, got %f", cfg.Observer.Latitude)
	}
	if cfg.SondeHub.RequestsPerMinute != 5 {
		t.Errorf("Expected 5 requests/minute, got %d", cfg.SondeHub.RequestsPerMinute)
	}
}

// TestLoadInvalidJSON tests error handling for malformed JSON.
func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.json")

	// Write invalid JSON
	if err := os.WriteFile(configPath, []byte("{ invalid json }"), 0644); err != nil {
		t.Fatalf("Failed to write invalid config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Expected error for invalid JSON, got nil")
	}
	if err != nil && !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("Expected parse error, got: %v", err)
	}
}

// TestSaveConfig tests saving configuration to file.
func TestSaveConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "dir", "config.json")

	cfg := DefaultConfig()
	cfg.Server.Port = "9999"
	cfg.Observer.Name = "Test Save"

	// Save should create the missing directories
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	// Load it back and verify
	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.Server.Port != "9999" {
		t.Errorf("Expected port 9999, got %s", loaded.Server.Port)
	}
	if loaded.Observer.Name != "Test Save" {
		t.Errorf("Expected observer name 'Test Save', got %s", loaded.Observer.Name)
	}
}

// TestEnvironmentOverrides tests environment variable overrides.
func TestEnvironmentOverrides(t *testing.T) {
	os.Setenv("SONDE_SCOPE_PORT", "7777")
	os.Setenv("SONDE_SCOPE_DB_HOST", "env-db-host")
	os.Setenv("SONDE_SCOPE_DB_PORT", "6543")
	os.Setenv("SONDE_SCOPE_DB_USER", "env-user")
	os.Setenv("SONDE_SCOPE_DB_PASSWORD", "env-password")
	os.Setenv("SONDE_SCOPE_DB_NAME", "env-db")
	os.Setenv("SONDE_SCOPE_API_URL", "https://env.sondehub.test")
	defer func() {
		os.Unsetenv("SONDE_SCOPE_PORT")
		os.Unsetenv("SONDE_SCOPE_DB_HOST")
		os.Unsetenv("SONDE_SCOPE_DB_PORT")
		os.Unsetenv("SONDE_SCOPE_DB_USER")
		os.Unsetenv("SONDE_SCOPE_DB_PASSWORD")
		os.Unsetenv("SONDE_SCOPE_DB_NAME")
		os.Unsetenv("SONDE_SCOPE_API_URL")
	}()

	// Create config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	testCfg := DefaultConfig()
	testCfg.Database.Password = "original-password"

	data, _ := json.Marshal(testCfg)
	os.WriteFile(configPath, data, 0644)

	// Load config (should apply env overrides)
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify overrides
	if cfg.Server.Port != "7777" {
		t.Errorf("Expected port 7777 from env, got %s", cfg.Server.Port)
	}
	if cfg.Database.Host != "env-db-host" {
		t.Errorf("Expected env-db-host from env, got %s", cfg.Database.Host)
	}
	if cfg.Database.Port != 6543 {
		t.Errorf("Expected port 6543 from env, got %d", cfg.Database.Port)
	}
	if cfg.Database.User != "env-user" {
		t.Errorf("Expected env-user from env, got %s", cfg.Database.User)
	}
	if cfg.Database.Password != "env-password" {
		t.Errorf("Expected env-password from env, got %s", cfg.Database.Password)
	}
	if cfg.Database.DBName != "env-db" {
		t.Errorf("Expected env-db from env, got %s", cfg.Database.DBName)
	}
	if cfg.SondeHub.BaseURL != "https://env.sondehub.test" {
		t.Errorf("Expected API URL from env, got %s", cfg.SondeHub.BaseURL)
	}
}

// TestDurationHelpers tests the duration accessor methods.
func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.SondeHub.Timeout(); got != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", got)
	}
	if got := cfg.Archive.UpdateInterval(); got != 2*time.Minute {
		t.Errorf("Expected 2m update interval, got %v", got)
	}
	if got := cfg.Archive.Retention(); got != 30*24*time.Hour {
		t.Errorf("Expected 720h retention, got %v", got)
	}
}

// TestObserverPosition tests the observer-to-position conversion.
func TestObserverPosition(t *testing.T) {
	cfg := DefaultConfig()
	pos := cfg.Observer.Position()

	if pos.Latitude != cfg.Observer.Latitude {
		t.Errorf("Expected latitude %f, got %f", cfg.Observer.Latitude, pos.Latitude)
	}
	if pos.Longitude != cfg.Observer.Longitude {
		t.Errorf("Expected longitude %f, got %f", cfg.Observer.Longitude, pos.Longitude)
	}
	if pos.Altitude != cfg.Observer.Elevation {
		t.Errorf("Expected altitude %f, got %f", cfg.Observer.Elevation, pos.Altitude)
	}
}

// TestConfigRoundTrip tests saving and loading config preserves data.
func TestConfigRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "roundtrip.json")

	original := DefaultConfig()
	original.Server.Port = "3000"
	original.Observer.Latitude = 35.1234
	original.Observer.Longitude = -80.5678
	original.SondeHub.SearchRadiusKm = 750.0
	original.Paths.TelemetryDir = "/var/lib/sonde-scope/telemetry"

	// Save
	if err := original.Save(configPath); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	// Load
	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	// Compare
	if loaded.Server.Port != original.Server.Port {
		t.Error("Port not preserved in round trip")
	}
	if loaded.Observer.Latitude != original.Observer.Latitude {
		t.Error("Latitude not preserved in round trip")
	}
	if loaded.SondeHub.SearchRadiusKm != original.SondeHub.SearchRadiusKm {
		t.Error("Search radius not preserved in round trip")
	}
	if loaded.Paths.TelemetryDir != original.Paths.TelemetryDir {
		t.Error("Telemetry dir not preserved in round trip")
	}
}
