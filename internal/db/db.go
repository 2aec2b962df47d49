// Package db provides PostgreSQL storage for the radiosonde archive.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/unklstewy/sonde-scope/pkg/config"
)

//go:embed schema.sql
var schemaSQL embed.FS

// DB wraps a database connection with helper methods.
type DB struct {
	*sql.DB
	config config.DatabaseConfig
}

// Connect establishes a connection to the PostgreSQL archive database.
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	// Build connection string
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
		cfg.SSLMode,
	)

	// Open connection
	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		DB:     sqlDB,
		config: cfg,
	}

	return db, nil
}

// InitSchema creates or updates the database schema.
// This should be called once at application startup.
func (db *DB) InitSchema(ctx context.Context) error {
	// Read schema SQL
	schemaBytes, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	// Execute schema
	if _, err := db.ExecContext(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// CleanupOldData removes telemetry points older than the retention window,
// then drops flights that never received a summary and have no points left.
// Summarized flights are kept indefinitely; the launch/burst/landing rows
// are the long-term archive.
func (db *DB) CleanupOldData(ctx context.Context, retention time.Duration) error {
	cutoff := time.Now().UTC().Add(-retention)

	// Delete telemetry points past retention
	_, err := db.ExecContext(ctx,
		`DELETE FROM telemetry_points WHERE time < $1`,
		cutoff,
	)
	if err != nil {
		return fmt.Errorf("failed to delete old telemetry points: %w", err)
	}

	// Drop live-only flights whose points are all gone
	_, err = db.ExecContext(ctx,
		`DELETE FROM flights
		 WHERE launch_time IS NULL
		   AND last_updated < $1
		   AND NOT EXISTS (
			SELECT 1 FROM telemetry_points
			WHERE telemetry_points.serial = flights.serial
		 )`,
		cutoff,
	)
	if err != nil {
		return fmt.Errorf("failed to delete stale flights: %w", err)
	}

	return nil
}

// GetStats returns archive statistics.
func (db *DB) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	// Total archived flights
	var flightCount int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM flights`,
	).Scan(&flightCount)
	if err != nil {
		return nil, err
	}
	stats["flights"] = flightCount

	// Flights with a full launch/burst/landing summary
	var summaryCount int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM flights WHERE launch_time IS NOT NULL`,
	).Scan(&summaryCount)
	if err != nil {
		return nil, err
	}
	stats["flights_with_summary"] = summaryCount

	// Sondes heard in the last hour
	var activeCount int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT serial) FROM telemetry_points WHERE time > $1`,
		time.Now().UTC().Add(-1*time.Hour),
	).Scan(&activeCount)
	if err != nil {
		return nil, err
	}
	stats["active_sondes"] = activeCount

	// Total telemetry points
	var pointCount int64
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM telemetry_points`,
	).Scan(&pointCount)
	if err != nil {
		return nil, err
	}
	stats["telemetry_points"] = pointCount

	return stats, nil
}
