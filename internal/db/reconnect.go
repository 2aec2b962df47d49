package db

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/unklstewy/sonde-scope/pkg/config"
)

// ReconnectWithRetry attempts to reconnect to the archive database with
// exponential backoff. The archiver daemon runs unattended for weeks;
// postgres restarts must not take it down.
//
// maxRetries 0 retries forever. The delay doubles each attempt and is
// capped at 60 seconds.
func ReconnectWithRetry(cfg config.DatabaseConfig, maxRetries int, initialDelay time.Duration) (*DB, error) {
	delay := initialDelay
	attempt := 0

	for {
		attempt++

		log.Printf("Database connection attempt %d...", attempt)

		db, err := Connect(cfg)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			pingErr := db.PingContext(ctx)
			cancel()

			if pingErr == nil {
				log.Println("✓ Database connected")
				return db, nil
			}

			// Close failed connection
			db.Close()
			err = pingErr
		}

		if maxRetries > 0 && attempt >= maxRetries {
			log.Printf("Failed to connect after %d attempts", attempt)
			return nil, err
		}

		log.Printf("Connection failed: %v (retry in %v)", err, delay)
		time.Sleep(delay)

		delay *= 2
		if delay > 60*time.Second {
			delay = 60 * time.Second
		}
	}
}

// EnsureConnection checks that the database connection is alive and
// reconnects if needed. Called before critical operations and on the
// archiver's maintenance tick.
func EnsureConnection(db *DB, cfg config.DatabaseConfig) (*DB, error) {
	if db == nil {
		log.Println("Database connection is nil, attempting to reconnect...")
		return ReconnectWithRetry(cfg, 3, 1*time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Printf("Database connection lost: %v", err)
		log.Println("Attempting to reconnect...")

		db.Close()

		return ReconnectWithRetry(cfg, 3, 1*time.Second)
	}

	return db, nil
}

// HealthCheck reports whether the database is reachable and answering
// queries.
func HealthCheck(db *DB) bool {
	if db == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Printf("Health check failed - ping error: %v", err)
		return false
	}

	var result int
	err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
	if err != nil {
		log.Printf("Health check failed - query error: %v", err)
		return false
	}

	if result != 1 {
		log.Printf("Health check failed - unexpected result: %d", result)
		return false
	}

	return true
}

// connErrorPatterns are the substrings that mark an error as a transient
// connection failure worth retrying.
var connErrorPatterns = []string{
	"connection refused",
	"broken pipe",
	"no connection",
	"connection reset",
	"EOF",
	"timeout",
}

// isConnectionError classifies an error as transient (retryable) or not.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range connErrorPatterns {
		if strings.Contains(msg, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// WithRetry executes a database operation, retrying on transient connection
// failures with a linearly growing wait. Non-connection errors fail
// immediately.
func WithRetry(operation func() error, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if !isConnectionError(err) {
			return err
		}

		if attempt < maxRetries {
			waitTime := time.Duration(attempt+1) * time.Second
			log.Printf("Database operation failed (attempt %d/%d): %v (retry in %v)",
				attempt+1, maxRetries+1, err, waitTime)
			time.Sleep(waitTime)
		}
	}

	return lastErr
}
