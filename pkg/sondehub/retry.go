package sondehub

import (
	"context"
	"fmt"
	"math"
	"time"
)

// RetryConfig configures retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 3)
	MaxRetries int

	// InitialDelay is the initial backoff delay (default: 1 second)
	InitialDelay time.Duration

	// MaxDelay is the maximum backoff delay (default: 60 seconds)
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier (default: 2.0 for exponential)
	Multiplier float64

	// RespectRetryAfter uses the Retry-After header if available
	// (default: true)
	RespectRetryAfter bool
}

// DefaultRetryConfig returns sensible defaults for retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		MaxDelay:          60 * time.Second,
		Multiplier:        2.0,
		RespectRetryAfter: true,
	}
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func() error

// RetryWithBackoff executes a function with exponential backoff retry
// logic. Rate limit errors are handled specially: when the server sent a
// Retry-After longer than the computed backoff, the next attempt waits
// for the Retry-After instead.
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, fn RetryableFunc) error {
	_, err := RetryWithBackoffResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithBackoffResult executes a function with exponential backoff and
// returns its result.
//
// Example:
//
//	records, err := RetryWithBackoffResult(ctx, DefaultRetryConfig(), func() ([]telemetry.Record, error) {
//	    return client.FlightTelemetry(ctx, serial, "1d")
//	})
func RetryWithBackoffResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return result, fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		res, err := fn()
		if err == nil {
			return res, nil
		}

		result = res
		lastErr = err

		if attempt == cfg.MaxRetries {
			break
		}

		// Exponential backoff for the next attempt, capped at MaxDelay.
		next := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt)))
		if next > cfg.MaxDelay {
			next = cfg.MaxDelay
		}
		delay = next

		// Honor a server-provided Retry-After, but never shorten a backoff
		// the previous attempts already earned.
		if rle, ok := IsRateLimitError(err); ok {
			if cfg.RespectRetryAfter && rle.RetryAfter > delay {
				delay = rle.RetryAfter
			}
			if rle.Headers.Remaining >= 0 {
				fmt.Printf("Rate limit hit: %d/%d requests remaining, reset at %v\n",
					rle.Headers.Remaining, rle.Headers.Limit, rle.Headers.Reset)
			}
		}
	}

	return result, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}
