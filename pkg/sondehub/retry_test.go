package sondehub

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestRetryWithBackoff tests basic retry logic.
func TestRetryWithBackoff(t *testing.T) {
	t.Run("Success on first attempt", func(t *testing.T) {
		attempts := 0
		operation := func() error {
			attempts++
			return nil
		}

		err := RetryWithBackoff(context.Background(), DefaultRetryConfig(), operation)

		if err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
		if attempts != 1 {
			t.Errorf("Expected 1 attempt, got %d", attempts)
		}
	})

	t.Run("Success after retries", func(t *testing.T) {
		attempts := 0
		operation := func() error {
			attempts++
			if attempts < 3 {
				return errors.New("temporary error")
			}
			return nil
		}

		config := RetryConfig{
			MaxRetries:   3,
			InitialDelay: 5 * time.Millisecond,
			MaxDelay:     50 * time.Millisecond,
			Multiplier:   2.0,
		}
		err := RetryWithBackoff(context.Background(), config, operation)

		if err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
		if attempts != 3 {
			t.Errorf("Expected 3 attempts, got %d", attempts)
		}
	})

	t.Run("Max retries exceeded", func(t *testing.T) {
		attempts := 0
		operation := func() error {
			attempts++
			return errors.New("persistent error")
		}

		config := RetryConfig{
			MaxRetries:   3,
			InitialDelay: 5 * time.Millisecond,
			MaxDelay:     50 * time.Millisecond,
			Multiplier:   2.0,
		}
		err := RetryWithBackoff(context.Background(), config, operation)

		if err == nil {
			t.Error("Expected error after max retries")
		}
		// Initial attempt + 3 retries.
		if attempts != 4 {
			t.Errorf("Expected 4 attempts, got %d", attempts)
		}
	})

	t.Run("Context cancellation", func(t *testing.T) {
		attempts := 0
		operation := func() error {
			attempts++
			return errors.New("error")
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := RetryWithBackoff(ctx, DefaultRetryConfig(), operation)

		if err == nil {
			t.Error("Expected context cancellation error")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got: %v", err)
		}
		if attempts > 1 {
			t.Errorf("Expected 1 attempt, got %d", attempts)
		}
	})

	t.Run("Original error preserved", func(t *testing.T) {
		expectedErr := errors.New("specific error message")
		operation := func() error {
			return expectedErr
		}

		config := RetryConfig{
			MaxRetries:   2,
			InitialDelay: 5 * time.Millisecond,
			MaxDelay:     50 * time.Millisecond,
			Multiplier:   2.0,
		}
		err := RetryWithBackoff(context.Background(), config, operation)

		if err == nil {
			t.Fatal("Expected error")
		}
		if !errors.Is(err, expectedErr) {
			t.Errorf("Expected error to be preserved, got: %v", err)
		}
	})

	t.Run("Retry-After extends backoff", func(t *testing.T) {
		attempts := 0
		operation := func() error {
			attempts++
			if attempts == 1 {
				return &RateLimitError{
					StatusCode: 429,
					RetryAfter: 60 * time.Millisecond,
					Message:    "rate limit exceeded",
					Headers:    RateLimitHeaders{Limit: -1, Remaining: -1},
				}
			}
			return nil
		}

		config := RetryConfig{
			MaxRetries:        2,
			InitialDelay:      time.Millisecond,
			MaxDelay:          time.Second,
			Multiplier:        2.0,
			RespectRetryAfter: true,
		}

		start := time.Now()
		err := RetryWithBackoff(context.Background(), config, operation)
		elapsed := time.Since(start)

		if err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
		// The 60ms Retry-After is longer than the 1ms backoff, so it applies.
		if elapsed < 50*time.Millisecond {
			t.Errorf("Expected Retry-After delay to apply, elapsed only %v", elapsed)
		}
	})
}

// TestRetryWithBackoffResult tests retry with result return.
func TestRetryWithBackoffResult(t *testing.T) {
	t.Run("Success with result", func(t *testing.T) {
		attempts := 0
		operation := func() (string, error) {
			attempts++
			if attempts < 2 {
				return "", errors.New("temporary error")
			}
			return "success", nil
		}

		config := RetryConfig{
			MaxRetries:   3,
			InitialDelay: 5 * time.Millisecond,
			MaxDelay:     50 * time.Millisecond,
			Multiplier:   2.0,
		}
		result, err := RetryWithBackoffResult(context.Background(), config, operation)

		if err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
		if result != "success" {
			t.Errorf("Expected result 'success', got %s", result)
		}
		if attempts != 2 {
			t.Errorf("Expected 2 attempts, got %d", attempts)
		}
	})

	t.Run("Failure returns zero value", func(t *testing.T) {
		operation := func() (int, error) {
			return 0, errors.New("persistent error")
		}

		config := RetryConfig{
			MaxRetries:   1,
			InitialDelay: 5 * time.Millisecond,
			MaxDelay:     50 * time.Millisecond,
			Multiplier:   2.0,
		}
		result, err := RetryWithBackoffResult(context.Background(), config, operation)

		if err == nil {
			t.Error("Expected error")
		}
		if result != 0 {
			t.Errorf("Expected zero value, got %d", result)
		}
	})

	t.Run("Result type preserved", func(t *testing.T) {
		type fetchResult struct {
			Serial string
			Count  int
		}

		operation := func() (fetchResult, error) {
			return fetchResult{Serial: "V1854526", Count: 42}, nil
		}

		result, err := RetryWithBackoffResult(context.Background(), DefaultRetryConfig(), operation)

		if err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
		if result.Serial != "V1854526" || result.Count != 42 {
			t.Errorf("Expected V1854526/42, got %+v", result)
		}
	})
}

// TestDefaultRetryConfig tests default configuration.
func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries 3, got %d", config.MaxRetries)
	}
	if config.InitialDelay != 1*time.Second {
		t.Errorf("Expected InitialDelay 1s, got %v", config.InitialDelay)
	}
	if config.MaxDelay != 60*time.Second {
		t.Errorf("Expected MaxDelay 60s, got %v", config.MaxDelay)
	}
	if config.Multiplier != 2.0 {
		t.Errorf("Expected Multiplier 2.0, got %f", config.Multiplier)
	}
	if !config.RespectRetryAfter {
		t.Error("Expected RespectRetryAfter enabled")
	}
}

// TestZeroRetries tests behavior with no retries.
func TestZeroRetries(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return errors.New("error")
	}

	config := RetryConfig{
		MaxRetries:   0,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2.0,
	}
	err := RetryWithBackoff(context.Background(), config, operation)

	if err == nil {
		t.Error("Expected error")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt with 0 retries, got %d", attempts)
	}
}
