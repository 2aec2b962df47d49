// Package sondehub provides a client for the SondeHub v2 API.
//
// SondeHub aggregates radiosonde telemetry uploaded by volunteer receiver
// stations. This client covers the two endpoints the pipeline needs: latest
// positions near a point, and the raw telemetry history of one flight.
//
// The API sits behind a shared gateway, so the client rate-limits itself
// and surfaces HTTP 429 responses as RateLimitError for the retry layer.
package sondehub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

const (
	// DefaultBaseURL is the SondeHub v2 API root.
	DefaultBaseURL = "https://api.v2.sondehub.org"

	// DefaultTimeout for API requests.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerMinute keeps bulk fetches inside SondeHub's
	// guidance for automated clients.
	DefaultRequestsPerMinute = 30
)

// Client is a rate-limited SondeHub API client.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// Config contains configuration for the SondeHub client.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
}

// NewClient creates a SondeHub client. Zero-valued config fields fall back
// to the defaults above.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}

	// Allow a burst of 1 so a single interactive call never waits.
	perSecond := float64(cfg.RequestsPerMinute) / 60.0

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Latest returns the most recent frame of every sonde within radiusKm of a
// point, heard within the last window. Results are sorted by serial.
//
// Uses the /sondes endpoint, which returns a serial-keyed object of latest
// frames.
func (c *Client) Latest(ctx context.Context, lat, lon, radiusKm float64, last time.Duration) ([]telemetry.Record, error) {
	url := fmt.Sprintf("%s/sondes?lat=%.4f&lon=%.4f&distance=%.0f&last=%.0f",
		c.baseURL, lat, lon, radiusKm*1000.0, last.Seconds())

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var bySerial map[string]telemetry.Record
	if err := json.Unmarshal(body, &bySerial); err != nil {
		return nil, fmt.Errorf("parse latest response: %w", err)
	}

	records := make([]telemetry.Record, 0, len(bySerial))
	for serial, r := range bySerial {
		if r.Serial == "" {
			r.Serial = serial
		}
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Serial < records[j].Serial
	})

	return records, nil
}

// FlightTelemetry returns the raw frames of one flight over the given
// duration window ("3h", "1d", "3d" per the API), sorted by time.
//
// Uses the /sondes/telemetry endpoint, which returns frames nested
// serial -> datetime -> frame.
func (c *Client) FlightTelemetry(ctx context.Context, serial, duration string) ([]telemetry.Record, error) {
	url := fmt.Sprintf("%s/sondes/telemetry?serial=%s&duration=%s", c.baseURL, serial, duration)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var nested map[string]map[string]telemetry.Record
	if err := json.Unmarshal(body, &nested); err != nil {
		return nil, fmt.Errorf("parse telemetry response: %w", err)
	}

	var records []telemetry.Record
	for outerSerial, frames := range nested {
		for _, r := range frames {
			if r.Serial == "" {
				r.Serial = outerSerial
			}
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Datetime.Before(records[j].Datetime)
	})

	return records, nil
}

// get performs a rate-limited GET and returns the response body.
// HTTP 429 comes back as *RateLimitError, other non-200 statuses as plain
// errors carrying the body.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header),
			Message:    "rate limit exceeded",
			Headers:    extractRateLimitHeaders(resp.Header),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
