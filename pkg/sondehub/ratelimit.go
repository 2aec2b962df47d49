package sondehub

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RateLimitError represents an HTTP 429 response with retry information.
type RateLimitError struct {
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Headers    RateLimitHeaders
}

// RateLimitHeaders carries the rate limit status from response headers.
// Limit and Remaining are -1 when the server did not send them.
type RateLimitHeaders struct {
	Limit     int       // maximum requests allowed in the window
	Remaining int       // requests remaining in the current window
	Reset     time.Time // when the window resets
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// IsRateLimitError checks if an error is a rate limit error.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	if rle, ok := err.(*RateLimitError); ok {
		return rle, true
	}
	return nil, false
}

// parseRetryAfter extracts the Retry-After header value. Supports both
// delay-seconds ("30") and HTTP-date formats. Returns 0 when absent or in
// the past.
func parseRetryAfter(headers http.Header) time.Duration {
	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if retryTime, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(retryTime); until > 0 {
			return until
		}
	}

	return 0
}

// intHeader returns the first of the named headers that parses as an
// integer, or -1.
func intHeader(headers http.Header, names ...string) int {
	for _, name := range names {
		if v := headers.Get(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return -1
}

// extractRateLimitHeaders reads the rate limit status headers. Both the
// X-Rate-Limit-* and X-RateLimit-* spellings appear in the wild.
func extractRateLimitHeaders(headers http.Header) RateLimitHeaders {
	rlh := RateLimitHeaders{
		Limit:     intHeader(headers, "X-Rate-Limit-Limit", "X-RateLimit-Limit"),
		Remaining: intHeader(headers, "X-Rate-Limit-Remaining", "X-RateLimit-Remaining"),
	}

	for _, name := range []string{"X-Rate-Limit-Reset", "X-RateLimit-Reset"} {
		if v := headers.Get(name); v != "" {
			if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
				rlh.Reset = time.Unix(ts, 0)
				break
			}
		}
	}

	return rlh
}
