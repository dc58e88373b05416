// Package ghapi provides a typed client for the GitHub issue-search REST API.
package ghapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Sentinel errors surfaced to the orchestration layer.
var (
	// ErrRateLimited indicates the primary or secondary rate limit is
	// exhausted. The run aborts and the next scheduled invocation retries.
	ErrRateLimited = errors.New("github rate limit exhausted")

	// ErrSearchWindowExceeded indicates pagination went past the 1000-result
	// window the search API exposes. It signals end of results, not failure.
	ErrSearchWindowExceeded = errors.New("search result window exceeded")
)

// API request and retry configuration constants.
const (
	defaultBaseURL = "https://api.github.com"

	// requestTimeout bounds every request so a run can never hang on a
	// single stuck connection.
	requestTimeout = 30 * time.Second

	// maxRetries is the maximum number of attempts for transient server
	// errors (HTTP 5xx). These are typically temporary and use exponential
	// backoff (1s, 2s, 4s) before the run gives up.
	maxRetries = 3

	// maxBackoffDuration caps exponential backoff to prevent excessive wait
	// times in a scheduler-driven batch job.
	maxBackoffDuration = 30 * time.Second

	// rateLimitSafetyBuffer stops the run slightly before the limit is
	// actually exhausted, so the final requests of a page loop never 403.
	rateLimitSafetyBuffer int64 = 3
)

// retryBackoffBase is the base duration for exponential backoff. It is a
// variable so tests can shrink it.
var retryBackoffBase = 1 * time.Second

// RateLimitInfo holds the GitHub search rate limit as reported by the
// X-RateLimit-* response headers of the most recent request.
type RateLimitInfo struct {
	Limit     int64     // Maximum requests allowed per window
	Remaining int64     // Requests remaining in the current window
	Reset     time.Time // When the window resets
}

// Client is a GitHub search API client. It carries its own rate-limit
// bookkeeping and API call counter; there is no process-wide state.
type Client struct {
	// BaseURL is the API root. Overridable for GitHub Enterprise Server
	// and tests.
	BaseURL string

	token      string
	userAgent  string
	httpClient *http.Client

	apiCalls  int64
	rateLimit RateLimitInfo
}

// NewClient creates a client. An empty token is permitted; requests are then
// unauthenticated and subject to much stricter search limits.
func NewClient(token string) *Client {
	return &Client{
		BaseURL:   defaultBaseURL,
		token:     token,
		userAgent: "phishtrack",
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// APICalls returns the number of API requests issued so far.
func (c *Client) APICalls() int64 {
	return c.apiCalls
}

// RateLimit returns the rate limit reported by the most recent response.
// A zero Limit means no request has completed yet.
func (c *Client) RateLimit() RateLimitInfo {
	return c.rateLimit
}

// doRequest issues an authenticated request against the GitHub API.
func (c *Client) doRequest(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	c.apiCalls++
	c.updateRateLimit(resp.Header)

	return resp, nil
}

// updateRateLimit refreshes the cached rate limit from response headers.
// Headers are absent on some error responses; those leave the cache alone.
func (c *Client) updateRateLimit(headers http.Header) {
	limitHeader := headers.Get("X-RateLimit-Limit")
	if limitHeader == "" {
		return
	}

	limit, _ := strconv.ParseInt(limitHeader, 10, 64)
	remaining, _ := strconv.ParseInt(headers.Get("X-RateLimit-Remaining"), 10, 64)
	reset, _ := strconv.ParseInt(headers.Get("X-RateLimit-Reset"), 10, 64)

	c.rateLimit = RateLimitInfo{
		Limit:     limit,
		Remaining: remaining,
		Reset:     time.Unix(reset, 0),
	}
}

// checkRateLimit returns ErrRateLimited once the remaining budget dips into
// the safety buffer. The run aborts cleanly instead of sleeping; retry is
// the external scheduler's job.
func (c *Client) checkRateLimit() error {
	if c.rateLimit.Limit == 0 {
		return nil
	}
	if c.rateLimit.Remaining <= rateLimitSafetyBuffer {
		return fmt.Errorf("%w: %d/%d remaining, resets at %s",
			ErrRateLimited, c.rateLimit.Remaining, c.rateLimit.Limit,
			c.rateLimit.Reset.Format(time.RFC3339))
	}
	return nil
}

// backoffFor returns the exponential backoff duration for the given attempt,
// capped at maxBackoffDuration.
func backoffFor(attempt int) time.Duration {
	backoff := retryBackoffBase << attempt
	if backoff > maxBackoffDuration {
		backoff = maxBackoffDuration
	}
	return backoff
}

// parseRetryAfter parses a Retry-After header, which is either an integer
// number of seconds or an HTTP date. Falls back to one minute.
func parseRetryAfter(value string) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := time.Parse(time.RFC1123, value); err == nil {
		return time.Until(t)
	}
	return time.Minute
}
