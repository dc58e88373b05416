package ghapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// SearchIssue is the validated schema for one item of a search response.
// Only the fields the extraction stage needs are declared; everything else
// the API returns is dropped at this boundary.
type SearchIssue struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	HTMLURL       string    `json:"html_url"`
	RepositoryURL string    `json:"repository_url"`
	CreatedAt     time.Time `json:"created_at"`
	User          struct {
		Login string `json:"login"`
	} `json:"user"`
	PullRequest *struct{} `json:"pull_request,omitempty"` // Present if the item is actually a PR
}

// SearchResult is one page of the issue-search response.
type SearchResult struct {
	TotalCount        int           `json:"total_count"`
	IncompleteResults bool          `json:"incomplete_results"`
	Items             []SearchIssue `json:"items"`
}

// SearchIssues fetches one page of issues matching term, newest first.
// Ordering is constant across runs so the incremental cursor stays valid.
//
// Returns ErrSearchWindowExceeded when pagination runs past the search API's
// 1000-result window, and ErrRateLimited when the remaining budget is gone.
// HTTP 5xx responses are retried with exponential backoff before failing.
func (c *Client) SearchIssues(ctx context.Context, term string, page, perPage int) (*SearchResult, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("q", term+" is:issue")
	query.Set("sort", "created")
	query.Set("order", "desc")
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("page", strconv.Itoa(page))
	endpoint := fmt.Sprintf("%s/search/issues?%s", c.BaseURL, query.Encode())

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoffFor(attempt - 1)):
			}
		}

		resp, err := c.doRequest(ctx, http.MethodGet, endpoint)
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			var result SearchResult
			if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
				resp.Body.Close()
				return nil, fmt.Errorf("failed to decode search response: %w", err)
			}
			resp.Body.Close()
			return &result, nil

		case resp.StatusCode == http.StatusUnprocessableEntity:
			// The search API rejects pagination past its result window with
			// 422, but 422 on the first page means the query itself is bad.
			if page > 1 {
				resp.Body.Close()
				return nil, ErrSearchWindowExceeded
			}
			return nil, fmt.Errorf("search query rejected: %w", readErrorAndClose(resp))

		case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := resp.Header.Get("Retry-After")
			resp.Body.Close()
			if retryAfter != "" {
				return nil, fmt.Errorf("%w: retry after %s", ErrRateLimited, parseRetryAfter(retryAfter))
			}
			return nil, fmt.Errorf("%w: resets at %s", ErrRateLimited, c.rateLimit.Reset.Format("15:04:05"))

		case resp.StatusCode >= http.StatusInternalServerError:
			lastErr = readErrorAndClose(resp)
			continue

		default:
			return nil, readErrorAndClose(resp)
		}
	}

	return nil, fmt.Errorf("all retries failed: %w", lastErr)
}

// readErrorAndClose reads an error body and closes it.
func readErrorAndClose(resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("github API error %d: %s", resp.StatusCode, string(body))
}
