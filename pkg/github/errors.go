package github

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ekexium/gimme-release-notes/pkg/types"
)

// APIError is a non-2xx response from the GitHub API
type APIError struct {
	StatusCode int
	URL        string
	Message    string

	// RateLimitReset is set when GitHub reported an exhausted rate limit
	RateLimitReset time.Time
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("GitHub API returned status %d for %s", e.StatusCode, e.URL)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if !e.RateLimitReset.IsZero() {
		msg += fmt.Sprintf(" (rate limited until %s)", e.RateLimitReset.Format(time.RFC3339))
	}
	return msg
}

// Unwrap lets callers treat API failures as transport errors
func (e *APIError) Unwrap() error {
	return types.ErrTransport
}

// RateLimited reports whether the response was a rate limit rejection
func (e *APIError) RateLimited() bool {
	return !e.RateLimitReset.IsZero()
}

func newAPIError(resp *http.Response, url string, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		URL:        url,
	}

	var wire struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &wire) == nil {
		apiErr.Message = wire.Message
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		if resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.StatusCode == http.StatusTooManyRequests {
			if resetHeader := resp.Header.Get("X-RateLimit-Reset"); resetHeader != "" {
				if reset, err := strconv.ParseInt(resetHeader, 10, 64); err == nil {
					apiErr.RateLimitReset = time.Unix(reset, 0)
				}
			}
		}
	}

	return apiErr
}
