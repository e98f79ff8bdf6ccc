// internal/assistant/web-search/models.go
package websearch

import (
	"errors"
	"fmt"
	"time"

	apperrors "garage-assistant/internal/common/errors"
	"garage-assistant/internal/models"
)

var (
	ErrSearchFailed = errors.New("WEB_SEARCH_FAILED")
)

// Options tunes a single Search call. Zero values fall back to Config.
type Options struct {
	MaxResults int
}

// Hit is one raw provider result.
type Hit struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

type FailureReason string

const (
	ReasonTimeout     FailureReason = "timeout"
	ReasonHTTP        FailureReason = "http"
	ReasonRateLimited FailureReason = "rate-limited"
)

// SearchFailure is the only error Search returns.
type SearchFailure struct {
	Reason     FailureReason
	Query      string
	StatusCode int
	RetryAfter string
	Attempts   int
	Err        error
}

func (f *SearchFailure) Error() string {
	msg := fmt.Sprintf("web search %s for %q after %d attempt(s)", f.Reason, f.Query, f.Attempts)
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *SearchFailure) Unwrap() []error {
	if f.Err == nil {
		return []error{ErrSearchFailed}
	}
	return []error{ErrSearchFailed, f.Err}
}

func (f *SearchFailure) Standard() *apperrors.StandardError {
	var se *apperrors.StandardError
	switch f.Reason {
	case ReasonTimeout:
		se = apperrors.NewWebSearchTimeoutError(f.Query)
	case ReasonRateLimited:
		se = apperrors.NewWebSearchRateLimitedError(f.RetryAfter)
	default:
		se = apperrors.NewWebSearchHTTPError(f.StatusCode, f.Err)
	}
	return se.WithMetadata("attempts", f.Attempts)
}

// retryable reports whether another attempt may succeed.
func (f *SearchFailure) retryable() bool {
	switch f.Reason {
	case ReasonTimeout, ReasonRateLimited:
		return true
	}
	// transport errors carry no status
	return f.StatusCode == 0 || f.StatusCode >= 500
}

// Clock returns the current time; tests substitute a fake.
type Clock func() time.Time

type cacheEnvelope struct {
	FetchedAt time.Time             `json:"fetchedAt"`
	Results   []models.SearchResult `json:"results"`
}
