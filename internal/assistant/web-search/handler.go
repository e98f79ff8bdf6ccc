// internal/assistant/web-search/handler.go
package websearch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	apphttp "garage-assistant/internal/common/http"
	"garage-assistant/internal/common/logger"
	"garage-assistant/internal/common/metrics"
	"garage-assistant/internal/common/textnorm"
	"garage-assistant/internal/models"
)

const (
	ComponentName = "web-search"
)

// Client runs cached, throttled, retried web searches. One Client is shared by
// every question so the cache and throttle are process-wide.
type Client struct {
	config   *Config
	provider Provider
	cache    Cache
	limiter  *rate.Limiter
	now      Clock
	sleep    func(ctx context.Context, d time.Duration) error
	logger   logger.Logger
}

func NewClient(config *Config, provider Provider, cache Cache, log logger.Logger) *Client {
	limit := rate.Inf
	if config.MinDelay > 0 {
		limit = rate.Every(config.MinDelay)
	}
	if cache == nil {
		cache = NewMemoryCache(config.CacheTTL, nil)
	}
	return &Client{
		config:   config,
		provider: provider,
		cache:    cache,
		limiter:  rate.NewLimiter(limit, 1),
		now:      time.Now,
		sleep:    sleepContext,
		logger:   logger.ForComponent(log, ComponentName),
	}
}

// Search runs queries in order and merges their results by URL. It fails only
// when no query produced results, returning the last *SearchFailure.
func (c *Client) Search(ctx context.Context, queries []string, opts Options) ([]models.SearchResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}

	merged := make([]models.SearchResult, 0, maxResults)
	seen := make(map[string]bool)
	var lastFailure *SearchFailure
	succeeded := 0

	for _, query := range queries {
		if len(merged) >= maxResults {
			break
		}
		key := textnorm.Normalize(query)
		if key == "" {
			continue
		}

		results, ok := c.cache.Get(ctx, key)
		if ok {
			metrics.SearchCacheLookups.WithLabelValues("hit").Inc()
		} else {
			metrics.SearchCacheLookups.WithLabelValues("miss").Inc()
			if ctx.Err() != nil {
				lastFailure = &SearchFailure{Reason: ReasonTimeout, Query: query, Err: ctx.Err()}
				break
			}

			var failure *SearchFailure
			results, failure = c.fetch(ctx, query, maxResults)
			if failure != nil {
				lastFailure = failure
				metrics.SearchFailures.WithLabelValues(string(failure.Reason)).Inc()
				c.logger.Warn("web search query failed", map[string]interface{}{
					"query":    query,
					"reason":   string(failure.Reason),
					"attempts": failure.Attempts,
				})
				continue
			}
			c.cache.Set(ctx, key, results)
		}

		succeeded++
		for _, r := range results {
			if seen[r.URL] || len(merged) >= maxResults {
				continue
			}
			seen[r.URL] = true
			merged = append(merged, r)
		}
	}

	if succeeded == 0 && lastFailure != nil {
		return nil, lastFailure
	}

	c.logger.Info("web search completed", map[string]interface{}{
		"queryCount":  len(queries),
		"resultCount": len(merged),
	})
	return merged, nil
}

func (c *Client) fetch(ctx context.Context, query string, limit int) ([]models.SearchResult, *SearchFailure) {
	var failure *SearchFailure

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.config.BackoffBase * time.Duration(1<<(attempt-1))
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, &SearchFailure{Reason: ReasonTimeout, Query: query, Attempts: attempt, Err: err}
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &SearchFailure{Reason: ReasonTimeout, Query: query, Attempts: attempt, Err: err}
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		hits, err := c.provider.Search(reqCtx, query, limit)
		cancel()

		if err == nil {
			return c.toResults(query, hits), nil
		}

		failure = classify(query, err)
		failure.Attempts = attempt + 1

		// the caller's deadline is gone; retrying cannot help
		if ctx.Err() != nil || !failure.retryable() {
			return nil, failure
		}
	}
	return nil, failure
}

func (c *Client) toResults(query string, hits []Hit) []models.SearchResult {
	fetchedAt := c.now().UTC()
	out := make([]models.SearchResult, 0, len(hits))
	for _, h := range hits {
		out = append(out, models.SearchResult{
			Query:     query,
			Title:     h.Title,
			Snippet:   h.Snippet,
			URL:       h.URL,
			FetchedAt: fetchedAt,
		})
	}
	return out
}

func classify(query string, err error) *SearchFailure {
	f := &SearchFailure{Query: query, Err: err}

	var statusErr *apphttp.StatusError
	var netErr net.Error
	switch {
	case errors.As(err, &statusErr):
		f.StatusCode = statusErr.StatusCode
		f.Reason = ReasonHTTP
		if statusErr.StatusCode == http.StatusTooManyRequests {
			f.Reason = ReasonRateLimited
			f.RetryAfter = statusErr.RetryAfter
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		f.Reason = ReasonTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		f.Reason = ReasonTimeout
	default:
		f.Reason = ReasonHTTP
		var decodeErr *apphttp.DecodeError
		if errors.As(err, &decodeErr) {
			// a malformed 2xx body is not retried
			f.StatusCode = http.StatusOK
		}
	}
	return f
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
