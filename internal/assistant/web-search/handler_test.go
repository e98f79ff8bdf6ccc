// internal/assistant/web-search/handler_test.go
package websearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "garage-assistant/internal/common/errors"
	apphttp "garage-assistant/internal/common/http"
	"garage-assistant/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeProvider struct {
	mu    sync.Mutex
	calls map[string]int
	total int
	fn    func(call int, query string) ([]Hit, error)
}

func newFakeProvider(fn func(call int, query string) ([]Hit, error)) *fakeProvider {
	return &fakeProvider{calls: make(map[string]int), fn: fn}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	p.mu.Lock()
	p.calls[query]++
	p.total++
	call := p.calls[query]
	p.mu.Unlock()
	return p.fn(call, query)
}

func (p *fakeProvider) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

func hitsFor(query string, n int) []Hit {
	hits := make([]Hit, n)
	for i := range hits {
		hits[i] = Hit{
			Title:   fmt.Sprintf("%s %d", query, i),
			Snippet: "snippet for " + query,
			URL:     fmt.Sprintf("https://example.com/%s/%d", query, i),
		}
	}
	return hits
}

func createTestConfig() *Config {
	return &Config{
		Timeout:     time.Second,
		MaxRetries:  3,
		BackoffBase: 100 * time.Millisecond,
		CacheTTL:    5 * time.Minute,
		MaxResults:  8,
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// newTestClient replaces real sleeping with a recorder.
func newTestClient(t *testing.T, cfg *Config, p Provider, cache Cache) (*Client, *[]time.Duration) {
	t.Helper()
	c := NewClient(cfg, p, cache, logger.NewTestLogger(t))
	var backoffs []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		backoffs = append(backoffs, d)
		return ctx.Err()
	}
	return c, &backoffs
}

// ==========================
// Core Functionality Tests
// ==========================

func TestClient_Search_Success(t *testing.T) {
	p := newFakeProvider(func(_ int, q string) ([]Hit, error) { return hitsFor(q, 2), nil })
	c, _ := newTestClient(t, createTestConfig(), p, nil)

	results, err := c.Search(context.Background(), []string{"plaquettes de frein"}, Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "plaquettes de frein", results[0].Query)
	assert.False(t, results[0].FetchedAt.IsZero())
}

func TestClient_Search_MergesByURLAndCaps(t *testing.T) {
	p := newFakeProvider(func(_ int, q string) ([]Hit, error) {
		hits := hitsFor(q, 3)
		hits = append(hits, Hit{Title: "shared", URL: "https://example.com/shared"})
		return hits, nil
	})
	c, _ := newTestClient(t, createTestConfig(), p, nil)

	results, err := c.Search(context.Background(), []string{"a", "b", "c"}, Options{MaxResults: 6})
	require.NoError(t, err)
	assert.Len(t, results, 6)

	urls := map[string]bool{}
	for _, r := range results {
		assert.False(t, urls[r.URL], "duplicate %s", r.URL)
		urls[r.URL] = true
	}
	// cap reached after two queries
	assert.Equal(t, 2, p.Total())
}

// ==========================
// Cache Tests
// ==========================

func TestClient_Search_CacheWithinAndAfterTTL(t *testing.T) {
	clock := newFakeClock()
	cfg := createTestConfig()
	p := newFakeProvider(func(_ int, q string) ([]Hit, error) { return hitsFor(q, 1), nil })
	c, _ := newTestClient(t, cfg, p, NewMemoryCache(cfg.CacheTTL, clock.Now))

	ctx := context.Background()
	_, err := c.Search(ctx, []string{"Plaquettes de frein"}, Options{})
	require.NoError(t, err)
	_, err = c.Search(ctx, []string{"plaquettes de FREIN ?"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Total(), "identical normalized query within TTL must hit the cache")

	clock.Advance(cfg.CacheTTL)
	_, err = c.Search(ctx, []string{"plaquettes de frein"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Total(), "stale entry must trigger a new network call")
}

func TestClient_Search_FailureNotCached(t *testing.T) {
	p := newFakeProvider(func(call int, q string) ([]Hit, error) {
		if call == 1 {
			return nil, &apphttp.StatusError{StatusCode: http.StatusBadRequest}
		}
		return hitsFor(q, 1), nil
	})
	cache := NewMemoryCache(time.Minute, nil)
	c, _ := newTestClient(t, createTestConfig(), p, cache)

	_, err := c.Search(context.Background(), []string{"vidange"}, Options{})
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	results, err := c.Search(context.Background(), []string{"vidange"}, Options{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 1, cache.Len())
}

// ==========================
// Retry Tests
// ==========================

func TestClient_Search_RetryThenSuccess(t *testing.T) {
	cfg := createTestConfig()
	p := newFakeProvider(func(call int, q string) ([]Hit, error) {
		if call < cfg.MaxRetries {
			return nil, &apphttp.StatusError{StatusCode: http.StatusServiceUnavailable}
		}
		return hitsFor(q, 1), nil
	})
	c, backoffs := newTestClient(t, cfg, p, nil)

	results, err := c.Search(context.Background(), []string{"pneu"}, Options{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, cfg.MaxRetries, p.Total())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *backoffs)
}

func TestClient_Search_Failures(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantReason   FailureReason
		wantAttempts int
		wantCode     apperrors.ErrorCode
	}{
		{
			name:         "server error exhausts retries",
			err:          &apphttp.StatusError{StatusCode: http.StatusBadGateway},
			wantReason:   ReasonHTTP,
			wantAttempts: 4,
			wantCode:     apperrors.ErrCodeWebSearchHTTP,
		},
		{
			name:         "rate limited exhausts retries",
			err:          &apphttp.StatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: "3"},
			wantReason:   ReasonRateLimited,
			wantAttempts: 4,
			wantCode:     apperrors.ErrCodeWebSearchRateLimited,
		},
		{
			name:         "client error is not retried",
			err:          &apphttp.StatusError{StatusCode: http.StatusForbidden},
			wantReason:   ReasonHTTP,
			wantAttempts: 1,
			wantCode:     apperrors.ErrCodeWebSearchHTTP,
		},
		{
			name:         "decode error is not retried",
			err:          &apphttp.DecodeError{Err: errors.New("unexpected EOF")},
			wantReason:   ReasonHTTP,
			wantAttempts: 1,
			wantCode:     apperrors.ErrCodeWebSearchHTTP,
		},
		{
			name:         "per-request timeout",
			err:          context.DeadlineExceeded,
			wantReason:   ReasonTimeout,
			wantAttempts: 4,
			wantCode:     apperrors.ErrCodeWebSearchTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider(func(int, string) ([]Hit, error) { return nil, tt.err })
			c, _ := newTestClient(t, createTestConfig(), p, nil)

			results, err := c.Search(context.Background(), []string{"embrayage"}, Options{})
			assert.Nil(t, results)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSearchFailed)

			var failure *SearchFailure
			require.True(t, errors.As(err, &failure))
			assert.Equal(t, tt.wantReason, failure.Reason)
			assert.Equal(t, tt.wantAttempts, failure.Attempts)
			assert.Equal(t, tt.wantAttempts, p.Total())
			assert.Equal(t, tt.wantCode, apperrors.Code(err))
		})
	}
}

func TestClient_Search_RealTimeout(t *testing.T) {
	cfg := createTestConfig()
	cfg.Timeout = 20 * time.Millisecond
	cfg.MaxRetries = 1
	cfg.BackoffBase = time.Millisecond

	p := &blockingProvider{}
	c := NewClient(cfg, p, nil, logger.NewNoOpLogger())

	_, err := c.Search(context.Background(), []string{"courroie"}, Options{})
	var failure *SearchFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, ReasonTimeout, failure.Reason)
	assert.Equal(t, 2, failure.Attempts)
}

type blockingProvider struct{}

func (blockingProvider) Name() string { return "blocking" }

func (blockingProvider) Search(ctx context.Context, _ string, _ int) ([]Hit, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestClient_Search_PartialSuccess(t *testing.T) {
	p := newFakeProvider(func(_ int, q string) ([]Hit, error) {
		if q == "broken" {
			return nil, &apphttp.StatusError{StatusCode: http.StatusNotFound}
		}
		return hitsFor(q, 2), nil
	})
	c, _ := newTestClient(t, createTestConfig(), p, nil)

	results, err := c.Search(context.Background(), []string{"broken", "freins"}, Options{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestClient_Search_CancelledContext(t *testing.T) {
	p := newFakeProvider(func(_ int, q string) ([]Hit, error) { return hitsFor(q, 1), nil })
	c, _ := newTestClient(t, createTestConfig(), p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Search(ctx, []string{"batterie"}, Options{})
	var failure *SearchFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, ReasonTimeout, failure.Reason)
	assert.Equal(t, 0, p.Total())
}

func TestClient_Search_NoQueries(t *testing.T) {
	c, _ := newTestClient(t, createTestConfig(), newFakeProvider(nil), nil)
	results, err := c.Search(context.Background(), []string{"", "  ?"}, Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

// ==========================
// Throttle Tests
// ==========================

func TestClient_Search_ThrottlesNetworkCallsOnly(t *testing.T) {
	cfg := createTestConfig()
	cfg.MinDelay = 30 * time.Millisecond
	p := newFakeProvider(func(_ int, q string) ([]Hit, error) { return hitsFor(q, 1), nil })
	c := NewClient(cfg, p, nil, logger.NewNoOpLogger())
	queries := []string{"moteur", "pneu", "frein"}

	start := time.Now()
	_, err := c.Search(context.Background(), queries, Options{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)

	start = time.Now()
	for i := 0; i < 10; i++ {
		_, err := c.Search(context.Background(), queries, Options{})
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 30*time.Millisecond, "cache hits must not be throttled")
	assert.Equal(t, 3, p.Total())
}

// ==========================
// Error Mapping Tests
// ==========================

func TestSearchFailure_Standard(t *testing.T) {
	f := &SearchFailure{Reason: ReasonRateLimited, Query: "q", RetryAfter: "5", Attempts: 2}
	se := f.Standard()
	assert.Equal(t, apperrors.ErrCodeWebSearchRateLimited, se.Code)
	assert.Equal(t, 2, se.Metadata["attempts"])
	assert.Contains(t, f.Error(), "rate-limited")
}
