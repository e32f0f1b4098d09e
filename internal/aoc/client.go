// Package aoc fetches Advent of Code private leaderboards. One client
// is bound to a single (year, leaderboard, session cookie) triple.
package aoc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HarmlessHarm/AoC-LeaderBot/internal/leaderboard"
)

const userAgent = "AoC-LeaderBot (github.com/HarmlessHarm/AoC-LeaderBot)"

// Client interface for testability.
type Client interface {
	FetchLeaderboard(ctx context.Context) (*leaderboard.Snapshot, error)
}

type HTTPClient struct {
	httpClient *http.Client
	url        string
	cookie     string
	limiter    *rate.Limiter
	retryCount int
	retryDelay time.Duration
	logger     *zap.Logger
}

type Options struct {
	BaseURL    string // override for testing, default https://adventofcode.com
	Timeout    time.Duration
	RetryCount int
	RetryDelay time.Duration
}

func NewClient(sessionCookie string, year int, boardID string, opts Options, logger *zap.Logger) *HTTPClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://adventofcode.com"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryCount == 0 {
		opts.RetryCount = 3
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if !strings.HasPrefix(sessionCookie, "session=") {
		sessionCookie = "session=" + sessionCookie
	}

	return &HTTPClient{
		httpClient: &http.Client{Timeout: opts.Timeout},
		url:        fmt.Sprintf("%s/%d/leaderboard/private/view/%s.json", opts.BaseURL, year, boardID),
		cookie:     sessionCookie,
		// adventofcode.com asks for at most one request per 15
		// minutes per leaderboard; one per minute is the hard cap
		// this client enforces on top of the poll interval.
		limiter:    rate.NewLimiter(rate.Every(time.Minute), 1),
		retryCount: opts.RetryCount,
		retryDelay: opts.RetryDelay,
		logger:     logger,
	}
}

// FetchLeaderboard performs one authenticated GET and parses the
// response into a snapshot. Unauthorized and NotFound fail immediately;
// rate limits, server errors and transport failures retry with
// exponential backoff up to the configured count.
func (c *HTTPClient) FetchLeaderboard(ctx context.Context) (*leaderboard.Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1))
			c.logger.Debug("retrying fetch",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		snap, err := c.fetchOnce(ctx)
		if err == nil {
			return snap, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *HTTPClient) fetchOnce(ctx context.Context) (*leaderboard.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cookie", c.cookie)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("executing request: %w", err)
	}

	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if readErr != nil {
		return nil, fmt.Errorf("reading response: %w", readErr)
	}

	// An expired session does not 401 on a leaderboard URL; it
	// redirects to the login page, which arrives here as HTML.
	if looksLikeHTML(body) {
		return nil, ErrUnauthorized
	}

	snap, err := leaderboard.ParseSnapshot(body, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	c.logger.Debug("fetched leaderboard", zap.Int("members", len(snap.Members)))
	return snap, nil
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrMalformed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func looksLikeHTML(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "<") || strings.HasPrefix(strings.ToLower(trimmed), "<!doctype")
}
