package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"matpris/internal/config"
)

var (
	// ErrRetriesExhausted is wrapped by Get when a URL could not be fetched
	// within the configured retry budget.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrRobotsDisallowed is returned for URLs the site's robots.txt forbids.
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")
)

// Client is a sequential, rate limited HTTP fetcher. Pacing, retry budget,
// timeout and user agent all come from the scraper configuration.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	userAgent  string
	logger     zerolog.Logger

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
}

// New builds a Client from the scraper configuration.
func New(cfg config.ScraperConfig, logger zerolog.Logger) *Client {
	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(time.Duration(cfg.RequestDelay * float64(time.Second)))
	}
	return &Client{
		http: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: cfg.MaxRetries,
		userAgent:  cfg.UserAgent,
		logger:     logger,
		robots:     make(map[string]*robotstxt.RobotsData),
	}
}

// Get fetches a URL, honoring robots.txt, the request delay and the retry
// budget. A failed fetch is retried up to max_retries times before an error
// wrapping ErrRetriesExhausted is returned.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	allowed, err := c.allowedByRobots(ctx, rawURL)
	if err == nil && !allowed {
		return nil, fmt.Errorf("%w: %s", ErrRobotsDisallowed, rawURL)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<uint(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := c.do(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.logger.Debug().Str("url", rawURL).Int("attempt", attempt+1).Err(err).Msg("fetch failed, retrying")
	}

	return nil, fmt.Errorf("%w: %s: %v", ErrRetriesExhausted, rawURL, lastErr)
}

func (c *Client) do(ctx context.Context, rawURL string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("status %d for %s", resp.StatusCode, rawURL)
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, false, fmt.Errorf("status %d for %s", resp.StatusCode, rawURL)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}

// allowedByRobots checks the host's robots.txt, fetching and caching it on
// first use. Missing or unreadable robots.txt allows everything.
func (c *Client) allowedByRobots(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true, err
	}

	c.mu.Lock()
	robots, ok := c.robots[u.Host]
	c.mu.Unlock()

	if !ok {
		robots = c.fetchRobots(ctx, u)
		c.mu.Lock()
		c.robots[u.Host] = robots
		c.mu.Unlock()
	}

	if robots == nil {
		return true, nil
	}
	return robots.TestAgent(u.Path, c.userAgent), nil
}

// fetchRobots downloads and parses a host's robots.txt. Any failure yields
// nil, which allows everything.
func (c *Client) fetchRobots(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return robots
}
