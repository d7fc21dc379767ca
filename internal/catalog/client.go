// Package catalog discovers themes and their images from a directory
// listing served over HTTP. Fetching and parsing are split: the client
// handles transport, rate limiting and retries, while the parse
// functions are pure and operate on the fetched HTML.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Theme is one directory entry on the archive's top-level listing.
type Theme struct {
	// Name is the cleaned, filesystem-safe display name.
	Name string
	// OriginalName is the link text as served, before cleanup.
	OriginalName string
	// URL is the absolute listing URL, always ending in a slash.
	URL string
}

// Image is one downloadable image inside a theme listing.
type Image struct {
	// Filename is the percent-decoded last path segment.
	Filename string
	// URL is the absolute download URL as served.
	URL string
}

// Listing pairs a theme's source URL with its images.
type Listing struct {
	URL    string
	Images []Image
}

// Client fetches listings from the archive with a minimum interval
// between requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	rateLimit  time.Duration
	logger     *slog.Logger

	mu          sync.Mutex
	lastRequest time.Time

	// sleepFunc waits between rate-limited requests. Tests override
	// this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
	nowFunc   func() time.Time
}

// NewClient creates a catalog client for the given archive base URL.
// baseURL must end in a slash so relative listing links resolve under it.
func NewClient(baseURL string, rateLimit, timeout time.Duration, userAgent string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		rateLimit:  rateLimit,
		logger:     logger,
		sleepFunc:  sleepContext,
		nowFunc:    time.Now,
	}
}

// Themes fetches and parses the top-level listing.
func (c *Client) Themes(ctx context.Context) ([]Theme, error) {
	body, err := c.get(ctx, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetching theme listing: %w", err)
	}

	themes, err := ParseThemes(body, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: parsing theme listing: %w", err)
	}

	c.logger.Info("theme listing fetched", slog.Int("themes", len(themes)))

	return themes, nil
}

// ThemeImages fetches and parses one theme's listing.
func (c *Client) ThemeImages(ctx context.Context, themeURL string) ([]Image, error) {
	body, err := c.get(ctx, themeURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetching theme %s: %w", themeURL, err)
	}

	images, err := ParseImages(body, themeURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: parsing theme %s: %w", themeURL, err)
	}

	c.logger.Debug("theme listing parsed",
		slog.String("url", themeURL),
		slog.Int("images", len(images)),
	)

	return images, nil
}

// Scan walks the whole archive: every theme, every image. Themes whose
// listing fails to fetch are skipped with a warning rather than failing
// the scan.
func (c *Client) Scan(ctx context.Context) (map[string]Listing, error) {
	themes, err := c.Themes(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string]Listing, len(themes))

	for _, theme := range themes {
		images, err := c.ThemeImages(ctx, theme.URL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("catalog: scan canceled: %w", ctx.Err())
			}

			c.logger.Warn("skipping theme after fetch failure",
				slog.String("theme", theme.Name),
				slog.String("error", err.Error()),
			)

			continue
		}

		if len(images) == 0 {
			continue
		}

		result[theme.Name] = Listing{URL: theme.URL, Images: images}
	}

	total := 0
	for _, listing := range result {
		total += len(listing.Images)
	}

	c.logger.Info("archive scan complete",
		slog.Int("themes", len(result)),
		slog.Int("images", total),
	)

	return result, nil
}

// Ping checks that the archive answers at all.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.get(ctx, c.baseURL); err != nil {
		return fmt.Errorf("catalog: archive unreachable: %w", err)
	}

	return nil
}

// get performs a rate-limited GET and returns the response body.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.waitRateLimit(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}

	return body, nil
}

// waitRateLimit blocks until the minimum interval since the previous
// request has elapsed. Requests across goroutines share the interval.
func (c *Client) waitRateLimit(ctx context.Context) error {
	c.mu.Lock()
	elapsed := c.nowFunc().Sub(c.lastRequest)
	wait := c.rateLimit - elapsed
	c.mu.Unlock()

	if wait > 0 {
		if err := c.sleepFunc(ctx, wait); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.lastRequest = c.nowFunc()
	c.mu.Unlock()

	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
