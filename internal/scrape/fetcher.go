package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mealcraft/discovery-api/internal/models"
	"github.com/mealcraft/discovery-api/internal/pipeline"
)

const (
	// maxBodySize caps how much of a page we read.
	maxBodySize = 2 * 1024 * 1024
	userAgent   = "Mozilla/5.0 (compatible; MealcraftBot/1.0; +https://mealcraft.io/bot)"
)

// Fetcher retrieves page HTML with a per-domain rate limit so bursts against
// a single site stay polite.
type Fetcher struct {
	httpClient *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher creates a Fetcher with a 10 second request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiters: make(map[string]*rate.Limiter),
	}
}

// limiter returns the rate limiter for a domain, creating it on first use.
// Two requests per second per domain, burst of two.
func (f *Fetcher) limiter(domain string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[domain]
	if !ok {
		l = rate.NewLimiter(rate.Every(500*time.Millisecond), 2)
		f.limiters[domain] = l
	}
	return l
}

// Fetch retrieves the HTML of a page. It returns ErrSiteBlocked (wrapped) on
// status codes that indicate the site refuses scraping.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.limiter(models.Domain(url)).Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusUnauthorized, http.StatusTooManyRequests:
		return "", fmt.Errorf("status %d: %w", resp.StatusCode, pipeline.ErrSiteBlocked)
	default:
		return "", fmt.Errorf("URL returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read URL body: %w", err)
	}
	return string(body), nil
}
