package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/asaskevich/govalidator"
	"go.uber.org/zap"

	"github.com/mealcraft/discovery-api/internal/logger"
	"github.com/mealcraft/discovery-api/internal/models"
)

// WebSearchProvider implements the search collaborator using Brave Search
// with automatic fallback to Google Custom Search when Brave's limit is hit.
type WebSearchProvider struct {
	braveAPIKey     string
	googleAPIKey    string
	googleCX        string
	httpClient      *http.Client
	braveExhausted  atomic.Bool
	googleExhausted atomic.Bool
}

// NewWebSearchProvider creates a search provider with Brave primary + Google fallback.
func NewWebSearchProvider(braveAPIKey, googleAPIKey, googleCX string) *WebSearchProvider {
	return &WebSearchProvider{
		braveAPIKey:  braveAPIKey,
		googleAPIKey: googleAPIKey,
		googleCX:     googleCX,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Search returns candidates for a query, filtered of excluded and invalid
// URLs, with the engine's relevance order preserved in SourceRank.
func (p *WebSearchProvider) Search(ctx context.Context, query string, count int, excluded map[string]struct{}) ([]models.URLCandidate, error) {
	if count <= 0 {
		count = 10
	}

	var results []searchResult
	var err error

	// Try Brave first (unless we already know it's exhausted for the month)
	if !p.braveExhausted.Load() && p.braveAPIKey != "" {
		results, err = p.searchBrave(ctx, query, count)
		if err != nil {
			logger.Get().Warn("brave search failed, falling back to google", zap.Error(err))
			results = nil
		}
	}

	if results == nil && !p.googleExhausted.Load() && p.googleAPIKey != "" {
		results, err = p.searchGoogle(ctx, query, count)
		if err != nil {
			return nil, err
		}
	}

	if results == nil {
		return nil, fmt.Errorf("no search providers available")
	}
	return toCandidates(results, excluded), nil
}

// toCandidates converts raw engine results into candidates, dropping
// excluded, invalid, and duplicate URLs.
func toCandidates(results []searchResult, excluded map[string]struct{}) []models.URLCandidate {
	seen := make(map[string]struct{}, len(results))
	candidates := make([]models.URLCandidate, 0, len(results))
	for _, r := range results {
		if !govalidator.IsURL(r.URL) {
			continue
		}
		if _, skip := excluded[r.URL]; skip {
			continue
		}
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}
		candidates = append(candidates, models.URLCandidate{
			URL:        r.URL,
			Title:      r.Title,
			Snippet:    r.Description,
			SourceRank: len(candidates),
			Domain:     models.Domain(r.URL),
		})
	}
	return candidates
}

// searchResult is a raw result from either engine.
type searchResult struct {
	Title       string
	URL         string
	Description string
}

// --- Brave Search ---

const braveSearchEndpoint = "https://api.search.brave.com/res/v1/web/search"

type braveSearchResponse struct {
	Web *braveWebResults `json:"web"`
}

type braveWebResults struct {
	Results []braveResult `json:"results"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

func (p *WebSearchProvider) searchBrave(ctx context.Context, query string, count int) ([]searchResult, error) {
	// Brave max is 20 per request
	if count > 20 {
		count = 20
	}

	params := url.Values{}
	params.Set("q", query+" recipe")
	params.Set("count", fmt.Sprintf("%d", count))

	reqURL := fmt.Sprintf("%s?%s", braveSearchEndpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create brave request: %w", err)
	}
	req.Header.Set("X-Subscription-Token", p.braveAPIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read brave response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 403 {
		p.braveExhausted.Store(true)
		return nil, fmt.Errorf("brave quota exhausted (status %d)", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave API returned status %d: %s", resp.StatusCode, string(body))
	}

	var bResp braveSearchResponse
	if err := json.Unmarshal(body, &bResp); err != nil {
		return nil, fmt.Errorf("failed to parse brave response: %w", err)
	}

	if bResp.Web == nil {
		return []searchResult{}, nil
	}

	results := make([]searchResult, 0, len(bResp.Web.Results))
	for _, r := range bResp.Web.Results {
		results = append(results, searchResult{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
		})
	}
	return results, nil
}

// --- Google Custom Search ---

const googleSearchEndpoint = "https://www.googleapis.com/customsearch/v1"

type googleSearchResponse struct {
	Items []googleSearchItem `json:"items"`
	Error *googleErrorBlock  `json:"error"`
}

type googleSearchItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type googleErrorBlock struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (p *WebSearchProvider) searchGoogle(ctx context.Context, query string, count int) ([]searchResult, error) {
	// Google CSE max is 10 per request
	if count > 10 {
		count = 10
	}

	params := url.Values{}
	params.Set("key", p.googleAPIKey)
	params.Set("cx", p.googleCX)
	params.Set("q", query)
	params.Set("num", fmt.Sprintf("%d", count))

	reqURL := fmt.Sprintf("%s?%s", googleSearchEndpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create google request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read google response: %w", err)
	}

	// 429 = quota exhausted for today
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 403 {
		p.googleExhausted.Store(true)
		return nil, fmt.Errorf("google quota exhausted (status %d)", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google API returned status %d: %s", resp.StatusCode, string(body))
	}

	var gResp googleSearchResponse
	if err := json.Unmarshal(body, &gResp); err != nil {
		return nil, fmt.Errorf("failed to parse google response: %w", err)
	}

	if gResp.Error != nil {
		if gResp.Error.Code == 429 || gResp.Error.Code == 403 {
			p.googleExhausted.Store(true)
		}
		return nil, fmt.Errorf("google API error %d: %s", gResp.Error.Code, gResp.Error.Message)
	}

	results := make([]searchResult, 0, len(gResp.Items))
	for _, item := range gResp.Items {
		results = append(results, searchResult{
			Title:       item.Title,
			URL:         item.Link,
			Description: item.Snippet,
		})
	}
	return results, nil
}
