package scrape

import (
	"context"
	"fmt"

	"github.com/mealcraft/discovery-api/internal/models"
)

// RecipeParser parses a recipe URL by fetching the page and extracting its
// JSON-LD recipe data. Pages without structured data are parse failures;
// qualification of the parsed fields is the verifier's job.
type RecipeParser struct {
	fetcher *Fetcher
}

// NewRecipeParser creates a RecipeParser sharing the given fetcher.
func NewRecipeParser(fetcher *Fetcher) *RecipeParser {
	return &RecipeParser{fetcher: fetcher}
}

// Parse fetches and parses a single recipe page.
func (p *RecipeParser) Parse(ctx context.Context, url string) (*models.ParsedRecipe, error) {
	html, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	recipe, err := extractRecipeJSONLD(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}
	recipe.SourceURL = url
	return recipe, nil
}
