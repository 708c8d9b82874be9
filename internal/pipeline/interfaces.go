package pipeline

import (
	"context"
	"errors"

	"github.com/mealcraft/discovery-api/internal/models"
)

// ErrNoSearchResults is returned by Discover when the search collaborator
// yields nothing; it is the only failure that aborts a whole query.
var ErrNoSearchResults = errors.New("no search results found")

// ErrSiteBlocked is wrapped by Parser implementations when a site refuses
// scraping (robots, paywall, bot detection). It is a parse-error subtype and
// is logged at reduced severity.
var ErrSiteBlocked = errors.New("site blocked")

// Searcher returns ranked candidates for a query, already filtered of the
// excluded URLs. An empty slice (with nil error) means total search failure.
type Searcher interface {
	Search(ctx context.Context, query string, count int, excluded map[string]struct{}) ([]models.URLCandidate, error)
}

// Classifier classifies one batch of candidates in a single call. Candidates
// missing from the returned map are treated as recipes (fail-open).
type Classifier interface {
	ClassifyBatch(ctx context.Context, batch []models.URLCandidate) (map[string]models.Classification, error)
}

// Parser parses a single recipe URL. A context deadline produces a timeout
// (the URL is demoted to the backlog); any other error is terminal for the
// URL. Wrap ErrSiteBlocked for sites that refuse scraping.
type Parser interface {
	Parse(ctx context.Context, url string) (*models.ParsedRecipe, error)
}

// Fetcher retrieves the raw HTML of a page, used for list-page expansion.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ListExpander extracts up to max recipe-typed candidates from a roundup
// page. An empty slice means the page yielded nothing usable.
type ListExpander interface {
	Expand(ctx context.Context, pageURL string, html string, max int) ([]models.URLCandidate, error)
}

// Verifier checks parsed recipes against the caller's requirements. It
// returns the subset that fully qualifies plus every scored recipe (for the
// fallback filler). On failure both slices are empty.
type Verifier interface {
	Verify(ctx context.Context, recipes []models.ParsedRecipe, requirements map[string]string, query string) (qualified []models.QualifiedRecipe, processed []models.QualifiedRecipe, err error)
}

// Ranker reorders qualified recipes by relevance to the query. On failure
// the input order stands.
type Ranker interface {
	Rank(ctx context.Context, recipes []models.QualifiedRecipe, query string) ([]models.QualifiedRecipe, error)
}
