package models

import (
	"net/url"
	"strings"
)

// ClassificationKind is the page type assigned to a candidate URL.
type ClassificationKind string

const (
	// KindRecipe marks a page holding a single recipe.
	KindRecipe ClassificationKind = "recipe"
	// KindList marks a roundup/collection page linking to many recipes.
	KindList ClassificationKind = "list"
	// KindOther marks anything else; such candidates are dropped permanently.
	KindOther ClassificationKind = "other"
)

// URLCandidate is one search result that has not yet been classified or
// parsed. Immutable once created. SourceRank preserves the search engine's
// relevance ordering (0 = most relevant).
type URLCandidate struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
	SourceRank int    `json:"source_rank"`
	Domain     string `json:"domain"`
}

// Classification is the page-type judgment for a single candidate.
type Classification struct {
	URL        string             `json:"url"`
	Kind       ClassificationKind `json:"kind"`
	Confidence float64            `json:"confidence"`
}

// Nutrient is one nutrition fact in canonical form.
type Nutrient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// ParsedRecipe is the output of the parsing collaborator. Optional fields may
// be empty without the recipe counting as a parse failure; qualification is
// decided later by the verifier.
type ParsedRecipe struct {
	SourceURL    string     `json:"source_url"`
	Title        string     `json:"title"`
	Ingredients  []string   `json:"ingredients"`
	Instructions []string   `json:"instructions"`
	Nutrition    []string   `json:"nutrition,omitempty"`
	Facts        []Nutrient `json:"nutrition_facts,omitempty"`
	Servings     int        `json:"servings,omitempty"`
	CookTime     int        `json:"cook_time,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`

	// SearchTitle and SearchSnippet carry the search metadata of the
	// candidate the recipe was parsed from.
	SearchTitle   string `json:"search_title,omitempty"`
	SearchSnippet string `json:"search_snippet,omitempty"`
}

// QualifiedRecipe is a parsed recipe with its verification outcome attached.
// MatchPercentage is consumed only by the fallback filler. Fallback marks
// entries promoted as closest matches rather than exact qualifiers.
type QualifiedRecipe struct {
	ParsedRecipe
	MatchPercentage float64 `json:"match_percentage"`
	Qualifies       bool    `json:"qualifies"`
	Fallback        bool    `json:"fallback"`
}

// Domain extracts the lowercased host of a URL with any "www." prefix
// stripped. Returns "unknown" when the URL cannot be parsed.
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
