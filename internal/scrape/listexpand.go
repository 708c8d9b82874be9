package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mealcraft/discovery-api/internal/ai"
	"github.com/mealcraft/discovery-api/internal/models"
	"github.com/mealcraft/discovery-api/internal/pipeline"
)

// maxAnchors caps how many extracted anchors are offered to the link picker.
const maxAnchors = 150

// LinkPicker selects the anchors that point at individual recipe pages.
type LinkPicker interface {
	PickRecipeLinks(ctx context.Context, pageURL string, links []ai.LinkCandidate, max int) ([]string, error)
}

// ListExpander extracts recipe links from roundup pages. Anchors are pulled
// with goquery and the picker chooses which ones are actual recipes. With a
// nil picker a URL-path heuristic is used instead.
type ListExpander struct {
	picker LinkPicker
}

// NewListExpander creates a ListExpander.
func NewListExpander(picker LinkPicker) *ListExpander {
	return &ListExpander{picker: picker}
}

// Expand extracts up to max recipe candidates from a roundup page.
func (e *ListExpander) Expand(ctx context.Context, pageURL string, html string, max int) ([]models.URLCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse list page: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse list page URL: %w", err)
	}

	anchors := collectAnchors(doc, base, pageURL)
	if len(anchors) == 0 {
		return nil, nil
	}

	var selected []string
	if e.picker != nil {
		selected, err = e.picker.PickRecipeLinks(ctx, pageURL, anchors, max)
		if err != nil {
			return nil, fmt.Errorf("link picking failed: %w", err)
		}
	} else {
		selected = heuristicPick(anchors, max)
	}

	titles := make(map[string]string, len(anchors))
	for _, a := range anchors {
		titles[a.URL] = a.Text
	}

	candidates := make([]models.URLCandidate, 0, len(selected))
	for i, link := range selected {
		if i >= max {
			break
		}
		candidates = append(candidates, models.URLCandidate{
			URL:        link,
			Title:      titles[link],
			SourceRank: i,
			Domain:     models.Domain(link),
		})
	}
	return candidates, nil
}

// collectAnchors pulls deduplicated absolute links out of the document,
// skipping fragments, non-http schemes, blocked sites, and the page itself.
func collectAnchors(doc *goquery.Document, base *url.URL, pageURL string) []ai.LinkCandidate {
	seen := make(map[string]struct{})
	var anchors []ai.LinkCandidate

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return true
		}
		abs.Fragment = ""
		link := abs.String()
		if link == pageURL {
			return true
		}
		if pipeline.IsBlockedSite(link) {
			return true
		}
		if _, dup := seen[link]; dup {
			return true
		}
		seen[link] = struct{}{}
		anchors = append(anchors, ai.LinkCandidate{
			URL:  link,
			Text: strings.TrimSpace(s.Text()),
		})
		return len(anchors) < maxAnchors
	})
	return anchors
}

// heuristicPick keeps links whose path looks like a recipe page.
func heuristicPick(anchors []ai.LinkCandidate, max int) []string {
	var picked []string
	for _, a := range anchors {
		if len(picked) >= max {
			break
		}
		u, err := url.Parse(a.URL)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(u.Path), "recipe") {
			picked = append(picked, a.URL)
		}
	}
	return picked
}
