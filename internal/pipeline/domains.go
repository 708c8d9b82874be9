package pipeline

import (
	"sort"
	"strings"

	"github.com/mealcraft/discovery-api/internal/models"
)

// PrioritySites are well-known recipe publishers whose candidates are
// scheduled ahead of everything else, in this order.
var PrioritySites = []string{
	"allrecipes.com",
	"simplyrecipes.com",
	"eatingwell.com",
	"foodnetwork.com",
	"delish.com",
	"tasteofhome.com",
	"seriouseats.com",
	"foodandwine.com",
	"thepioneerwoman.com",
	"food.com",
	"epicurious.com",
}

// BlockedSites never yield parseable recipes and are pruned from search
// results before scheduling.
var BlockedSites = []string{
	"youtube.com",
	"facebook.com",
	"instagram.com",
	"pinterest.com",
	"tiktok.com",
	"reddit.com",
	"twitter.com",
}

// IsBlockedSite reports whether a URL belongs to a blocked social/video site.
func IsBlockedSite(rawURL string) bool {
	domain := models.Domain(rawURL)
	for _, blocked := range BlockedSites {
		if strings.Contains(domain, blocked) {
			return true
		}
	}
	return false
}

// priorityIndex returns the position of the first priority site the domain
// matches, or -1 when the domain is not a priority site.
func priorityIndex(domain string) int {
	for i, site := range PrioritySites {
		if strings.Contains(domain, site) {
			return i
		}
	}
	return -1
}

// domainBuckets groups candidates by domain, preserving the search order
// inside each bucket, and returns the bucket keys in scheduling order:
// priority domains first (in priority-list order), then the rest
// alphabetically.
func domainBuckets(candidates []models.URLCandidate) (map[string][]models.URLCandidate, []string) {
	buckets := make(map[string][]models.URLCandidate)
	var order []string
	for _, cand := range candidates {
		domain := cand.Domain
		if domain == "" {
			domain = models.Domain(cand.URL)
		}
		if _, seen := buckets[domain]; !seen {
			order = append(order, domain)
		}
		buckets[domain] = append(buckets[domain], cand)
	}

	sort.SliceStable(order, func(i, j int) bool {
		pi, pj := priorityIndex(order[i]), priorityIndex(order[j])
		switch {
		case pi >= 0 && pj >= 0:
			return pi < pj
		case pi >= 0:
			return true
		case pj >= 0:
			return false
		default:
			return order[i] < order[j]
		}
	})
	return buckets, order
}
