package pipeline

import (
	"sort"

	"github.com/mealcraft/discovery-api/internal/models"
)

// fillClosestMatches tops the final set up to needed with the highest-scoring
// non-qualifying recipes. Only recipes with a positive match percentage are
// eligible; zero-score recipes stay out even if the set ends up short.
// Promoted entries are tagged Fallback so the caller can label them.
func (p *Pipeline) fillClosestMatches(st *state, needed int) bool {
	missing := needed - len(st.final)
	if missing <= 0 || len(st.procAll) == 0 {
		return false
	}

	var candidates []models.QualifiedRecipe
	for _, rec := range st.procAll {
		if _, dup := st.seen[rec.SourceURL]; dup {
			continue
		}
		if rec.MatchPercentage <= 0 {
			continue
		}
		candidates = append(candidates, rec)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MatchPercentage > candidates[j].MatchPercentage
	})

	used := false
	for _, rec := range candidates {
		if missing <= 0 {
			break
		}
		if _, dup := st.seen[rec.SourceURL]; dup {
			continue
		}
		domain := models.Domain(rec.SourceURL)
		if p.cfg.MaxPerDomain > 0 && st.domains[domain] >= p.cfg.MaxPerDomain {
			continue
		}
		rec.Fallback = true
		st.seen[rec.SourceURL] = struct{}{}
		st.domains[domain]++
		st.final = append(st.final, rec)
		missing--
		used = true
	}
	return used
}
