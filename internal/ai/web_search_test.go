package ai

import "testing"

func TestToCandidates_FiltersAndRanks(t *testing.T) {
	results := []searchResult{
		{Title: "First", URL: "https://a.com/pasta", Description: "snippet a"},
		{Title: "Excluded", URL: "https://b.com/seen-before"},
		{Title: "Invalid", URL: "not a url"},
		{Title: "Second", URL: "https://c.com/soup"},
		{Title: "Duplicate", URL: "https://a.com/pasta"},
	}
	excluded := map[string]struct{}{
		"https://b.com/seen-before": {},
	}

	got := toCandidates(results, excluded)
	if len(got) != 2 {
		t.Fatalf("len(candidates) = %d, want 2: %v", len(got), got)
	}
	if got[0].URL != "https://a.com/pasta" || got[0].SourceRank != 0 {
		t.Errorf("candidates[0] = %+v, want a.com/pasta at rank 0", got[0])
	}
	if got[1].URL != "https://c.com/soup" || got[1].SourceRank != 1 {
		t.Errorf("candidates[1] = %+v, want c.com/soup at rank 1", got[1])
	}
	if got[0].Domain != "a.com" {
		t.Errorf("candidates[0].Domain = %q, want a.com", got[0].Domain)
	}
	if got[0].Snippet != "snippet a" {
		t.Errorf("candidates[0].Snippet = %q", got[0].Snippet)
	}
}

func TestToCandidates_Empty(t *testing.T) {
	if got := toCandidates(nil, nil); len(got) != 0 {
		t.Errorf("len(candidates) = %d, want 0", len(got))
	}
}
