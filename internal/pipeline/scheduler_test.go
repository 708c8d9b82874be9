package pipeline

import (
	"fmt"
	"testing"

	"github.com/mealcraft/discovery-api/internal/models"
)

// cands builds n candidates on one domain, URLs numbered from 1.
func cands(domain string, n int) []models.URLCandidate {
	out := make([]models.URLCandidate, n)
	for i := 0; i < n; i++ {
		out[i] = models.URLCandidate{
			URL:    fmt.Sprintf("https://%s/recipe-%d", domain, i+1),
			Domain: domain,
		}
	}
	return out
}

func urls(batch []models.URLCandidate) []string {
	out := make([]string, len(batch))
	for i, c := range batch {
		out[i] = c.URL
	}
	return out
}

func TestBuildBatches_InterleavesDomainsRoundRobin(t *testing.T) {
	var input []models.URLCandidate
	input = append(input, cands("a.com", 5)...)
	input = append(input, cands("b.com", 4)...)
	input = append(input, cands("c.com", 3)...)

	batches := buildBatches(input, 10)
	if len(batches) != 2 {
		t.Fatalf("len(batches) = %d, want 2", len(batches))
	}

	want := []string{
		"https://a.com/recipe-1", "https://b.com/recipe-1", "https://c.com/recipe-1",
		"https://a.com/recipe-2", "https://b.com/recipe-2", "https://c.com/recipe-2",
		"https://a.com/recipe-3", "https://b.com/recipe-3", "https://c.com/recipe-3",
		"https://a.com/recipe-4",
	}
	got := urls(batches[0])
	if len(got) != len(want) {
		t.Fatalf("len(batches[0]) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("batches[0][%d] = %s, want %s", i, got[i], want[i])
		}
	}

	wantRest := []string{"https://a.com/recipe-5", "https://b.com/recipe-4"}
	gotRest := urls(batches[1])
	if len(gotRest) != len(wantRest) {
		t.Fatalf("len(batches[1]) = %d, want %d", len(gotRest), len(wantRest))
	}
	for i := range wantRest {
		if gotRest[i] != wantRest[i] {
			t.Errorf("batches[1][%d] = %s, want %s", i, gotRest[i], wantRest[i])
		}
	}
}

func TestBuildBatches_PrioritySitesScheduledFirst(t *testing.T) {
	var input []models.URLCandidate
	input = append(input, cands("aaa-blog.com", 1)...)
	input = append(input, cands("allrecipes.com", 1)...)

	batches := buildBatches(input, 10)
	if len(batches) != 1 {
		t.Fatalf("len(batches) = %d, want 1", len(batches))
	}
	if got := batches[0][0].Domain; got != "allrecipes.com" {
		t.Errorf("first scheduled domain = %s, want allrecipes.com", got)
	}
}

func TestBuildBatches_SingleDomainFillsOneBatch(t *testing.T) {
	batches := buildBatches(cands("a.com", 5), 10)
	if len(batches) != 1 {
		t.Fatalf("len(batches) = %d, want 1", len(batches))
	}
	if len(batches[0]) != 5 {
		t.Errorf("len(batches[0]) = %d, want 5", len(batches[0]))
	}
}

func TestBuildBatches_RespectsBatchSize(t *testing.T) {
	var input []models.URLCandidate
	input = append(input, cands("a.com", 8)...)
	input = append(input, cands("b.com", 8)...)

	batches := buildBatches(input, 6)
	if len(batches) != 3 {
		t.Fatalf("len(batches) = %d, want 3", len(batches))
	}
	for i, batch := range batches {
		if len(batch) > 6 {
			t.Errorf("len(batches[%d]) = %d, exceeds batch size 6", i, len(batch))
		}
	}
}

func TestBuildBatches_EmptyInput(t *testing.T) {
	if batches := buildBatches(nil, 10); len(batches) != 0 {
		t.Errorf("len(batches) = %d, want 0", len(batches))
	}
}

func TestBuildBatches_DomainDerivedFromURLWhenMissing(t *testing.T) {
	input := []models.URLCandidate{
		{URL: "https://www.example.com/pasta"},
		{URL: "https://www.example.com/soup"},
	}
	batches := buildBatches(input, 10)
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("unexpected batch shape: %v", batches)
	}
}
