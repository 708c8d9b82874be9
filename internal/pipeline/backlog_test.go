package pipeline

import (
	"testing"

	"github.com/mealcraft/discovery-api/internal/models"
)

func TestBacklog_FIFOAndRemoveOnPop(t *testing.T) {
	var b backlog
	b.push(models.URLCandidate{URL: "https://a.com/1"}, backlogList)
	b.push(models.URLCandidate{URL: "https://b.com/2"}, backlogTimeout)

	if b.len() != 2 {
		t.Fatalf("len = %d, want 2", b.len())
	}

	first, ok := b.pop()
	if !ok {
		t.Fatal("pop returned ok = false")
	}
	if first.candidate.URL != "https://a.com/1" || first.kind != backlogList {
		t.Errorf("first = %+v, want a.com list entry", first)
	}
	if b.len() != 1 {
		t.Errorf("len after pop = %d, want 1", b.len())
	}

	second, _ := b.pop()
	if second.kind != backlogTimeout {
		t.Errorf("second.kind = %d, want backlogTimeout", second.kind)
	}

	if _, ok := b.pop(); ok {
		t.Error("pop on empty backlog returned ok = true")
	}
}
