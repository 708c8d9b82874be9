package pipeline

import "github.com/mealcraft/discovery-api/internal/models"

// backlogKind distinguishes why an entry was deferred.
type backlogKind int

const (
	// backlogList is a roundup page awaiting expansion.
	backlogList backlogKind = iota
	// backlogTimeout is a recipe URL that timed out and gets one retry.
	backlogTimeout
)

type backlogEntry struct {
	candidate models.URLCandidate
	kind      backlogKind
}

// backlog is a FIFO of deferred work. The pipeline is its only consumer and
// every entry is removed before it is processed, so a failed retry cannot be
// picked up twice.
type backlog struct {
	entries []backlogEntry
}

func (b *backlog) push(cand models.URLCandidate, kind backlogKind) {
	b.entries = append(b.entries, backlogEntry{candidate: cand, kind: kind})
}

func (b *backlog) pop() (backlogEntry, bool) {
	if len(b.entries) == 0 {
		return backlogEntry{}, false
	}
	entry := b.entries[0]
	b.entries = b.entries[1:]
	return entry, true
}

func (b *backlog) len() int {
	return len(b.entries)
}
