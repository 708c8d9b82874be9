package pipeline

import "time"

// ProgressEvent is a point-in-time snapshot of a running discovery, published
// after each stage so callers can stream status to the user.
type ProgressEvent struct {
	DiscoveryID string        `json:"discovery_id"`
	Stage       string        `json:"stage"`
	Batch       int           `json:"batch,omitempty"`
	Found       int           `json:"found"`
	Needed      int           `json:"needed"`
	Domains     int           `json:"domains"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Stage names published to progress sinks.
const (
	StageSearching = "searching"
	StageBatch     = "batch"
	StageBacklog   = "backlog"
	StageRanking   = "ranking"
	StageFallback  = "fallback"
	StageDone      = "done"
)

// ProgressSink receives progress events. Implementations must not block; slow
// consumers should drop events rather than stall the pipeline.
type ProgressSink interface {
	Publish(event ProgressEvent)
}

// NopSink discards all progress events.
type NopSink struct{}

// Publish implements ProgressSink.
func (NopSink) Publish(ProgressEvent) {}
