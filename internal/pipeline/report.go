package pipeline

// FailureReason tags why a URL produced no recipe.
type FailureReason string

const (
	// ReasonTimeout marks a URL that exceeded the parse deadline on its
	// backlog retry.
	ReasonTimeout FailureReason = "timeout"
	// ReasonParseError marks a URL whose parse failed outright.
	ReasonParseError FailureReason = "parse_error"
	// ReasonBlocked marks a site that refused scraping.
	ReasonBlocked FailureReason = "blocked"
	// ReasonListExpansion marks a roundup page that could not be expanded.
	ReasonListExpansion FailureReason = "list_expansion"
)

// Failure records one URL that was attempted and produced nothing.
type Failure struct {
	URL     string        `json:"url"`
	Reason  FailureReason `json:"reason"`
	Message string        `json:"message,omitempty"`
}

// FailureReport aggregates every terminal failure of a discovery run. URLs
// still waiting in the backlog are not failures and never appear here.
type FailureReport struct {
	TotalFailed int       `json:"total_failed"`
	Failures    []Failure `json:"failures,omitempty"`
}

func (r *FailureReport) add(url string, reason FailureReason, message string) {
	r.Failures = append(r.Failures, Failure{URL: url, Reason: reason, Message: message})
	r.TotalFailed++
}

// CountByReason returns how many failures carry the given reason.
func (r *FailureReport) CountByReason(reason FailureReason) int {
	n := 0
	for _, f := range r.Failures {
		if f.Reason == reason {
			n++
		}
	}
	return n
}
