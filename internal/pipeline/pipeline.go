package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mealcraft/discovery-api/internal/logger"
	"github.com/mealcraft/discovery-api/internal/models"
)

const (
	defaultBatchSize    = 10
	defaultParseTimeout = 25 * time.Second
	defaultSearchCount  = 45
	defaultNeededCount  = 5
	defaultExpansionCap = 10
	defaultDomainFloor  = 3
)

// Config tunes the pipeline. Zero values fall back to the defaults above.
type Config struct {
	// BatchSize caps each batch and bounds parse concurrency.
	BatchSize int
	// ParseTimeout is the per-URL parse deadline.
	ParseTimeout time.Duration
	// SearchCount is how many candidates to request from search.
	SearchCount int
	// ListExpansionCap limits candidates extracted from one roundup page.
	ListExpansionCap int
	// MaxPerDomain, when positive, caps how many results a single domain
	// may contribute to the final set.
	MaxPerDomain int
	// DomainFloor is the minimum distinct domains required for early exit.
	DomainFloor int
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.ParseTimeout <= 0 {
		c.ParseTimeout = defaultParseTimeout
	}
	if c.SearchCount <= 0 {
		c.SearchCount = defaultSearchCount
	}
	if c.ListExpansionCap <= 0 {
		c.ListExpansionCap = defaultExpansionCap
	}
	if c.DomainFloor <= 0 {
		c.DomainFloor = defaultDomainFloor
	}
	return c
}

// Request is one discovery query.
type Request struct {
	Query        string
	NeededCount  int
	Requirements map[string]string
	// ExcludedURLs are URLs already shown to the caller in this session.
	ExcludedURLs map[string]struct{}
	DiscoveryID  string
}

// Stats records per-stage effort for one discovery run.
type Stats struct {
	CandidatesSearched int           `json:"candidates_searched"`
	BatchesExecuted    int           `json:"batches_executed"`
	BacklogProcessed   int           `json:"backlog_processed"`
	RecipesParsed      int           `json:"recipes_parsed"`
	RecipesQualified   int           `json:"recipes_qualified"`
	SearchTime         time.Duration `json:"search_time"`
	ParseTime          time.Duration `json:"parse_time"`
	VerifyTime         time.Duration `json:"verify_time"`
	RankTime           time.Duration `json:"rank_time"`
	Elapsed            time.Duration `json:"elapsed"`
}

// Result is the outcome of one discovery run.
type Result struct {
	Results []models.QualifiedRecipe `json:"results"`
	// ExactMatchCount is how many leading entries fully qualified; the
	// rest, if any, are fallback closest matches.
	ExactMatchCount int           `json:"exact_match_count"`
	FallbackUsed    bool          `json:"fallback_used"`
	Failures        FailureReport `json:"failures"`
	Stats           Stats         `json:"stats"`
}

// Pipeline orchestrates search, classification, parsing, verification, and
// ranking into one discovery run. All collaborator I/O happens behind the
// interfaces; the pipeline itself only schedules and merges.
type Pipeline struct {
	searcher   Searcher
	classifier Classifier
	parser     Parser
	fetcher    Fetcher
	expander   ListExpander
	verifier   Verifier
	ranker     Ranker
	sink       ProgressSink
	cfg        Config
}

// New builds a Pipeline. A nil sink discards progress events.
func New(searcher Searcher, classifier Classifier, parser Parser, fetcher Fetcher, expander ListExpander, verifier Verifier, ranker Ranker, sink ProgressSink, cfg Config) *Pipeline {
	if sink == nil {
		sink = NopSink{}
	}
	return &Pipeline{
		searcher:   searcher,
		classifier: classifier,
		parser:     parser,
		fetcher:    fetcher,
		expander:   expander,
		verifier:   verifier,
		ranker:     ranker,
		sink:       sink,
		cfg:        cfg.withDefaults(),
	}
}

// state is the mutable book-keeping of one run. It is touched only by the
// Discover goroutine; parse workers hand their outcomes back before any
// merge happens.
type state struct {
	final    []models.QualifiedRecipe
	procAll  []models.QualifiedRecipe
	seen     map[string]struct{}
	domains  map[string]int
	backlog  backlog
	failures FailureReport
	stats    Stats
}

func newState() *state {
	return &state{
		seen:    make(map[string]struct{}),
		domains: make(map[string]int),
	}
}

// satisfied reports whether the run can stop early: enough results and
// enough distinct domains.
func (st *state) satisfied(needed, floor int) bool {
	return len(st.final) >= needed && len(st.domains) >= floor
}

// Discover runs the full pipeline for one query. It returns ErrNoSearchResults
// when search yields nothing; every other failure is absorbed into the
// failure report and the run keeps going with whatever survived.
func (p *Pipeline) Discover(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if req.NeededCount <= 0 {
		req.NeededCount = defaultNeededCount
	}
	log := logger.WithDiscoveryID(req.DiscoveryID)
	log.Info("Starting recipe discovery",
		zap.String("query", req.Query),
		zap.Int("needed", req.NeededCount),
		zap.Int("excluded", len(req.ExcludedURLs)))

	st := newState()

	p.publish(st, req, StageSearching, 0, start)
	searchStart := time.Now()
	candidates, err := p.searcher.Search(ctx, req.Query, p.cfg.SearchCount, req.ExcludedURLs)
	st.stats.SearchTime = time.Since(searchStart)
	if err != nil {
		log.Error("Search failed", zap.Error(err))
		return &Result{Failures: st.failures, Stats: st.stats}, ErrNoSearchResults
	}
	candidates = pruneBlocked(candidates)
	if len(candidates) == 0 {
		log.Warn("Search returned no usable candidates", zap.String("query", req.Query))
		return &Result{Failures: st.failures, Stats: st.stats}, ErrNoSearchResults
	}
	st.stats.CandidatesSearched = len(candidates)

	batches := buildBatches(candidates, p.cfg.BatchSize)
	log.Info("Scheduled candidate batches",
		zap.Int("candidates", len(candidates)),
		zap.Int("batches", len(batches)))

	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		p.executeBatch(ctx, st, req, batch)
		st.stats.BatchesExecuted++
		p.publish(st, req, StageBatch, i+1, start)
		if st.satisfied(req.NeededCount, p.cfg.DomainFloor) {
			log.Info("Early exit after batch",
				zap.Int("batch", i+1),
				zap.Int("found", len(st.final)),
				zap.Int("domains", len(st.domains)))
			break
		}
	}

	if len(st.final) < req.NeededCount && st.backlog.len() > 0 && ctx.Err() == nil {
		p.processBacklog(ctx, st, req, start)
	}

	p.publish(st, req, StageRanking, 0, start)
	p.rankFinal(ctx, st, req)
	if len(st.final) > req.NeededCount {
		st.final = st.final[:req.NeededCount]
	}
	exact := len(st.final)

	fallbackUsed := false
	if len(st.final) < req.NeededCount {
		p.publish(st, req, StageFallback, 0, start)
		fallbackUsed = p.fillClosestMatches(st, req.NeededCount)
	}

	st.stats.Elapsed = time.Since(start)
	p.publish(st, req, StageDone, 0, start)
	log.Info("Discovery finished",
		zap.Int("results", len(st.final)),
		zap.Int("exact", exact),
		zap.Bool("fallback", fallbackUsed),
		zap.Int("failed", st.failures.TotalFailed),
		zap.Duration("elapsed", st.stats.Elapsed))

	return &Result{
		Results:         st.final,
		ExactMatchCount: exact,
		FallbackUsed:    fallbackUsed,
		Failures:        st.failures,
		Stats:           st.stats,
	}, nil
}

// rankFinal reorders the final set by relevance. A ranker failure keeps the
// accumulated order.
func (p *Pipeline) rankFinal(ctx context.Context, st *state, req Request) {
	if len(st.final) < 2 {
		return
	}
	rankStart := time.Now()
	ranked, err := p.ranker.Rank(ctx, st.final, req.Query)
	st.stats.RankTime = time.Since(rankStart)
	if err != nil || len(ranked) != len(st.final) {
		logger.WithDiscoveryID(req.DiscoveryID).Warn("Ranking failed, keeping accumulated order", zap.Error(err))
		return
	}
	st.final = ranked
}

// pruneBlocked drops candidates from social/video sites that never parse.
func pruneBlocked(candidates []models.URLCandidate) []models.URLCandidate {
	kept := candidates[:0]
	for _, cand := range candidates {
		if IsBlockedSite(cand.URL) {
			continue
		}
		kept = append(kept, cand)
	}
	return kept
}

func (p *Pipeline) publish(st *state, req Request, stage string, batch int, start time.Time) {
	p.sink.Publish(ProgressEvent{
		DiscoveryID: req.DiscoveryID,
		Stage:       stage,
		Batch:       batch,
		Found:       len(st.final),
		Needed:      req.NeededCount,
		Domains:     len(st.domains),
		Elapsed:     time.Since(start),
	})
}
