package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mealcraft/discovery-api/internal/logger"
	"github.com/mealcraft/discovery-api/internal/models"
)

type parseStatus int

const (
	parseSuccess parseStatus = iota
	parseTimeout
	parseFailed
)

// parseOutcome is one worker's report back to the orchestrator. Workers never
// touch shared state; all merging happens on the Discover goroutine.
type parseOutcome struct {
	candidate models.URLCandidate
	status    parseStatus
	recipe    *models.ParsedRecipe
	blocked   bool
	err       error
}

// executeBatch runs one batch end to end: classify, split lists into the
// backlog, parse the recipe-typed candidates concurrently, verify only the
// newly parsed recipes, and merge qualifiers into the final set.
func (p *Pipeline) executeBatch(ctx context.Context, st *state, req Request, batch []models.URLCandidate) {
	log := logger.WithDiscoveryID(req.DiscoveryID)

	classifications, err := p.classifier.ClassifyBatch(ctx, batch)
	if err != nil {
		// Fail open: an unclassified candidate is treated as a recipe.
		log.Warn("Classification failed, treating batch as recipes", zap.Error(err))
		classifications = nil
	}

	var toParse []models.URLCandidate
	for _, cand := range batch {
		cls, ok := classifications[cand.URL]
		switch {
		case ok && cls.Kind == models.KindList:
			st.backlog.push(cand, backlogList)
		case ok && cls.Kind == models.KindOther:
			log.Debug("Dropping non-recipe candidate", zap.String("url", cand.URL))
		default:
			toParse = append(toParse, cand)
		}
	}

	outcomes := p.parseAll(ctx, st, toParse)
	parsed := p.collectBatchOutcomes(st, req, outcomes)
	p.verifyAndMerge(ctx, st, req, parsed)
}

// parseAll fans the candidates out to concurrent parse workers, bounded by
// the batch size, and gathers their outcomes in input order.
func (p *Pipeline) parseAll(ctx context.Context, st *state, candidates []models.URLCandidate) []parseOutcome {
	outcomes := make([]parseOutcome, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.BatchSize)
	parseStart := time.Now()
	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			outcomes[i] = p.parseOne(gctx, cand)
			return nil
		})
	}
	g.Wait()
	st.stats.ParseTime += time.Since(parseStart)
	return outcomes
}

// parseOne parses a single URL under the per-URL deadline and classifies the
// result into success, timeout, or failure.
func (p *Pipeline) parseOne(ctx context.Context, cand models.URLCandidate) parseOutcome {
	tctx, cancel := context.WithTimeout(ctx, p.cfg.ParseTimeout)
	defer cancel()

	recipe, err := p.parser.Parse(tctx, cand.URL)
	if err == nil && recipe != nil {
		recipe.SourceURL = cand.URL
		recipe.SearchTitle = cand.Title
		recipe.SearchSnippet = cand.Snippet
		recipe.Facts = NormalizeNutrition(recipe.Nutrition)
		return parseOutcome{candidate: cand, status: parseSuccess, recipe: recipe}
	}
	if err == nil {
		err = errors.New("parser returned no recipe")
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return parseOutcome{candidate: cand, status: parseTimeout, err: err}
	}
	return parseOutcome{candidate: cand, status: parseFailed, err: err, blocked: errors.Is(err, ErrSiteBlocked)}
}

// collectBatchOutcomes routes batch-phase outcomes: timeouts are demoted to
// the backlog for one retry, failures go straight to the report.
func (p *Pipeline) collectBatchOutcomes(st *state, req Request, outcomes []parseOutcome) []models.ParsedRecipe {
	log := logger.WithDiscoveryID(req.DiscoveryID)
	var parsed []models.ParsedRecipe
	for _, out := range outcomes {
		switch out.status {
		case parseSuccess:
			parsed = append(parsed, *out.recipe)
		case parseTimeout:
			log.Debug("Parse timed out, deferring to backlog", zap.String("url", out.candidate.URL))
			st.backlog.push(out.candidate, backlogTimeout)
		case parseFailed:
			p.recordParseFailure(st, req, out)
		}
	}
	st.stats.RecipesParsed += len(parsed)
	return parsed
}

func (p *Pipeline) recordParseFailure(st *state, req Request, out parseOutcome) {
	log := logger.WithDiscoveryID(req.DiscoveryID)
	if out.blocked {
		log.Debug("Site blocked scraping", zap.String("url", out.candidate.URL))
		st.failures.add(out.candidate.URL, ReasonBlocked, out.err.Error())
		return
	}
	log.Warn("Parse failed", zap.String("url", out.candidate.URL), zap.Error(out.err))
	st.failures.add(out.candidate.URL, ReasonParseError, out.err.Error())
}

// verifyAndMerge verifies only the recipes parsed in this round and merges
// the qualifiers into the final set, deduplicating by source URL.
func (p *Pipeline) verifyAndMerge(ctx context.Context, st *state, req Request, parsed []models.ParsedRecipe) {
	if len(parsed) == 0 {
		return
	}
	log := logger.WithDiscoveryID(req.DiscoveryID)

	verifyStart := time.Now()
	qualified, processed, err := p.verifier.Verify(ctx, parsed, req.Requirements, req.Query)
	st.stats.VerifyTime += time.Since(verifyStart)
	if err != nil {
		log.Warn("Verification failed for round", zap.Int("recipes", len(parsed)), zap.Error(err))
		return
	}
	st.procAll = append(st.procAll, processed...)
	st.stats.RecipesQualified += len(qualified)

	for _, rec := range qualified {
		if _, dup := st.seen[rec.SourceURL]; dup {
			continue
		}
		domain := models.Domain(rec.SourceURL)
		if p.cfg.MaxPerDomain > 0 && st.domains[domain] >= p.cfg.MaxPerDomain {
			log.Debug("Domain cap reached, holding recipe for fallback",
				zap.String("domain", domain), zap.String("url", rec.SourceURL))
			continue
		}
		st.seen[rec.SourceURL] = struct{}{}
		st.domains[domain]++
		st.final = append(st.final, rec)
	}
}

// processBacklog drains deferred work until the stop condition is met or the
// backlog empties. Each entry is removed before processing; a second timeout
// is terminal.
func (p *Pipeline) processBacklog(ctx context.Context, st *state, req Request, start time.Time) {
	log := logger.WithDiscoveryID(req.DiscoveryID)
	log.Info("Processing backlog", zap.Int("entries", st.backlog.len()))

	for !st.satisfied(req.NeededCount, p.cfg.DomainFloor) && ctx.Err() == nil {
		entry, ok := st.backlog.pop()
		if !ok {
			break
		}
		st.stats.BacklogProcessed++
		switch entry.kind {
		case backlogList:
			p.expandList(ctx, st, req, entry.candidate)
		case backlogTimeout:
			p.retryTimedOut(ctx, st, req, entry.candidate)
		}
		p.publish(st, req, StageBacklog, 0, start)
	}
}

// expandList fetches a roundup page, extracts up to the expansion cap of
// recipe links, and parses them in place. Expansion is flattened one level:
// extracted URLs get no further batching or backlog demotion.
func (p *Pipeline) expandList(ctx context.Context, st *state, req Request, cand models.URLCandidate) {
	log := logger.WithDiscoveryID(req.DiscoveryID)

	html, err := p.fetcher.Fetch(ctx, cand.URL)
	if err != nil {
		log.Warn("List page fetch failed", zap.String("url", cand.URL), zap.Error(err))
		st.failures.add(cand.URL, ReasonListExpansion, err.Error())
		return
	}
	extracted, err := p.expander.Expand(ctx, cand.URL, html, p.cfg.ListExpansionCap)
	if err != nil {
		log.Warn("List expansion failed", zap.String("url", cand.URL), zap.Error(err))
		st.failures.add(cand.URL, ReasonListExpansion, err.Error())
		return
	}
	if len(extracted) == 0 {
		log.Debug("List page yielded no recipe links", zap.String("url", cand.URL))
		return
	}
	log.Info("Expanded list page",
		zap.String("url", cand.URL),
		zap.Int("extracted", len(extracted)))

	outcomes := p.parseAll(ctx, st, extracted)
	var parsed []models.ParsedRecipe
	for _, out := range outcomes {
		switch out.status {
		case parseSuccess:
			parsed = append(parsed, *out.recipe)
		case parseTimeout:
			st.failures.add(out.candidate.URL, ReasonTimeout, "timed out during list expansion")
		case parseFailed:
			p.recordParseFailure(st, req, out)
		}
	}
	st.stats.RecipesParsed += len(parsed)
	p.verifyAndMerge(ctx, st, req, parsed)
}

// retryTimedOut gives a previously timed-out URL its single retry.
func (p *Pipeline) retryTimedOut(ctx context.Context, st *state, req Request, cand models.URLCandidate) {
	log := logger.WithDiscoveryID(req.DiscoveryID)

	parseStart := time.Now()
	out := p.parseOne(ctx, cand)
	st.stats.ParseTime += time.Since(parseStart)
	switch out.status {
	case parseSuccess:
		st.stats.RecipesParsed++
		p.verifyAndMerge(ctx, st, req, []models.ParsedRecipe{*out.recipe})
	case parseTimeout:
		log.Warn("Parse timed out again on retry", zap.String("url", cand.URL))
		st.failures.add(cand.URL, ReasonTimeout, "timed out twice")
	case parseFailed:
		p.recordParseFailure(st, req, out)
	}
}
