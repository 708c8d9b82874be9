package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/mealcraft/discovery-api/internal/config"
	"github.com/mealcraft/discovery-api/internal/models"
	"github.com/mealcraft/discovery-api/internal/pipeline"
	"github.com/mealcraft/discovery-api/internal/testutil"
)

type pipelineFunc func(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)

func (f pipelineFunc) Discover(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	return f(ctx, req)
}

func okPipeline(urls ...string) pipelineFunc {
	return func(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
		results := make([]models.QualifiedRecipe, len(urls))
		for i, u := range urls {
			results[i] = models.QualifiedRecipe{
				ParsedRecipe: models.ParsedRecipe{SourceURL: u, Title: "Recipe"},
				Qualifies:    true,
			}
		}
		return &pipeline.Result{Results: results, ExactMatchCount: len(results)}, nil
	}
}

func newTestService(p DiscoveryPipeline, repo *testutil.MockSessionRepo) *DiscoveryService {
	cfg := &config.Config{}
	return NewDiscoveryService(cfg, repo, p)
}

func TestDiscover_EmptyQueryRejected(t *testing.T) {
	s := newTestService(okPipeline(), testutil.NewMockSessionRepo())

	_, err := s.Discover(context.Background(), uuid.New(), DiscoverRequest{Query: "   "})
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestDiscover_ProfaneQueryRejected(t *testing.T) {
	s := newTestService(okPipeline(), testutil.NewMockSessionRepo())

	_, err := s.Discover(context.Background(), uuid.New(), DiscoverRequest{Query: "fucking good pasta"})
	if !errors.Is(err, ErrProfaneQuery) {
		t.Errorf("err = %v, want ErrProfaneQuery", err)
	}
}

func TestDiscover_ShownURLsBecomeExclusions(t *testing.T) {
	repo := testutil.NewMockSessionRepo()
	uid := uuid.New()
	if err := repo.RecordShownURLs(uid, []string{"https://a.com/old", "https://b.com/older"}); err != nil {
		t.Fatalf("seeding repo: %v", err)
	}

	var gotExcluded map[string]struct{}
	p := pipelineFunc(func(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
		gotExcluded = req.ExcludedURLs
		return &pipeline.Result{}, nil
	})
	s := newTestService(p, repo)

	if _, err := s.Discover(context.Background(), uid, DiscoverRequest{Query: "pasta"}); err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(gotExcluded) != 2 {
		t.Fatalf("len(excluded) = %d, want 2", len(gotExcluded))
	}
	if _, ok := gotExcluded["https://a.com/old"]; !ok {
		t.Error("previously shown URL missing from exclusions")
	}
}

func TestDiscover_RecordsSearchAndShownURLs(t *testing.T) {
	repo := testutil.NewMockSessionRepo()
	uid := uuid.New()
	s := newTestService(okPipeline("https://a.com/new", "https://b.com/new"), repo)

	resp, err := s.Discover(context.Background(), uid, DiscoverRequest{Query: "pasta"})
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if resp.DiscoveryID == "" {
		t.Error("DiscoveryID is empty")
	}
	if len(resp.Results) != 2 {
		t.Errorf("len(Results) = %d, want 2", len(resp.Results))
	}

	session, err := repo.GetSession(uid)
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if len(session.SearchHistory) != 1 || session.SearchHistory[0] != "pasta" {
		t.Errorf("SearchHistory = %v, want [pasta]", session.SearchHistory)
	}
	if len(session.ShownURLs) != 2 {
		t.Errorf("len(ShownURLs) = %d, want 2", len(session.ShownURLs))
	}
}

func TestDiscover_PipelineErrorPassedThrough(t *testing.T) {
	p := pipelineFunc(func(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
		return nil, pipeline.ErrNoSearchResults
	})
	s := newTestService(p, testutil.NewMockSessionRepo())

	_, err := s.Discover(context.Background(), uuid.New(), DiscoverRequest{Query: "pasta"})
	if !errors.Is(err, pipeline.ErrNoSearchResults) {
		t.Errorf("err = %v, want ErrNoSearchResults", err)
	}
}

func TestDiscover_QueryTrimmed(t *testing.T) {
	var gotQuery string
	p := pipelineFunc(func(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
		gotQuery = req.Query
		return &pipeline.Result{}, nil
	})
	s := newTestService(p, testutil.NewMockSessionRepo())

	if _, err := s.Discover(context.Background(), uuid.New(), DiscoverRequest{Query: "  pasta  "}); err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if gotQuery != "pasta" {
		t.Errorf("query passed to pipeline = %q, want trimmed", gotQuery)
	}
}
