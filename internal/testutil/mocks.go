package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mealcraft/discovery-api/internal/models"
	"github.com/mealcraft/discovery-api/internal/pipeline"
	"github.com/mealcraft/discovery-api/internal/repository"
)

// --- MockSearcher ---

// MockSearcher is a mock implementation of pipeline.Searcher.
type MockSearcher struct {
	SearchFunc func(ctx context.Context, query string, count int, excluded map[string]struct{}) ([]models.URLCandidate, error)
}

func (m *MockSearcher) Search(ctx context.Context, query string, count int, excluded map[string]struct{}) ([]models.URLCandidate, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, count, excluded)
	}
	return nil, fmt.Errorf("Search not configured")
}

// --- MockClassifier ---

// MockClassifier is a mock implementation of pipeline.Classifier.
type MockClassifier struct {
	ClassifyBatchFunc func(ctx context.Context, batch []models.URLCandidate) (map[string]models.Classification, error)
}

func (m *MockClassifier) ClassifyBatch(ctx context.Context, batch []models.URLCandidate) (map[string]models.Classification, error) {
	if m.ClassifyBatchFunc != nil {
		return m.ClassifyBatchFunc(ctx, batch)
	}
	// Default: everything is a recipe.
	return map[string]models.Classification{}, nil
}

// --- MockParser ---

// MockParser is a mock implementation of pipeline.Parser. It records the
// URLs it was asked to parse.
type MockParser struct {
	ParseFunc func(ctx context.Context, url string) (*models.ParsedRecipe, error)

	mu     sync.Mutex
	parsed []string
}

func (m *MockParser) Parse(ctx context.Context, url string) (*models.ParsedRecipe, error) {
	m.mu.Lock()
	m.parsed = append(m.parsed, url)
	m.mu.Unlock()
	if m.ParseFunc != nil {
		return m.ParseFunc(ctx, url)
	}
	return nil, fmt.Errorf("Parse not configured")
}

// ParsedURLs returns the URLs Parse was called with, in call order.
func (m *MockParser) ParsedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.parsed...)
}

// --- MockFetcher ---

// MockFetcher is a mock implementation of pipeline.Fetcher.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, url string) (string, error)
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, url)
	}
	return "", fmt.Errorf("Fetch not configured")
}

// --- MockListExpander ---

// MockListExpander is a mock implementation of pipeline.ListExpander.
type MockListExpander struct {
	ExpandFunc func(ctx context.Context, pageURL string, html string, max int) ([]models.URLCandidate, error)
}

func (m *MockListExpander) Expand(ctx context.Context, pageURL string, html string, max int) ([]models.URLCandidate, error) {
	if m.ExpandFunc != nil {
		return m.ExpandFunc(ctx, pageURL, html, max)
	}
	return nil, fmt.Errorf("Expand not configured")
}

// --- MockVerifier ---

// MockVerifier is a mock implementation of pipeline.Verifier. The default
// qualifies every recipe at 100%.
type MockVerifier struct {
	VerifyFunc func(ctx context.Context, recipes []models.ParsedRecipe, requirements map[string]string, query string) ([]models.QualifiedRecipe, []models.QualifiedRecipe, error)
}

func (m *MockVerifier) Verify(ctx context.Context, recipes []models.ParsedRecipe, requirements map[string]string, query string) ([]models.QualifiedRecipe, []models.QualifiedRecipe, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, recipes, requirements, query)
	}
	qualified := make([]models.QualifiedRecipe, len(recipes))
	for i, rec := range recipes {
		qualified[i] = models.QualifiedRecipe{ParsedRecipe: rec, MatchPercentage: 100, Qualifies: true}
	}
	return qualified, qualified, nil
}

// --- MockRanker ---

// MockRanker is a mock implementation of pipeline.Ranker. The default keeps
// the input order.
type MockRanker struct {
	RankFunc func(ctx context.Context, recipes []models.QualifiedRecipe, query string) ([]models.QualifiedRecipe, error)
}

func (m *MockRanker) Rank(ctx context.Context, recipes []models.QualifiedRecipe, query string) ([]models.QualifiedRecipe, error) {
	if m.RankFunc != nil {
		return m.RankFunc(ctx, recipes, query)
	}
	return recipes, nil
}

// --- RecordingSink ---

// RecordingSink is a pipeline.ProgressSink that remembers every event.
type RecordingSink struct {
	mu     sync.Mutex
	events []pipeline.ProgressEvent
}

func (s *RecordingSink) Publish(event pipeline.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns the recorded events in publish order.
func (s *RecordingSink) Events() []pipeline.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pipeline.ProgressEvent(nil), s.events...)
}

// --- MockSessionRepo ---

// MockSessionRepo is an in-memory implementation of repository.SessionRepo.
type MockSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.Session
}

// NewMockSessionRepo creates an empty in-memory session repo.
func NewMockSessionRepo() *MockSessionRepo {
	return &MockSessionRepo{sessions: make(map[uuid.UUID]*models.Session)}
}

func (m *MockSessionRepo) GetOrCreateSession(uid uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[uid]; ok {
		return s, nil
	}
	s := &models.Session{UID: uid}
	m.sessions[uid] = s
	return s, nil
}

func (m *MockSessionRepo) GetSession(uid uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[uid]; ok {
		return s, nil
	}
	return nil, repository.NotFoundError{}
}

func (m *MockSessionRepo) RecordShownURLs(uid uuid.UUID, urls []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[uid]
	if !ok {
		s = &models.Session{UID: uid}
		m.sessions[uid] = s
	}
	seen := make(map[string]struct{}, len(s.ShownURLs))
	for _, u := range s.ShownURLs {
		seen[u] = struct{}{}
	}
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		s.ShownURLs = append(s.ShownURLs, u)
	}
	return nil
}

func (m *MockSessionRepo) RecordSearch(uid uuid.UUID, query string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[uid]
	if !ok {
		s = &models.Session{UID: uid}
		m.sessions[uid] = s
	}
	s.SearchHistory = append(s.SearchHistory, query)
	return nil
}

func (m *MockSessionRepo) ClearShownURLs(uid uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[uid]; ok {
		s.ShownURLs = nil
	}
	return nil
}

func (m *MockSessionRepo) SaveMeal(uid uuid.UUID, meal *models.SavedMeal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[uid]
	if !ok {
		s = &models.Session{UID: uid}
		m.sessions[uid] = s
	}
	s.SavedMeals = append(s.SavedMeals, *meal)
	return nil
}

// Compile-time interface checks.
var _ pipeline.Searcher = (*MockSearcher)(nil)
var _ pipeline.Classifier = (*MockClassifier)(nil)
var _ pipeline.Parser = (*MockParser)(nil)
var _ pipeline.Fetcher = (*MockFetcher)(nil)
var _ pipeline.ListExpander = (*MockListExpander)(nil)
var _ pipeline.Verifier = (*MockVerifier)(nil)
var _ pipeline.Ranker = (*MockRanker)(nil)
var _ pipeline.ProgressSink = (*RecordingSink)(nil)
var _ repository.SessionRepo = (*MockSessionRepo)(nil)
