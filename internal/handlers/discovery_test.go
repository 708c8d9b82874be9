package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mealcraft/discovery-api/internal/config"
	"github.com/mealcraft/discovery-api/internal/models"
	"github.com/mealcraft/discovery-api/internal/pipeline"
	"github.com/mealcraft/discovery-api/internal/service"
	"github.com/mealcraft/discovery-api/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPipeline struct {
	result *pipeline.Result
	err    error
}

func (s *stubPipeline) Discover(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	return s.result, s.err
}

// withSessionUID simulates the token middleware having run.
func withSessionUID(uid uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("session_uid", uid)
		c.Next()
	}
}

func newTestDiscoveryHandler(p service.DiscoveryPipeline) *DiscoveryHandler {
	repo := testutil.NewMockSessionRepo()
	cfg := &config.Config{}
	svc := service.NewDiscoveryService(cfg, repo, p)
	return NewDiscoveryHandler(svc)
}

func TestDiscover_Handler_Success(t *testing.T) {
	p := &stubPipeline{
		result: &pipeline.Result{
			Results: []models.QualifiedRecipe{
				{ParsedRecipe: models.ParsedRecipe{SourceURL: "https://a.com/pasta", Title: "Pasta"}, Qualifies: true},
			},
			ExactMatchCount: 1,
		},
	}
	handler := newTestDiscoveryHandler(p)

	r := gin.New()
	r.POST("/discover", withSessionUID(uuid.New()), handler.Discover)

	body := `{"query": "weeknight pasta", "needed_count": 5}`
	req := httptest.NewRequest("POST", "/discover", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d. body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["discovery_id"] == nil || resp["discovery_id"] == "" {
		t.Error("response should contain 'discovery_id'")
	}
	if resp["results"] == nil {
		t.Error("response should contain 'results'")
	}
}

func TestDiscover_Handler_MissingSession(t *testing.T) {
	handler := newTestDiscoveryHandler(&stubPipeline{result: &pipeline.Result{}})

	r := gin.New()
	r.POST("/discover", handler.Discover)

	req := httptest.NewRequest("POST", "/discover", strings.NewReader(`{"query": "pasta"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestDiscover_Handler_MissingQuery(t *testing.T) {
	handler := newTestDiscoveryHandler(&stubPipeline{result: &pipeline.Result{}})

	r := gin.New()
	r.POST("/discover", withSessionUID(uuid.New()), handler.Discover)

	req := httptest.NewRequest("POST", "/discover", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDiscover_Handler_NoResults(t *testing.T) {
	handler := newTestDiscoveryHandler(&stubPipeline{err: pipeline.ErrNoSearchResults})

	r := gin.New()
	r.POST("/discover", withSessionUID(uuid.New()), handler.Discover)

	req := httptest.NewRequest("POST", "/discover", strings.NewReader(`{"query": "pasta"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestDiscover_Handler_ProfaneQuery(t *testing.T) {
	handler := newTestDiscoveryHandler(&stubPipeline{result: &pipeline.Result{}})

	r := gin.New()
	r.POST("/discover", withSessionUID(uuid.New()), handler.Discover)

	req := httptest.NewRequest("POST", "/discover", strings.NewReader(`{"query": "fucking pasta"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
