package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goaway "github.com/TwiN/go-away"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mealcraft/discovery-api/internal/config"
	"github.com/mealcraft/discovery-api/internal/logger"
	"github.com/mealcraft/discovery-api/internal/models"
	"github.com/mealcraft/discovery-api/internal/pipeline"
	"github.com/mealcraft/discovery-api/internal/repository"
	"github.com/mealcraft/discovery-api/internal/s3"
)

// ErrEmptyQuery is returned when the discovery query is blank.
var ErrEmptyQuery = errors.New("query must not be empty")

// ErrProfaneQuery is returned when the discovery query fails moderation.
var ErrProfaneQuery = errors.New("query contains inappropriate language")

// DiscoveryPipeline is the part of the pipeline the service consumes.
type DiscoveryPipeline interface {
	Discover(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// DiscoveryService runs discovery queries on behalf of sessions: it applies
// moderation, feeds the session's shown-URL set into the pipeline as an
// exclusion list, and records what the caller was shown afterwards.
type DiscoveryService struct {
	Cfg         *config.Config
	SessionRepo repository.SessionRepo
	Pipeline    DiscoveryPipeline

	profanity  *goaway.ProfanityDetector
	httpClient *http.Client
}

// NewDiscoveryService creates a new DiscoveryService.
func NewDiscoveryService(cfg *config.Config, sessionRepo repository.SessionRepo, p DiscoveryPipeline) *DiscoveryService {
	return &DiscoveryService{
		Cfg:         cfg,
		SessionRepo: sessionRepo,
		Pipeline:    p,
		profanity:   goaway.NewProfanityDetector().WithSanitizeLeetSpeak(true).WithSanitizeSpecialCharacters(true).WithSanitizeAccents(false),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// DiscoverRequest is the payload for one discovery query.
type DiscoverRequest struct {
	Query        string            `json:"query" binding:"required"`
	NeededCount  int               `json:"needed_count"`
	Requirements map[string]string `json:"requirements"`
}

// DiscoveryResponse is what the handler returns to the caller.
type DiscoveryResponse struct {
	DiscoveryID     string                   `json:"discovery_id"`
	Results         []models.QualifiedRecipe `json:"results"`
	ExactMatchCount int                      `json:"exact_match_count"`
	FallbackUsed    bool                     `json:"fallback_used"`
	Failures        pipeline.FailureReport   `json:"failures"`
	Stats           pipeline.Stats           `json:"stats"`
}

// Discover runs one discovery query for a session. URLs the session has
// already been shown are excluded up front so repeat searches surface new
// recipes.
func (s *DiscoveryService) Discover(ctx context.Context, uid uuid.UUID, req DiscoverRequest) (*DiscoveryResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if s.profanity.IsProfane(query) {
		return nil, ErrProfaneQuery
	}

	log := logger.Get().With(zap.String("session_uid", uid.String()))

	excluded := make(map[string]struct{})
	session, err := s.SessionRepo.GetOrCreateSession(uid)
	if err != nil {
		// Session bookkeeping must not take discovery down with it.
		log.Warn("failed to load session, running without exclusions", zap.Error(err))
	} else {
		for _, u := range session.ShownURLs {
			excluded[u] = struct{}{}
		}
	}

	discoveryID := uuid.New().String()
	result, err := s.Pipeline.Discover(ctx, pipeline.Request{
		Query:        query,
		NeededCount:  req.NeededCount,
		Requirements: req.Requirements,
		ExcludedURLs: excluded,
		DiscoveryID:  discoveryID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.SessionRepo.RecordSearch(uid, query); err != nil {
		log.Warn("failed to record search", zap.Error(err))
	}
	shown := make([]string, 0, len(result.Results))
	for _, rec := range result.Results {
		shown = append(shown, rec.SourceURL)
	}
	if err := s.SessionRepo.RecordShownURLs(uid, shown); err != nil {
		log.Warn("failed to record shown URLs", zap.Error(err))
	}

	if s.Cfg.EnvVars.S3Bucket != "" {
		go s.mirrorImages(discoveryID, result.Results)
	}

	return &DiscoveryResponse{
		DiscoveryID:     discoveryID,
		Results:         result.Results,
		ExactMatchCount: result.ExactMatchCount,
		FallbackUsed:    result.FallbackUsed,
		Failures:        result.Failures,
		Stats:           result.Stats,
	}, nil
}

// mirrorImages copies result images into our bucket so they survive source
// pages going away. Runs detached from the request; failures are log-only.
func (s *DiscoveryService) mirrorImages(discoveryID string, results []models.QualifiedRecipe) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log := logger.WithDiscoveryID(discoveryID)
	for i, rec := range results {
		if rec.ImageURL == "" {
			continue
		}
		imgBytes, err := s.fetchImage(ctx, rec.ImageURL)
		if err != nil {
			log.Warn("failed to fetch result image", zap.String("url", rec.ImageURL), zap.Error(err))
			continue
		}
		location, err := s3.UploadRecipeImageToS3(ctx, s.Cfg, imgBytes, s3.GenerateS3Key(discoveryID, i))
		if err != nil {
			log.Warn("failed to mirror result image", zap.String("url", rec.ImageURL), zap.Error(err))
			continue
		}
		log.Debug("mirrored result image", zap.String("location", location))
	}
}

func (s *DiscoveryService) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
}
