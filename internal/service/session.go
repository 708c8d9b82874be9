package service

import (
	"github.com/google/uuid"

	"github.com/mealcraft/discovery-api/internal/config"
	"github.com/mealcraft/discovery-api/internal/models"
	"github.com/mealcraft/discovery-api/internal/repository"
)

// SessionService handles session bookkeeping around discovery runs.
type SessionService struct {
	Cfg         *config.Config
	SessionRepo repository.SessionRepo
}

// NewSessionService creates a new SessionService.
func NewSessionService(cfg *config.Config, sessionRepo repository.SessionRepo) *SessionService {
	return &SessionService{
		Cfg:         cfg,
		SessionRepo: sessionRepo,
	}
}

// SessionResponse is the caller-facing view of a session.
type SessionResponse struct {
	UID           string             `json:"uid"`
	ShownURLCount int                `json:"shown_url_count"`
	SearchHistory []string           `json:"search_history"`
	SavedMeals    []models.SavedMeal `json:"saved_meals"`
}

// GetSession loads a session by UID.
func (s *SessionService) GetSession(uid uuid.UUID) (*SessionResponse, error) {
	session, err := s.SessionRepo.GetSession(uid)
	if err != nil {
		return nil, err
	}
	return &SessionResponse{
		UID:           session.UID.String(),
		ShownURLCount: len(session.ShownURLs),
		SearchHistory: session.SearchHistory,
		SavedMeals:    session.SavedMeals,
	}, nil
}

// ClearShownURLs resets the session's exclusion list so earlier results can
// come back.
func (s *SessionService) ClearShownURLs(uid uuid.UUID) error {
	return s.SessionRepo.ClearShownURLs(uid)
}

// SaveMeal saves a discovered recipe to the session.
func (s *SessionService) SaveMeal(uid uuid.UUID, meal *models.SavedMeal) error {
	return s.SessionRepo.SaveMeal(uid, meal)
}
