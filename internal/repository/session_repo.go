package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mealcraft/discovery-api/internal/models"
)

// SessionRepo is the interface for session persistence.
type SessionRepo interface {
	GetOrCreateSession(uid uuid.UUID) (*models.Session, error)
	GetSession(uid uuid.UUID) (*models.Session, error)
	RecordShownURLs(uid uuid.UUID, urls []string) error
	RecordSearch(uid uuid.UUID, query string) error
	ClearShownURLs(uid uuid.UUID) error
	SaveMeal(uid uuid.UUID, meal *models.SavedMeal) error
}

// GormSessionRepo implements SessionRepo backed by gorm.
type GormSessionRepo struct {
	DB *gorm.DB
}

// NewGormSessionRepo creates a new GormSessionRepo.
func NewGormSessionRepo(db *gorm.DB) *GormSessionRepo {
	return &GormSessionRepo{DB: db}
}

// GetOrCreateSession loads a session by UID, creating it on first use.
func (r *GormSessionRepo) GetOrCreateSession(uid uuid.UUID) (*models.Session, error) {
	var session models.Session
	err := r.DB.Where("uid = ?", uid).First(&session).Error
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	session = models.Session{UID: uid}
	if err := r.DB.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &session, nil
}

// GetSession loads a session by UID.
func (r *GormSessionRepo) GetSession(uid uuid.UUID) (*models.Session, error) {
	var session models.Session
	err := r.DB.Preload("SavedMeals").Where("uid = ?", uid).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFoundError{message: "session not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

// RecordShownURLs appends URLs to the session's shown set, skipping
// duplicates.
func (r *GormSessionRepo) RecordShownURLs(uid uuid.UUID, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	session, err := r.GetOrCreateSession(uid)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(session.ShownURLs))
	for _, u := range session.ShownURLs {
		seen[u] = struct{}{}
	}
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		session.ShownURLs = append(session.ShownURLs, u)
	}

	if err := r.DB.Model(session).Update("shown_urls", session.ShownURLs).Error; err != nil {
		return fmt.Errorf("failed to record shown URLs: %w", err)
	}
	return nil
}

// RecordSearch appends a query to the session's search history.
func (r *GormSessionRepo) RecordSearch(uid uuid.UUID, query string) error {
	session, err := r.GetOrCreateSession(uid)
	if err != nil {
		return err
	}
	session.SearchHistory = append(session.SearchHistory, query)
	if err := r.DB.Model(session).Update("search_history", session.SearchHistory).Error; err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

// ClearShownURLs resets the session's shown-URL set.
func (r *GormSessionRepo) ClearShownURLs(uid uuid.UUID) error {
	session, err := r.GetOrCreateSession(uid)
	if err != nil {
		return err
	}
	if err := r.DB.Model(session).Update("shown_urls", nil).Error; err != nil {
		return fmt.Errorf("failed to clear shown URLs: %w", err)
	}
	return nil
}

// SaveMeal attaches a saved meal to the session.
func (r *GormSessionRepo) SaveMeal(uid uuid.UUID, meal *models.SavedMeal) error {
	session, err := r.GetOrCreateSession(uid)
	if err != nil {
		return err
	}
	meal.SessionID = session.ID
	if err := r.DB.Create(meal).Error; err != nil {
		return fmt.Errorf("failed to save meal: %w", err)
	}
	return nil
}
