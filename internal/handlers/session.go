package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mealcraft/discovery-api/internal/logger"
	"github.com/mealcraft/discovery-api/internal/models"
	"github.com/mealcraft/discovery-api/internal/repository"
	"github.com/mealcraft/discovery-api/internal/service"
)

// SessionHandler handles session bookkeeping requests.
type SessionHandler struct {
	Service *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{Service: sessionService}
}

// GetSession handles GET /v1/session
func (h *SessionHandler) GetSession(c *gin.Context) {
	uid, err := sessionUIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
		return
	}

	resp, err := h.Service.GetSession(uid)
	if err != nil {
		var notFound repository.NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		logger.Get().Error("failed to load session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ClearShownURLs handles DELETE /v1/session/shown-urls
func (h *SessionHandler) ClearShownURLs(c *gin.Context) {
	uid, err := sessionUIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
		return
	}

	if err := h.Service.ClearShownURLs(uid); err != nil {
		logger.Get().Error("failed to clear shown URLs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear shown URLs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Shown URLs cleared"})
}

// SaveMeal handles POST /v1/session/meals
func (h *SessionHandler) SaveMeal(c *gin.Context) {
	uid, err := sessionUIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
		return
	}

	var meal models.SavedMeal
	if err := c.ShouldBindJSON(&meal); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if meal.SourceURL == "" || meal.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and source_url are required"})
		return
	}

	if err := h.Service.SaveMeal(uid, &meal); err != nil {
		logger.Get().Error("failed to save meal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save meal"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Meal saved"})
}
