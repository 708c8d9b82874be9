package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mealcraft/discovery-api/internal/logger"
	"github.com/mealcraft/discovery-api/internal/pipeline"
	"github.com/mealcraft/discovery-api/internal/service"
)

// DiscoveryHandler handles recipe discovery requests.
type DiscoveryHandler struct {
	Service *service.DiscoveryService
}

// NewDiscoveryHandler creates a new DiscoveryHandler.
func NewDiscoveryHandler(discoveryService *service.DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{Service: discoveryService}
}

// Discover handles POST /v1/discover
func (h *DiscoveryHandler) Discover(c *gin.Context) {
	uid, err := sessionUIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
		return
	}

	var req service.DiscoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	resp, err := h.Service.Discover(c.Request.Context(), uid, req)
	switch {
	case errors.Is(err, service.ErrEmptyQuery), errors.Is(err, service.ErrProfaneQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, pipeline.ErrNoSearchResults):
		c.JSON(http.StatusNotFound, gin.H{"error": "No results found for this query"})
		return
	case err != nil:
		logger.Get().Error("discovery failed", zap.String("query", req.Query), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run discovery"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
