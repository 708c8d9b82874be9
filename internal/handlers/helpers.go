package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// sessionUIDFromContext pulls the session UID set by the token middleware.
func sessionUIDFromContext(c *gin.Context) (uuid.UUID, error) {
	value, exists := c.Get("session_uid")
	if !exists {
		return uuid.Nil, errors.New("session_uid not set in context")
	}
	uid, ok := value.(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("session_uid has unexpected type")
	}
	return uid, nil
}
