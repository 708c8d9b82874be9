package ws

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mealcraft/discovery-api/internal/logger"
)

// ConnectedPayload confirms a successful connection.
type ConnectedPayload struct {
	Type        string `json:"type"`
	DiscoveryID string `json:"discovery_id"`
}

// WatchHandler manages WebSocket connections that stream discovery progress.
type WatchHandler struct {
	Hub       *Hub
	JwtSecret string
}

// NewWatchHandler returns a new WatchHandler.
func NewWatchHandler(hub *Hub, jwtSecret string) *WatchHandler {
	return &WatchHandler{
		Hub:       hub,
		JwtSecret: jwtSecret,
	}
}

// upgrader is configured for progress WebSocket upgrades.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		switch origin {
		case "https://mealcraft.io",
			"https://www.mealcraft.io",
			"https://api.mealcraft.io":
			return true
		}
		// Allow localhost for development
		if strings.HasPrefix(origin, "http://localhost:") || origin == "http://localhost" {
			return true
		}
		return false
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// HandleDiscoveryWatch upgrades an HTTP request to a WebSocket connection
// streaming one discovery's progress. Authentication is done via a "token"
// query parameter because WebSocket connections cannot easily use
// Authorization headers.
func (wh *WatchHandler) HandleDiscoveryWatch(c *gin.Context) {
	log := logger.Get()

	discoveryID := c.Param("discovery_id")
	if discoveryID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "discovery_id is required"})
		return
	}

	// Authenticate via query param token
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "token query parameter is required"})
		return
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(wh.JwtSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
		return
	}

	// Ensure this is an access token
	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "access" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid token type"})
		return
	}

	sessionUID, ok := claims["session_uid"].(string)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid session_uid in token"})
		return
	}

	// Upgrade to WebSocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed",
			zap.String("discovery_id", discoveryID),
			zap.String("session_uid", sessionUID),
			zap.Error(err),
		)
		return
	}

	// Create client and register with hub
	client := &Client{
		Hub:         wh.Hub,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		DiscoveryID: discoveryID,
		SessionUID:  sessionUID,
	}
	wh.Hub.Register <- client

	// Send connected confirmation
	connectedMsg, _ := json.Marshal(ConnectedPayload{
		Type:        "connected",
		DiscoveryID: discoveryID,
	})
	client.Send <- connectedMsg

	log.Info("discovery watch started",
		zap.String("discovery_id", discoveryID),
		zap.String("session_uid", sessionUID),
	)

	// Start read and write pumps
	go client.WritePump()
	go client.ReadPump()
}
