package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mealcraft/discovery-api/internal/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

// Client represents a single WebSocket connection watching one discovery.
type Client struct {
	Hub         *Hub
	Conn        *websocket.Conn
	Send        chan []byte
	DiscoveryID string
	SessionUID  string
}

// Hub maintains active discovery watchers and fans progress messages out to
// them.
type Hub struct {
	Watchers   map[string]map[*Client]bool // discoveryID -> set of clients
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan *DiscoveryMessage
	mu         sync.RWMutex
}

// DiscoveryMessage carries a message destined for one discovery's watchers.
type DiscoveryMessage struct {
	DiscoveryID string
	Message     []byte
}

// NewHub creates and returns a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		Watchers:   make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan *DiscoveryMessage, 64),
	}
}

// Run handles register, unregister, and broadcast events. It should be
// launched as a goroutine.
func (h *Hub) Run() {
	log := logger.Get()

	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if h.Watchers[client.DiscoveryID] == nil {
				h.Watchers[client.DiscoveryID] = make(map[*Client]bool)
			}
			h.Watchers[client.DiscoveryID][client] = true
			h.mu.Unlock()

			log.Info("watcher registered",
				zap.String("discovery_id", client.DiscoveryID),
				zap.String("session_uid", client.SessionUID),
			)

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.Watchers[client.DiscoveryID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.Watchers, client.DiscoveryID)
					}
				}
			}
			h.mu.Unlock()

			log.Info("watcher unregistered",
				zap.String("discovery_id", client.DiscoveryID),
				zap.String("session_uid", client.SessionUID),
			)

		case msg := <-h.Broadcast:
			h.mu.RLock()
			clients := h.Watchers[msg.DiscoveryID]
			for client := range clients {
				select {
				case client.Send <- msg.Message:
				default:
					// Client's send buffer is full; disconnect it.
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.Watchers[msg.DiscoveryID], client)
					close(client.Send)
					if len(h.Watchers[msg.DiscoveryID]) == 0 {
						delete(h.Watchers, msg.DiscoveryID)
					}
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ReadPump reads messages from the WebSocket connection. It is intended to be
// run in a per-client goroutine. Watchers only listen, so incoming messages
// are discarded; the pump exists to process pongs and detect closes.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				logger.Get().Warn("unexpected websocket close",
					zap.String("discovery_id", c.DiscoveryID),
					zap.String("session_uid", c.SessionUID),
					zap.Error(err),
				)
			}
			break
		}
	}
}

// WritePump sends messages from the Send channel to the WebSocket connection.
// It also sends periodic pings to keep the connection alive. It is intended to
// be run in a per-client goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
