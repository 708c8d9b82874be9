package ws

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/mealcraft/discovery-api/internal/logger"
	"github.com/mealcraft/discovery-api/internal/pipeline"
)

// ProgressPublisher forwards pipeline progress events to the hub so websocket
// watchers see the discovery advance stage by stage.
type ProgressPublisher struct {
	hub *Hub
}

// NewProgressPublisher creates a publisher bound to a hub.
func NewProgressPublisher(hub *Hub) *ProgressPublisher {
	return &ProgressPublisher{hub: hub}
}

// Publish implements pipeline.ProgressSink. Events are dropped, not queued,
// when the hub's broadcast buffer is full.
func (p *ProgressPublisher) Publish(event pipeline.ProgressEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Get().Warn("failed to marshal progress event", zap.Error(err))
		return
	}
	select {
	case p.hub.Broadcast <- &DiscoveryMessage{DiscoveryID: event.DiscoveryID, Message: payload}:
	default:
	}
}
