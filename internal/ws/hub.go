package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"chat-relay/internal/models"
	"chat-relay/internal/observability"
)

// Hub maintains the registry of active relay sessions.
type Hub struct {
	sessions map[SessionHandle]ConnInfo
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[SessionHandle]ConnInfo),
	}
}

// Add registers a session handle.
func (h *Hub) Add(sess SessionHandle, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[sess] = info
}

// Remove drops a session handle.
func (h *Hub) Remove(sess SessionHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sess)
}

// Count reports the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast sends an event to every connected session, including the sender.
// A session whose write fails is closed and evicted; delivery to the rest
// continues.
func (h *Hub) Broadcast(event models.RelayEvent) {
	h.mu.RLock()
	handles := make([]SessionHandle, 0, len(h.sessions))
	for sess := range h.sessions {
		handles = append(handles, sess)
	}
	h.mu.RUnlock()

	for _, sess := range handles {
		if err := sess.Send(event); err != nil {
			log.Printf("websocket write error: %v", err)
			info, _ := h.Info(sess)
			_ = sess.Close()
			h.Remove(sess)
			h.publishWSError(info, err)
		}
	}
}

// Info returns the registered connection metadata for a session.
func (h *Hub) Info(sess SessionHandle) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	info, ok := h.sessions[sess]
	return info, ok
}

func (h *Hub) publishWSError(info ConnInfo, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"ip":          info.IP,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.relay", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}
