package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/ws"
)

// PresenceHandler exposes the connected-session count.
type PresenceHandler struct {
	hub *ws.Hub
}

// NewPresenceHandler builds a PresenceHandler.
func NewPresenceHandler(hub *ws.Hub) *PresenceHandler {
	return &PresenceHandler{hub: hub}
}

// OnlineUsers returns the number of currently connected sessions.
func (h *PresenceHandler) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.hub.Count()})
}
