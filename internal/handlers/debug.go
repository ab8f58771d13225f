package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/observability"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/publish-test", func(c *gin.Context) {
		requestID := observability.RequestIDFromRequest(c.Request)
		err := observability.PublishEvent(c.Request.Context(), "debug.test", observability.EventEnvelope{
			EventType: "debug",
			EventName: "publish_test",
			Payload:   map[string]interface{}{"request_id": requestID},
		}, observability.BuildHeaders(requestID, ""))
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "publish failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
