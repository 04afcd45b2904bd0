package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/telemetry"
)

// DebugAuth echoes the identity resolved by the auth middleware.
func DebugAuth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"userId":   c.GetString("userID"),
		"username": usernameFromContext(c),
	})
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), usernameFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
