package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"messaging-service/internal/db"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db *sqlx.DB
}

// NewHealthHandler builds a HealthHandler.
func NewHealthHandler(database *sqlx.DB) *HealthHandler {
	return &HealthHandler{db: database}
}

// Health always reports the process as alive.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Ready reports 200 only when the backing store answers a ping.
func (h *HealthHandler) Ready(c *gin.Context) {
	if !db.Ready(h.db) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "dbReady": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "dbReady": true})
}

// Root answers the base path.
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "We are in !"})
}

// NotFound answers any unknown route.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"message": "Route does not exist"})
}
