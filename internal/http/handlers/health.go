package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ReadinessChecker reports whether a dependency can serve requests.
type ReadinessChecker interface {
	Ready() bool
}

type HealthHandler struct {
	db ReadinessChecker
}

func NewHealthHandler(db ReadinessChecker) *HealthHandler { return &HealthHandler{db: db} }

// GET /healthcheck
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if h.db == nil || !h.db.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting", "database": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ready"})
}
