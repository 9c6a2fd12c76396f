// Package handlers provides HTTP request handlers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"spareflow/internal/infrastructure/storage/postgres"
)

// Version is reported by /health/info.
const Version = "0.1.0"

// Database is what the health endpoints need from the pool.
type Database interface {
	Ping(ctx context.Context) error
	Stats() postgres.PoolStats
}

// HealthHandler provides health check endpoints. A nil database means the
// process runs on the in-memory store.
type HealthHandler struct {
	db Database
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Database) *HealthHandler {
	return &HealthHandler{db: db}
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready handles readiness probe (is the service ready to accept traffic?).
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"checks": map[string]string{"storage": "memory"},
		})
		return
	}

	if err := h.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{
				"database": "unhealthy: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{
			"database": "healthy",
		},
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	info := gin.H{
		"app":     "spareflow",
		"version": Version,
	}
	if h.db == nil {
		info["storage"] = "memory"
		c.JSON(http.StatusOK, info)
		return
	}

	stat := h.db.Stats()
	info["storage"] = "postgres"
	info["database"] = map[string]any{
		"total_conns":    stat.TotalConns,
		"acquired_conns": stat.AcquiredConns,
		"idle_conns":     stat.IdleConns,
		"max_conns":      stat.MaxConns,
	}
	c.JSON(http.StatusOK, info)
}
