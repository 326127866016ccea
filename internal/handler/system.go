package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sddhantjaiii/calling-agent-backend/pkg/config"
)

var serverStartedAt = time.Now()

// HealthCheck health check endpoint
func (h *Handlers) HealthCheck(c *gin.Context) {
	// Check database connection
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database connection failed"})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database ping failed"})
		return
	}

	// Return health status
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// SystemStatus returns basic runtime information
func (h *Handlers) SystemStatus(c *gin.Context) {
	serverName := ""
	mode := ""
	if config.GlobalConfig != nil {
		serverName = config.GlobalConfig.ServerName
		mode = config.GlobalConfig.Mode
	}

	c.JSON(http.StatusOK, gin.H{
		"server":  serverName,
		"mode":    mode,
		"uptime":  time.Since(serverStartedAt).Round(time.Second).String(),
		"started": serverStartedAt.UTC().Format(time.RFC3339),
	})
}
