package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pushkind/crawler-service/internal/database"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string     `json:"status"`
	Database string     `json:"database"`
	Pool     *PoolStats `json:"pool,omitempty"`
}

// PoolStats summarises the database connection pool for operators.
type PoolStats struct {
	Total    int32 `json:"total"`
	Idle     int32 `json:"idle"`
	Acquired int32 `json:"acquired"`
}

// HealthCheck handles the health check endpoint
func HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status: "ok",
	}

	// Check database connection
	if database.Pool() != nil {
		if err := database.Status(c.Request.Context()); err != nil {
			response.Database = "disconnected"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
		response.Database = "connected"
		if stat := database.Stats(); stat != nil {
			response.Pool = &PoolStats{
				Total:    stat.TotalConns(),
				Idle:     stat.IdleConns(),
				Acquired: stat.AcquiredConns(),
			}
		}
	} else {
		response.Database = "not configured"
	}

	c.JSON(http.StatusOK, response)
}
