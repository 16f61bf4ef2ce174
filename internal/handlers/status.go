package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

// StatusResponse represents the status endpoint response
type StatusResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Version       string `json:"version"`
	Database      string `json:"database"`
	Redis         string `json:"redis"`
}

// StatusHandler reports uptime and dependency health. It answers 200 with
// per-dependency detail even when a dependency is down; load balancers use
// the health endpoint, humans use this one.
func StatusHandler(db *sqlx.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := StatusResponse{
			Status:        "ok",
			UptimeSeconds: int64(time.Since(startTime).Seconds()),
			Version:       "1.0.0",
			Database:      "ok",
			Redis:         "ok",
		}

		ctx := c.Request.Context()
		if err := db.PingContext(ctx); err != nil {
			response.Status = "degraded"
			response.Database = err.Error()
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			response.Status = "degraded"
			response.Redis = err.Error()
		}

		c.JSON(http.StatusOK, response)
	}
}

// HealthHandler is the load balancer probe: 200 only when the database
// answers.
func HealthHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
