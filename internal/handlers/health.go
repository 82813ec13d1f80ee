package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"sipitali-server/internal/logger"
	"sipitali-server/internal/repository"
	"sipitali-server/internal/utils"
)

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	DB    repository.Pinger
	Redis *redis.Client
	Log   *logrus.Entry
}

// NewHealthHandler creates a new HealthHandler. rdb may be nil.
func NewHealthHandler(db repository.Pinger, rdb *redis.Client, log *logger.Logger) *HealthHandler {
	return &HealthHandler{DB: db, Redis: rdb, Log: log.WithComponent("health")}
}

// Live reports that the process is serving requests.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "Server is running"})
}

// Ready pings the database and, when configured, Redis. A failing database
// makes the instance unready. Redis only degrades rate limiting, so its
// failure is reported without failing the probe.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "up"}
	if err := h.DB.Ping(ctx); err != nil {
		h.Log.WithError(err).Error("Database readiness check failed")
		checks["database"] = "down"
		c.JSON(http.StatusServiceUnavailable, utils.ResponseData{
			Success: false,
			Message: "Database unavailable",
			Data:    gin.H{"checks": checks},
		})
		return
	}

	if h.Redis != nil {
		checks["redis"] = "up"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			h.Log.WithError(err).Warn("Redis readiness check failed")
			checks["redis"] = "down"
		}
	}

	utils.Success(c, "Server is ready", gin.H{"checks": checks})
}
