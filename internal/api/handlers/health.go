package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// Health reports service liveness, dataset readiness and Redis connectivity.
func (h *Handler) Health(c *gin.Context) {
	players, _, engine := h.snapshot()

	redisStatus := "disabled"
	if h.redisClient != nil {
		redisStatus = "ok"
		if err := h.redisClient.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = "unreachable"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"service":        "fpl-assistant",
		"uptime_seconds": int(time.Since(startTime).Seconds()),
		"dataset_loaded": len(players) > 0,
		"players":        len(players),
		"current_round":  engine.CurrentRound(),
		"redis":          redisStatus,
	})
}
