package handler

import (
	"context"
	"net/http"
	"time"

	"food-wallet-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const healthCheckTimeout = 2 * time.Second

type dependencyStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthCheck handles GET /health. Dependencies are pinged concurrently,
// each under its own timeout; any failure reports 503 "degraded".
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		statuses := make([]dependencyStatus, len(checkers))

		var g errgroup.Group
		for i, chk := range checkers {
			g.Go(func() error {
				ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
				defer cancel()

				start := time.Now()
				err := chk.Ping(ctx)
				st := dependencyStatus{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
				if err != nil {
					st.Status = "unhealthy"
					st.Error = err.Error()
				}
				statuses[i] = st
				return nil
			})
		}
		_ = g.Wait()

		deps := make(map[string]dependencyStatus, len(checkers))
		status, code := "healthy", http.StatusOK
		for i, chk := range checkers {
			deps[chk.Name()] = statuses[i]
			if statuses[i].Status != "healthy" {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}

		c.JSON(code, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}

// Liveness handles GET /health/live. It never touches dependencies.
func Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
