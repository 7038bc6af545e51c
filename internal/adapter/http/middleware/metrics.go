package middleware

import (
	"strconv"
	"time"

	"food-wallet-service/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request count and latency per matched route.
// Unmatched paths are grouped under "unmatched" to keep label cardinality bounded.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Microseconds()) / 1000)
	}
}
