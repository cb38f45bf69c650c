package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/result-analyser-api/internal/metrics"
)

// Metrics records request counts and latencies by route template.
// Requests that match no route share one "unmatched" label.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
