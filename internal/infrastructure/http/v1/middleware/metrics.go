package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"paydocs/internal/infrastructure/metrics"
)

// Metrics records request counts and latency per matched route.
func Metrics(m *metrics.HTTP) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
