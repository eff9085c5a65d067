package middleware

import (
	"strconv"
	"time"

	"aquasense-http-service/internal/infrastructure/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 统计请求数与耗时，路由标签使用注册的路径模板
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
