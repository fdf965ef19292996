package middleware

import (
	"strconv"
	"time"

	"github.com/ariebrainware/mindery/util"
	"github.com/gin-gonic/gin"
)

// RequestMetrics records request count and latency per matched route.
// Unmatched paths share one label so arbitrary URLs cannot grow the series.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		util.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		util.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
