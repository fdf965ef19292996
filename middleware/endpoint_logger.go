package middleware

import (
	"fmt"
	"time"

	"github.com/ariebrainware/mindery/util"
	"github.com/gin-gonic/gin"
)

// EndpointCallLogger records every request as an ENDPOINT_CALL event. The
// caller's email is resolved through the contact cache when authenticated.
func EndpointCallLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()

		details := map[string]interface{}{
			"method":      c.Request.Method,
			"route":       c.FullPath(),
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			details["query"] = q
		}

		var userID, email string
		if id, ok := GetUserID(c); ok {
			userID = fmt.Sprintf("%d", id)
			email = util.GetUserEmail(GetDB(c), id)
		}
		if role, ok := GetRole(c); ok {
			details["role"] = role
		}

		util.LogSecurityEvent(util.SecurityEvent{
			EventType: util.EventEndpointCall,
			UserID:    userID,
			Email:     email,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Message:   fmt.Sprintf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status),
			Details:   details,
		})
	}
}
