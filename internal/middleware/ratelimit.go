package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"codybuddy/internal/repository"
)

// RateLimit returns a gin middleware that limits each client IP to maxRequests per window.
// When the counter store is unreachable requests are let through.
func RateLimit(state repository.StateRepository, maxRequests int, window time.Duration) gin.HandlerFunc {
	if state == nil {
		panic("StateRepository cannot be nil for RateLimit middleware")
	}
	if maxRequests <= 0 {
		panic("maxRequests must be positive for RateLimit middleware")
	}
	if window <= 0 {
		panic("window duration must be positive for RateLimit middleware")
	}

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()

		exceeded, err := state.CheckRateLimit(c.Request.Context(), key, maxRequests, window)
		if err != nil {
			logrus.WithField("client_ip", c.ClientIP()).WithError(err).Warn("RateLimit: counter unavailable, allowing request")
			c.Next()
			return
		}
		if exceeded {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
