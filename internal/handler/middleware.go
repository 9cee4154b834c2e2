package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/araozmd/ancdotario-user-service/pkg/log"
	"github.com/araozmd/ancdotario-user-service/pkg/response"
)

// RateLimit rejects requests above requestsPerSecond with 429. The limiter
// is shared across all clients: in production API Gateway throttles per
// caller, so this only has to protect the development server as a whole.
func RateLimit(requestsPerSecond float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			log.Ctx(c.Request.Context()).Warn().Msg("rate limit exceeded")
			response.TooManyRequests(c, fmt.Sprintf("too many requests, limit is %.0f per second", requestsPerSecond))
			c.Abort()
			return
		}
		c.Next()
	}
}

// MaxBodyBytes caps the request body size. API Gateway enforces a 10 MB
// payload limit, so the development server mirrors it and oversized photo
// uploads fail the same way in both environments.
func MaxBodyBytes(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			response.PayloadTooLarge(c, fmt.Sprintf("request body exceeds %d bytes", limit))
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
