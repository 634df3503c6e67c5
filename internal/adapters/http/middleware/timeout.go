package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultRequestTimeout applies when Timeout is given a non-positive value.
const DefaultRequestTimeout = 30 * time.Second

// Timeout puts a deadline on the request context. Handlers keep running past
// it, but every storage call fails fast and open transactions roll back.
func Timeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		d = DefaultRequestTimeout
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
