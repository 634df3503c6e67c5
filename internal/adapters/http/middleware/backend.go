package middleware

import "github.com/gin-gonic/gin"

// HeaderBackend names the implementation that served the response.
const HeaderBackend = "X-Backend"

// Backend sets X-Backend on every response. An empty value disables it.
func Backend(value string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if value != "" {
			c.Header(HeaderBackend, value)
		}

		c.Next()
	}
}
