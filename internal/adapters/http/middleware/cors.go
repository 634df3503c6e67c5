package middleware

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotes-service/internal/platform/config"
)

const corsMaxAge = 12 * time.Hour

// CORS answers preflight requests for every path and decorates responses
// with the allowed origin. An empty origin list or "*" allows any origin.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			HeaderRequestID, HeaderCorrelationID,
		},
		ExposeHeaders:    []string{HeaderRequestID, HeaderCorrelationID, HeaderBackend},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           corsMaxAge,
	}

	if len(cfg.Origins) == 0 || slices.Contains(cfg.Origins, "*") {
		// Credentials cannot be combined with a wildcard, so reflect the origin instead.
		if cfg.AllowCredentials {
			c.AllowOriginFunc = func(string) bool { return true }
		} else {
			c.AllowAllOrigins = true
		}
	} else {
		c.AllowOrigins = cfg.Origins
	}

	return cors.New(c)
}
