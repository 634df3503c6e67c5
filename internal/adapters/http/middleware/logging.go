package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
)

// Logging writes an access line once the handler chain returns. Probes under
// /-/ and the exact paths in quiet stay silent.
func Logging(quiet ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := c.Request
		if strings.HasPrefix(req.URL.Path, "/-/") || slices.Contains(quiet, req.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ctx := req.Context()

		logging.FromContext(ctx).Log(ctx, accessLevel(status), "request completed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.RequestURI()),
			slog.String("route", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", c.Writer.Size()),
		)
	}
}

func accessLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
