package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotes-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
)

// Recovery converts a panic anywhere below it into a logged 500. Register it
// first so every other middleware is covered.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				recovered(c, r)
			}
		}()

		c.Next()
	}
}

func recovered(c *gin.Context, value any) {
	traceID := dto.GetTraceID(c)

	logging.FromContext(c.Request.Context()).Error("panic recovered",
		slog.Any("error", value),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("trace_id", traceID),
		slog.String("stack", string(debug.Stack())),
	)

	// Headers already went out; all that is left is to stop the chain.
	if c.Writer.Written() {
		c.Abort()
		return
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError,
		dto.NewErrorResponse(dto.ErrorCodeInternal, dto.MessageInternal).WithTraceID(traceID))
}
