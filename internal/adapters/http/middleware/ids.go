package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
)

const (
	// HeaderRequestID identifies a single request.
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID tracks one business transaction across services.
	HeaderCorrelationID = "X-Correlation-ID"

	// ContextKeyRequestID is the gin context key for the request ID.
	ContextKeyRequestID = "request_id"

	// ContextKeyCorrelationID is the gin context key for the correlation ID.
	ContextKeyCorrelationID = "correlation_id"
)

type idEnricher func(ctx context.Context, id string) context.Context

// RequestID extracts X-Request-ID or generates a UUID. The id is echoed in
// the response, stored on the gin context and attached to the request
// context for the logger and outbound clients.
func RequestID() gin.HandlerFunc {
	return idMiddleware(HeaderRequestID, ContextKeyRequestID,
		logging.WithRequestID, ContextWithRequestID)
}

// CorrelationID does the same for X-Correlation-ID.
func CorrelationID() gin.HandlerFunc {
	return idMiddleware(HeaderCorrelationID, ContextKeyCorrelationID,
		logging.WithCorrelationID, ContextWithCorrelationID)
}

// GetRequestID returns the request ID, or "" outside the middleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// GetCorrelationID returns the correlation ID, or "" outside the middleware.
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(ContextKeyCorrelationID)
}

func idMiddleware(header, key string, enrichers ...idEnricher) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(key, id)
		c.Header(header, id)

		ctx := c.Request.Context()
		for _, enrich := range enrichers {
			ctx = enrich(ctx, id)
		}

		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
