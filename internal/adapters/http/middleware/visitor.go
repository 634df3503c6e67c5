package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
)

const (
	// HeaderForwardedFor carries the client chain added by proxies.
	HeaderForwardedFor = "X-Forwarded-For"

	// HeaderRealIP is set by some proxies instead of X-Forwarded-For.
	HeaderRealIP = "X-Real-IP"

	// ContextKeyVisitor is the gin context key for the resolved domain.Visitor.
	ContextKeyVisitor = "visitor"
)

// Visitor resolves the caller identity used for like deduplication and
// stores it on both the gin and request contexts.
func Visitor() gin.HandlerFunc {
	return func(c *gin.Context) {
		v := ResolveVisitor(c)

		c.Set(ContextKeyVisitor, v)

		ctx := ContextWithVisitor(c.Request.Context(), v)
		ctx = logging.WithVisitor(ctx, v.ID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// ResolveVisitor derives the visitor from forwarding headers. The first
// X-Forwarded-For entry wins, then X-Real-IP, then the loopback default.
// Addresses are not validated.
func ResolveVisitor(c *gin.Context) domain.Visitor {
	v := domain.Visitor{
		ID:        domain.DefaultVisitorID,
		UserAgent: c.GetHeader("User-Agent"),
	}

	if fwd := c.GetHeader(HeaderForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			v.ID = first
			return v
		}
	}

	if realIP := strings.TrimSpace(c.GetHeader(HeaderRealIP)); realIP != "" {
		v.ID = realIP
	}

	return v
}

// GetVisitor returns the visitor set by Visitor, resolving it from the
// request headers when the middleware was not installed.
func GetVisitor(c *gin.Context) domain.Visitor {
	if raw, ok := c.Get(ContextKeyVisitor); ok {
		if v, ok := raw.(domain.Visitor); ok {
			return v
		}
	}

	return ResolveVisitor(c)
}
