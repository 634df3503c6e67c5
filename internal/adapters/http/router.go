package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotes-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotes-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotes-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotes-service/internal/platform/config"
	"github.com/jsamuelsen/quotes-service/internal/platform/telemetry"
)

// MessageRouteNotFound is returned for unmatched paths and methods.
const MessageRouteNotFound = "route not found"

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	AppConfig  *config.AppConfig
	AuthConfig *config.AuthConfig
	CORS       config.CORSConfig

	// Backend is the X-Backend header value. Empty disables the header.
	Backend string

	HealthHandler *handlers.HealthHandler
	QuoteHandler  *handlers.QuoteHandler

	// Timeout bounds /api requests. Zero uses middleware.DefaultRequestTimeout.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery
//  2. X-Backend header
//  3. CORS, which answers preflight before routing
//  4. Request and correlation IDs
//  5. OpenTelemetry tracing and request metrics
//  6. Visitor resolution
//  7. Logging (skips /-/ probes)
//
// Route groups:
//   - /health and /-/ (probes): no auth, no timeout
//   - /api: quote endpoints with a request deadline; writes need the admin
//     role when auth is enabled
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	serviceName := "quotes-service"
	if cfg.AppConfig != nil && cfg.AppConfig.Name != "" {
		serviceName = cfg.AppConfig.Name
	}

	engine.Use(
		middleware.Recovery(),
		middleware.Backend(cfg.Backend),
		middleware.CORS(cfg.CORS),
		middleware.RequestID(),
		middleware.CorrelationID(),
		telemetry.Tracing(serviceName),
		telemetry.Metrics(),
		middleware.Visitor(),
		middleware.Logging("/health"),
	)

	engine.HandleMethodNotAllowed = false
	engine.NoRoute(routeNotFound)
	engine.NoMethod(routeNotFound)

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutes(engine)
	}

	api := engine.Group("/api", middleware.Timeout(cfg.Timeout))

	if cfg.QuoteHandler != nil {
		cfg.QuoteHandler.RegisterQuoteRoutes(api, adminGuards(cfg.AuthConfig)...)
	}
}

// adminGuards returns the middleware protecting write routes. Without auth
// the routes are open.
func adminGuards(auth *config.AuthConfig) []gin.HandlerFunc {
	if auth == nil || !auth.Enabled {
		return nil
	}

	return []gin.HandlerFunc{middleware.RequireRole(auth, middleware.RoleAdmin)}
}

func routeNotFound(c *gin.Context) {
	dto.AbortWithCode(c, dto.ErrorCodeNotFound, MessageRouteNotFound)
}
