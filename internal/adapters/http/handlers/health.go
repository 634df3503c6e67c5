// Package handlers contains the gin handlers of the quotes API.
package handlers

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsamuelsen/quotes-service/internal/ports"
)

// BuildInfo is served by /-/build. The first three fields come from ldflags.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

func NewBuildInfo(version, commit, buildTime string) BuildInfo {
	return BuildInfo{version, commit, buildTime, runtime.Version()}
}

type HealthHandlerConfig struct {
	Registry  ports.HealthRegistry
	BuildInfo BuildInfo

	// Gatherer backs /-/metrics. Nil uses the Prometheus default registry.
	Gatherer prometheus.Gatherer

	// Backend is the implementation marker GET /health reports.
	Backend string
}

// HealthHandler serves GET /health and the platform probes under /-/.
type HealthHandler struct {
	registry  ports.HealthRegistry
	buildInfo BuildInfo
	metrics   http.Handler
	backend   string
}

func NewHealthHandler(cfg HealthHandlerConfig) *HealthHandler {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &HealthHandler{
		registry:  cfg.Registry,
		buildInfo: cfg.BuildInfo,
		metrics:   promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		backend:   cfg.Backend,
	}
}

type statusResponse struct {
	Status  string                        `json:"status"`
	Backend string                        `json:"backend,omitempty"`
	Checks  map[string]*ports.CheckResult `json:"checks,omitempty"`
}

var alive = statusResponse{Status: "ok"}

// Health is the public liveness endpoint. It names the backend so a shared
// frontend can tell implementations apart.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, statusResponse{Status: alive.Status, Backend: h.backend})
}

// Liveness never touches dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, alive)
}

// Readiness answers 503 only when a required dependency is down. A failing
// optional one reports "degraded" with 200.
func (h *HealthHandler) Readiness(c *gin.Context) {
	result := h.registry.CheckAll(c.Request.Context())

	code := http.StatusOK
	if !result.Status.Ready() {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, statusResponse{Status: string(result.Status), Checks: result.Checks})
}

func (h *HealthHandler) BuildInfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.buildInfo)
}

// RegisterHealthRoutes mounts /health and the /-/ probe group.
func (h *HealthHandler) RegisterHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", h.Health)

	probes := engine.Group("/-")
	probes.GET("/live", h.Liveness)
	probes.GET("/ready", h.Readiness)
	probes.GET("/build", h.BuildInfoHandler)
	probes.GET("/metrics", gin.WrapH(h.metrics))
}
