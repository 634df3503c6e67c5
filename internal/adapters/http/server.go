// Package http wires the gin engine, middleware chain and quote routes.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotes-service/internal/platform/config"
)

// Server owns the gin engine and the net/http server in front of it.
type Server struct {
	cfg    *config.ServerConfig
	engine *gin.Engine
	srv    *http.Server
	logger *slog.Logger
}

// New builds a Server from cfg. Routes are added later through Engine.
func New(cfg *config.ServerConfig, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	// c.Done and c.Value reach the request context, so a *gin.Context can be
	// handed to services as a context.Context.
	engine.ContextWithFallback = true
	engine.Use(maxBodySize(cfg.MaxRequestSize))

	return &Server{
		cfg:    cfg,
		engine: engine,
		logger: logger.With(slog.String("component", "http.Server")),
		srv: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:           engine,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

// Engine exposes the gin engine for route registration.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Config returns the settings the server was built with.
func (s *Server) Config() *config.ServerConfig { return s.cfg }

// Addr is the configured listen address.
func (s *Server) Addr() string { return s.srv.Addr }

// Start serves in the background. The returned channel yields at most one
// error and is closed once the server stops.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)

	s.logger.Info("listening",
		slog.String("addr", s.srv.Addr),
		slog.Duration("read_timeout", s.cfg.ReadTimeout),
		slog.Duration("write_timeout", s.cfg.WriteTimeout),
	)

	go func() {
		defer close(errCh)

		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	return errCh
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.logger.Info("stopped")

	return nil
}

func maxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()
	}
}
