// Command service runs the quotes HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jsamuelsen/quotes-service/internal/adapters/http"
	"github.com/jsamuelsen/quotes-service/internal/platform/config"
	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
	"github.com/jsamuelsen/quotes-service/internal/platform/telemetry"
)

// Set with -ldflags "-X main.Version=... -X main.Commit=... -X main.BuildTime=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// .env is for local runs only; a missing file is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load(profile())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("backend", cfg.Backend.Header),
	)

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
		Insecure:     cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	var cleanup closers
	defer cleanup.run(logger)

	cleanup.add("telemetry", func() error { return tel.Shutdown(context.WithoutCancel(ctx)) })

	deps, err := wire(ctx, cfg, logger, &cleanup)
	if err != nil {
		return err
	}

	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.RouterConfig{
		AppConfig:     &cfg.App,
		AuthConfig:    &cfg.Auth,
		CORS:          cfg.CORS,
		Backend:       cfg.Backend.Header,
		HealthHandler: deps.health,
		QuoteHandler:  deps.quotes,
		Timeout:       cfg.Server.WriteTimeout,
	})

	return serve(ctx, logger, server, cfg.Server.ShutdownTimeout)
}

// profile picks the config overlay. APP_ENVIRONMENT defaults to local.
func profile() string {
	if p := os.Getenv("APP_ENVIRONMENT"); p != "" {
		return p
	}

	return "local"
}

func newLogger(cfg *config.Config) *slog.Logger {
	f := cfg.Log.File

	return logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    f.Enabled,
			Path:       f.Path,
			MaxSizeMB:  f.MaxSizeMB,
			MaxBackups: f.MaxBackups,
			MaxAgeDays: f.MaxAgeDays,
			Compress:   f.Compress,
		},
	})
}

// serve runs the server until it fails or SIGINT/SIGTERM arrives, then
// drains in-flight requests within grace.
func serve(ctx context.Context, logger *slog.Logger, server *http.Server, grace time.Duration) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-server.Start():
		return fmt.Errorf("server error: %w", err)
	case <-sigCtx.Done():
		logger.Info("shutdown requested", slog.Duration("grace", grace))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}

// closers releases resources in reverse order of acquisition.
type closers []struct {
	name string
	fn   func() error
}

func (c *closers) add(name string, fn func() error) {
	*c = append(*c, struct {
		name string
		fn   func() error
	}{name, fn})
}

func (c closers) run(logger *slog.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].fn(); err != nil {
			logger.Warn("closing "+c[i].name, slog.Any("error", err))
		}
	}
}
