package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jsamuelsen/quotes-service/internal/adapters/cache"
	"github.com/jsamuelsen/quotes-service/internal/adapters/clients"
	"github.com/jsamuelsen/quotes-service/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotes-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotes-service/internal/adapters/postgres"
	"github.com/jsamuelsen/quotes-service/internal/adapters/postgres/migrations"
	"github.com/jsamuelsen/quotes-service/internal/app"
	"github.com/jsamuelsen/quotes-service/internal/platform/config"
	"github.com/jsamuelsen/quotes-service/internal/platform/metrics"
	"github.com/jsamuelsen/quotes-service/internal/ports"
)

// cacheKeyPrefix namespaces ranking entries in a shared Redis.
const cacheKeyPrefix = "quotes:"

type dependencies struct {
	health *handlers.HealthHandler
	quotes *handlers.QuoteHandler
}

// wire builds storage, services and handlers. Everything it opens is
// registered on cleanup.
func wire(ctx context.Context, cfg *config.Config, logger *slog.Logger, cleanup *closers) (*dependencies, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	recorder, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	health := ports.NewHealthRegistry()

	if cfg.Database.MigrateOnStart {
		if err := migrate(cfg.Database.URL, logger); err != nil {
			return nil, err
		}
	}

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	cleanup.add("database pool", func() error { pool.Close(); return nil })

	rc, err := rankingCache(ctx, &cfg.Cache, logger, cleanup)
	if err != nil {
		return nil, err
	}

	quoteClient, err := quoteSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	for _, checker := range []ports.HealthChecker{postgres.NewHealthChecker(pool), quoteClient} {
		if err := health.Register(checker); err != nil {
			return nil, fmt.Errorf("registering %s health check: %w", checker.Name(), err)
		}
	}

	if checker, ok := rc.(ports.HealthChecker); ok {
		if err := health.Register(checker); err != nil {
			return nil, fmt.Errorf("registering cache health check: %w", err)
		}
	}

	quoteRepo := postgres.NewQuoteRepository(pool, logger)
	likes := postgres.NewLikeLedger(pool, logger)

	ranking := app.NewRankingService(app.RankingServiceConfig{
		Ranking: postgres.NewRankingRepository(pool, logger),
		Likes:   likes,
		Cache:   rc,
		TTL:     cfg.Cache.TTL,
		Metrics: recorder,
		Logger:  logger,
	})

	quotes := app.NewQuoteService(app.QuoteServiceConfig{
		Quotes:      quoteRepo,
		Likes:       likes,
		Invalidator: ranking,
		Metrics:     recorder,
		Logger:      logger,
	})

	return &dependencies{
		health: handlers.NewHealthHandler(handlers.HealthHandlerConfig{
			Registry:  health,
			BuildInfo: handlers.NewBuildInfo(Version, Commit, BuildTime),
			Gatherer:  reg,
			Backend:   cfg.Backend.Header,
		}),
		quotes: handlers.NewQuoteHandler(handlers.QuoteHandlerConfig{
			Quotes: quotes,
			Likes: app.NewLikeService(app.LikeServiceConfig{
				Quotes:      quoteRepo,
				Likes:       likes,
				Invalidator: ranking,
				Metrics:     recorder,
				Logger:      logger,
			}),
			Ranking: ranking,
			Importer: app.NewImportService(app.ImportServiceConfig{
				Source:  quoteClient,
				Quotes:  quotes,
				Metrics: recorder,
				Logger:  logger,
			}),
		}),
	}, nil
}

// migrate applies pending schema migrations.
func migrate(databaseURL string, logger *slog.Logger) error {
	migrator, err := migrations.New(databaseURL, logger)
	if err != nil {
		return fmt.Errorf("opening migrator: %w", err)
	}

	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Warn("closing migrator", slog.Any("error", err))
		}
	}()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	return nil
}

// rankingCache returns a Redis cache when enabled and a no-op otherwise, so
// the ranking service never has to nil-check.
func rankingCache(ctx context.Context, cfg *config.CacheConfig, logger *slog.Logger, cleanup *closers) (ports.Cache, error) {
	if !cfg.Enabled {
		logger.Info("ranking cache disabled")
		return cache.Noop{}, nil
	}

	rdb, err := cache.NewRedis(ctx, cache.Config{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Prefix:   cacheKeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	cleanup.add("redis", rdb.Close)

	return rdb, nil
}

// quoteSource builds the upstream provider behind the admin import endpoint.
func quoteSource(cfg *config.Config, logger *slog.Logger) (*acl.QuoteClient, error) {
	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Services.Quote.BaseURL,
		ServiceName: cfg.Services.Quote.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}

	return acl.NewQuoteClient(acl.QuoteClientConfig{Client: httpClient, Logger: logger}), nil
}
