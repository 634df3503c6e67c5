//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jsamuelsen/quotes-service/internal/adapters/cache"
	"github.com/jsamuelsen/quotes-service/internal/adapters/clients"
	"github.com/jsamuelsen/quotes-service/internal/adapters/clients/acl"
	apphttp "github.com/jsamuelsen/quotes-service/internal/adapters/http"
	"github.com/jsamuelsen/quotes-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotes-service/internal/adapters/postgres"
	"github.com/jsamuelsen/quotes-service/internal/adapters/postgres/migrations"
	"github.com/jsamuelsen/quotes-service/internal/app"
	"github.com/jsamuelsen/quotes-service/internal/platform/config"
	"github.com/jsamuelsen/quotes-service/internal/platform/metrics"
	"github.com/jsamuelsen/quotes-service/internal/ports"
)

const testBackend = "go-integration"

// stack is an in-process service backed by real Postgres and Redis containers.
type stack struct {
	server   *httptest.Server
	upstream *httptest.Server
	pool     *pgxpool.Pool
	redis    *cache.Redis
	closers  []func()
}

// startStack launches the containers, applies migrations and serves the
// full router on an httptest server.
func startStack(ctx context.Context) (*stack, error) {
	s := &stack{}

	pg, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("quotes"),
		tcpostgres.WithUsername("quotes"),
		tcpostgres.WithPassword("quotes"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("starting postgres: %w", err)
	}
	s.closers = append(s.closers, func() { _ = pg.Terminate(context.Background()) })

	rc, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		s.close()
		return nil, fmt.Errorf("starting redis: %w", err)
	}
	s.closers = append(s.closers, func() { _ = rc.Terminate(context.Background()) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		s.close()
		return nil, fmt.Errorf("reading dsn: %w", err)
	}

	if err := applyMigrations(dsn); err != nil {
		s.close()
		return nil, err
	}

	s.pool, err = postgres.NewPool(ctx, postgres.PoolConfig{URL: dsn, MaxConns: 20})
	if err != nil {
		s.close()
		return nil, fmt.Errorf("opening pool: %w", err)
	}
	s.closers = append(s.closers, s.pool.Close)

	addr, err := rc.Endpoint(ctx, "")
	if err != nil {
		s.close()
		return nil, fmt.Errorf("reading redis endpoint: %w", err)
	}

	s.redis, err = cache.NewRedis(ctx, cache.Config{Addr: addr, Prefix: "it:"})
	if err != nil {
		s.close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	s.closers = append(s.closers, func() { _ = s.redis.Close() })

	s.upstream = httptest.NewServer(fakeQuotable())
	s.closers = append(s.closers, s.upstream.Close)

	engine, err := s.router()
	if err != nil {
		s.close()
		return nil, err
	}

	s.server = httptest.NewServer(engine)
	s.closers = append(s.closers, s.server.Close)

	return s, nil
}

func applyMigrations(dsn string) error {
	migrator, err := migrations.New(dsn, slog.New(slog.DiscardHandler))
	if err != nil {
		return fmt.Errorf("opening migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}

	return nil
}

// router wires the same graph as cmd/service against the containers.
func (s *stack) router() (*gin.Engine, error) {
	logger := slog.New(slog.DiscardHandler)
	reg := prometheus.NewRegistry()

	recorder, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	registry := ports.NewHealthRegistry()
	_ = registry.Register(postgres.NewHealthChecker(s.pool))
	_ = registry.Register(s.redis)

	quoteRepo := postgres.NewQuoteRepository(s.pool, logger)
	ledger := postgres.NewLikeLedger(s.pool, logger)

	ranking := app.NewRankingService(app.RankingServiceConfig{
		Ranking: postgres.NewRankingRepository(s.pool, logger),
		Likes:   ledger,
		Cache:   s.redis,
		TTL:     time.Minute,
		Metrics: recorder,
		Logger:  logger,
	})

	quotes := app.NewQuoteService(app.QuoteServiceConfig{
		Quotes:      quoteRepo,
		Likes:       ledger,
		Invalidator: ranking,
		Metrics:     recorder,
		Logger:      logger,
	})

	likes := app.NewLikeService(app.LikeServiceConfig{
		Quotes:      quoteRepo,
		Likes:       ledger,
		Invalidator: ranking,
		Metrics:     recorder,
		Logger:      logger,
	})

	client, err := clients.New(upstreamClientConfig(s.upstream.URL))
	if err != nil {
		return nil, fmt.Errorf("creating upstream client: %w", err)
	}

	importer := app.NewImportService(app.ImportServiceConfig{
		Source:  acl.NewQuoteClient(acl.QuoteClientConfig{Client: client, Logger: logger}),
		Quotes:  quotes,
		Metrics: recorder,
		Logger:  logger,
	})

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.ContextWithFallback = true

	apphttp.SetupRouter(engine, apphttp.RouterConfig{
		AppConfig:  &config.AppConfig{Name: "quotes-service", Version: "it", Environment: "test"},
		AuthConfig: &config.AuthConfig{},
		CORS:       config.CORSConfig{Origins: []string{"*"}},
		Backend:    testBackend,
		HealthHandler: handlers.NewHealthHandler(handlers.HealthHandlerConfig{
			Registry:  registry,
			BuildInfo: handlers.NewBuildInfo("it", "none", "now"),
			Gatherer:  reg,
			Backend:   testBackend,
		}),
		QuoteHandler: handlers.NewQuoteHandler(handlers.QuoteHandlerConfig{
			Quotes:   quotes,
			Likes:    likes,
			Ranking:  ranking,
			Importer: importer,
		}),
		Timeout: 10 * time.Second,
	})

	return engine, nil
}

// truncate empties the catalog and drops cached rankings.
func (s *stack) truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE likes, quotes`); err != nil {
		return fmt.Errorf("truncating: %w", err)
	}

	return s.redis.Delete(ctx, app.TopWeeklyKey, app.TopAllTimeKey)
}

func (s *stack) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func upstreamClientConfig(baseURL string) *clients.Config {
	return &clients.Config{
		ServiceName: "quotable",
		BaseURL:     baseURL,
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       100 * time.Millisecond,
			HalfOpenLimit: 1,
		},
	}
}

// fakeQuotable mimics the quotable.io random endpoint.
func fakeQuotable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quotes/random" {
			http.NotFound(w, r)
			return
		}

		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit < 1 {
			limit = 1
		}

		out := make([]map[string]any, 0, limit)
		for i := range limit {
			out = append(out, map[string]any{
				"_id":     fmt.Sprintf("up-%d", i),
				"content": fmt.Sprintf("Imported wisdom number %d.", i+1),
				"author":  "Upstream Author",
				"tags":    []string{"wisdom"},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}
