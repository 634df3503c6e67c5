package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotes-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotes-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotes-service/internal/app"
	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/mocks"
	"github.com/jsamuelsen/quotes-service/internal/platform/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServerConfig() *config.ServerConfig {
	return &config.ServerConfig{
		Host:           "127.0.0.1",
		Port:           0,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    30 * time.Second,
		MaxRequestSize: 1 << 20,
	}
}

type routerFixture struct {
	quotes *mocks.MockQuoteRepository
	likes  *mocks.MockLikeLedger
	engine *gin.Engine
}

func newRouterFixture(t *testing.T, auth *config.AuthConfig) *routerFixture {
	t.Helper()

	f := &routerFixture{
		quotes: mocks.NewMockQuoteRepository(t),
		likes:  mocks.NewMockLikeLedger(t),
		engine: gin.New(),
	}

	ranking := app.NewRankingService(app.RankingServiceConfig{
		Ranking: mocks.NewMockRankingRepository(t),
		Likes:   f.likes,
		Logger:  discardLogger(),
	})
	quoteHandler := handlers.NewQuoteHandler(handlers.QuoteHandlerConfig{
		Quotes: app.NewQuoteService(app.QuoteServiceConfig{
			Quotes: f.quotes, Likes: f.likes, Invalidator: ranking, Logger: discardLogger(),
		}),
		Likes: app.NewLikeService(app.LikeServiceConfig{
			Quotes: f.quotes, Likes: f.likes, Invalidator: ranking, Logger: discardLogger(),
		}),
		Ranking: ranking,
	})

	SetupRouter(f.engine, RouterConfig{
		AppConfig:     &config.AppConfig{Name: "quotes-test", Environment: "test", Version: "1.0.0"},
		AuthConfig:    auth,
		CORS:          config.CORSConfig{Origins: []string{"*"}},
		Backend:       "go",
		HealthHandler: handlers.NewHealthHandler(handlers.HealthHandlerConfig{Registry: mocks.NewMockHealthRegistry(t), Backend: "go"}),
		QuoteHandler:  quoteHandler,
	})

	return f
}

func (f *routerFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	return w
}

func TestServerNew(t *testing.T) {
	cfg := testServerConfig()
	logger := discardLogger()

	srv := New(cfg, logger)

	require.NotNil(t, srv)
	assert.NotNil(t, srv.Engine())
	assert.True(t, srv.Engine().ContextWithFallback)
	assert.Equal(t, cfg, srv.Config())
	assert.Equal(t, "127.0.0.1:0", srv.Addr())
}

func TestServerStartShutdown(t *testing.T) {
	srv := New(testServerConfig(), discardLogger())
	errCh := srv.Start()

	time.Sleep(50 * time.Millisecond)

	select {
	case err := <-errCh:
		require.NoError(t, err)
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, srv.Shutdown(ctx))

	select {
	case _, ok := <-errCh:
		assert.False(t, ok, "error channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for server to shut down")
	}
}

func TestMaxBodySize(t *testing.T) {
	cfg := testServerConfig()
	cfg.MaxRequestSize = 16

	srv := New(cfg, discardLogger())
	srv.Engine().POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}

		c.Status(http.StatusOK)
	})

	small := httptest.NewRecorder()
	srv.Engine().ServeHTTP(small, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("short")))

	large := httptest.NewRecorder()
	srv.Engine().ServeHTTP(large, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 64))))

	assert.Equal(t, http.StatusOK, small.Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, large.Code)
}

func TestSetupRouter_UnmatchedRoutes(t *testing.T) {
	f := newRouterFixture(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "unknown path", method: http.MethodGet, path: "/api/nothing"},
		{name: "unknown method on known path", method: http.MethodPatch, path: "/api/quotes/q-1"},
		{name: "outside api", method: http.MethodGet, path: "/quotes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.serve(httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"route not found"}}`, w.Body.String())
			assert.Equal(t, "go", w.Header().Get(middleware.HeaderBackend))
		})
	}
}

func TestSetupRouter_Preflight(t *testing.T) {
	f := newRouterFixture(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/quotes/q-1/like", nil)
	req.Header.Set("Origin", "https://ui.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)

	w := f.serve(req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "go", w.Header().Get(middleware.HeaderBackend))
}

func TestSetupRouter_Health(t *testing.T) {
	f := newRouterFixture(t, nil)

	w := f.serve(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","backend":"go"}`, w.Body.String())
	assert.Equal(t, "go", w.Header().Get(middleware.HeaderBackend))
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestSetupRouter_VisitorAndDeadlineReachServices(t *testing.T) {
	f := newRouterFixture(t, nil)

	f.quotes.On("GetByID", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), "q-1").Return(&domain.Quote{ID: "q-1", Text: "t", Author: "a"}, nil)
	f.likes.On("IsLiked", mock.Anything, "q-1", "198.51.100.4").Return(true, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/quotes/q-1", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")

	w := f.serve(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_liked":true`)
}

func TestSetupRouter_AdminGuard(t *testing.T) {
	auth := &config.AuthConfig{Enabled: true, RolesHeader: "X-User-Roles"}

	t.Run("rejected without role", func(t *testing.T) {
		f := newRouterFixture(t, auth)

		w := f.serve(httptest.NewRequest(http.MethodDelete, "/api/quotes/likes/reset", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		f.likes.AssertNotCalled(t, "ResetLikes", mock.Anything, mock.Anything)
	})

	t.Run("allowed with admin role", func(t *testing.T) {
		f := newRouterFixture(t, auth)
		f.likes.On("ResetLikes", mock.Anything, mock.Anything).Return(int64(0), nil)

		req := httptest.NewRequest(http.MethodDelete, "/api/quotes/likes/reset", nil)
		req.Header.Set("X-User-Roles", "admin")

		w := f.serve(req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("reads stay open", func(t *testing.T) {
		f := newRouterFixture(t, auth)
		f.likes.On("IsLiked", mock.Anything, "q-1", domain.DefaultVisitorID).Return(false, nil)

		w := f.serve(httptest.NewRequest(http.MethodGet, "/api/quotes/q-1/is-liked", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestSetupRouter_PanicRecovered(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.quotes.On("Random", mock.Anything).Run(func(mock.Arguments) { panic("boom") })

	w := f.serve(httptest.NewRequest(http.MethodGet, "/api/quotes/random", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}
