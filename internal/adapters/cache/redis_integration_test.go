//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/jsamuelsen/quotes-service/internal/domain"
)

func startRedis(t *testing.T) *Redis {
	t.Helper()

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	r, err := NewRedis(ctx, Config{Addr: endpoint, Prefix: "test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	return r
}

func TestRedis_RoundTrip(t *testing.T) {
	r := startRedis(t)
	ctx := context.Background()

	_, err := r.Get(ctx, "top:alltime")
	assert.True(t, domain.IsNotFound(err))

	require.NoError(t, r.Set(ctx, "top:alltime", []byte(`{"id":"1"}`), time.Minute))

	got, err := r.Get(ctx, "top:alltime")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1"}`, string(got))

	require.NoError(t, r.Delete(ctx, "top:alltime", "top:weekly"))

	_, err = r.Get(ctx, "top:alltime")
	assert.True(t, domain.IsNotFound(err))
}

func TestRedis_TTLExpires(t *testing.T) {
	r := startRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "short", []byte("x"), 100*time.Millisecond))

	assert.Eventually(t, func() bool {
		_, err := r.Get(ctx, "short")
		return domain.IsNotFound(err)
	}, 2*time.Second, 50*time.Millisecond)
}

func TestRedis_Health(t *testing.T) {
	r := startRedis(t)

	assert.Equal(t, "redis", r.Name())
	assert.True(t, r.Optional())
	assert.NoError(t, r.Check(context.Background()))
}
