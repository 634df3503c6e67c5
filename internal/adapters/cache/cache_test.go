package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/ports"
)

var (
	_ ports.Cache           = (*Redis)(nil)
	_ ports.OptionalChecker = (*Redis)(nil)
	_ ports.Cache           = Noop{}
)

func TestNoop(t *testing.T) {
	ctx := context.Background()
	c := Noop{}

	assert.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	_, err := c.Get(ctx, "k")
	assert.True(t, domain.IsNotFound(err))

	assert.NoError(t, c.Delete(ctx, "k", "other"))
}
