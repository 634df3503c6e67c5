package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture returns a context holding a JSON logger that writes into buf.
func capture(buf *bytes.Buffer) context.Context {
	return WithContext(context.Background(), slog.New(slog.NewJSONHandler(buf, nil)))
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	return entry
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	replaced := slog.New(slog.NewTextHandler(io.Discard, nil))
	slog.SetDefault(replaced)

	assert.Same(t, replaced, FromContext(context.Background()))
	assert.Same(t, replaced, FromContext(nil)) //nolint:staticcheck // nil guard
}

func TestFromContext_ReturnsStoredLogger(t *testing.T) {
	stored := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.Same(t, stored, FromContext(WithContext(context.Background(), stored)))
}

func TestContextTaggers(t *testing.T) {
	tests := []struct {
		name  string
		apply func(context.Context) context.Context
		key   string
		want  string
	}{
		{name: "request id", apply: func(ctx context.Context) context.Context { return WithRequestID(ctx, "req-1") }, key: KeyRequestID, want: "req-1"},
		{name: "correlation id", apply: func(ctx context.Context) context.Context { return WithCorrelationID(ctx, "corr-1") }, key: KeyCorrelationID, want: "corr-1"},
		{name: "visitor", apply: func(ctx context.Context) context.Context { return WithVisitor(ctx, "203.0.113.7") }, key: KeyVisitor, want: "203.0.113.7"},
		{name: "arbitrary attrs", apply: func(ctx context.Context) context.Context { return With(ctx, "quote_id", "42") }, key: "quote_id", want: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			ctx := tt.apply(capture(&buf))

			FromContext(ctx).Info("hello")

			assert.Equal(t, tt.want, decode(t, &buf)[tt.key])
		})
	}
}

func TestContextTaggers_Accumulate(t *testing.T) {
	var buf bytes.Buffer

	ctx := capture(&buf)
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithCorrelationID(ctx, "corr-1")
	ctx = WithVisitor(ctx, "v-1")

	FromContext(ctx).Info("liked")

	entry := decode(t, &buf)
	assert.Equal(t, "req-1", entry[KeyRequestID])
	assert.Equal(t, "corr-1", entry[KeyCorrelationID])
	assert.Equal(t, "v-1", entry[KeyVisitor])
}
