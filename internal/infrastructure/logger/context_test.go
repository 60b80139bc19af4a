package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAndFromContext(t *testing.T) {
	t.Run("round-trips the logger", func(t *testing.T) {
		l := zap.NewNop()
		ctx := WithContext(context.Background(), l)
		assert.Same(t, l, FromContext(ctx))
	})

	t.Run("missing logger yields a no-op", func(t *testing.T) {
		l := FromContext(context.Background())
		require.NotNil(t, l)
		// must not panic
		l.Info("ignored")
	})
}

func TestWithRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx, enriched := WithRequestID(context.Background(), base, "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))

	enriched.Info("hello")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-123", logs.All()[0].ContextMap()["request_id"])
}

func TestWithUserID(t *testing.T) {
	ctx, _ := WithUserID(context.Background(), zap.NewNop(), "buyer1")
	assert.Equal(t, "buyer1", GetUserID(ctx))
	assert.Empty(t, GetUserID(context.Background()))
}

func TestContextLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := WithContext(context.Background(), base)
	ctx = context.WithValue(ctx, RequestIDKey, "req-9")
	ctx = context.WithValue(ctx, UserIDKey, "buyer1")

	L(ctx).Info("created", zap.String("invoice", "V-INV1"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0].ContextMap()
	assert.Equal(t, "req-9", entry["request_id"])
	assert.Equal(t, "buyer1", entry["user_id"])
	assert.Equal(t, "V-INV1", entry["invoice"])
}

func TestContextLoggerWithNilLogger(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}
	// must not panic
	cl.Info("ignored")
}
