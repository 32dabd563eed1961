package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsBadLevel(t *testing.T) {
	err := Init(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestPerformanceWarning(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	PerformanceWarning("argsort", "unrecognized null placement", zap.String("na_position", "middle"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "argsort", fields["operation"])
	assert.Equal(t, "unrecognized null placement", fields["reason"])
	assert.Equal(t, true, fields["performance_warning"])
	assert.Equal(t, "middle", fields["na_position"])
}

func TestWithContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	ctx := context.WithValue(context.Background(), OperationKey, "fillna")
	ctx = context.WithValue(ctx, DTypeKey, "int64[arrow]")
	WithContext(ctx).Info("filling")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "fillna", fields["operation"])
	assert.Equal(t, "int64[arrow]", fields["dtype"])
}

func TestGetDefaults(t *testing.T) {
	SetLogger(nil)
	l := Get()
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}
