package logger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
)

func TestNew_Defaults(t *testing.T) {
	l, err := logger.New(logger.Config{Level: "debug"})
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestWith_AttachesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := logger.NewFromZap(zap.New(core)).With(logger.Component("ingestor"))

	l.Info("scanned", logger.ObjectID("abc"), logger.Int("files", 3))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ingestor", fields["component"])
	assert.Equal(t, "abc", fields["object_id"])
	assert.Equal(t, int64(3), fields["files"])
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	scoped := logger.NewFromZap(zap.New(core))

	ctx := logger.WithContext(context.Background(), scoped)
	logger.FromContext(ctx, logger.NewNop()).Info("request")
	assert.Equal(t, 1, logs.Len())

	// Without a stored logger the fallback is used.
	fallback := logger.FromContext(context.Background(), nil)
	fallback.Info("dropped")
	assert.Equal(t, 1, logs.Len())
}
