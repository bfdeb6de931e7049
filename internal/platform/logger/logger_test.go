package logger_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/quenby/atelier-api/internal/config"
	"github.com/quenby/atelier-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
	}{
		{name: "debug level", logLevel: "debug"},
		{name: "info level", logLevel: "info"},
		{name: "warn level", logLevel: "warn"},
		{name: "error level", logLevel: "error"},
		{name: "mixed case level", logLevel: "INFO"},
		{name: "invalid level falls back to info", logLevel: "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := logger.Setup(config.ServerConfig{LogLevel: tt.logLevel})
			require.NoError(t, err)
			require.NotNil(t, log)
			assert.Same(t, log, slog.Default(), "Setup must install the logger as the default")
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	stored := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := logger.WithLogger(context.Background(), stored)

	assert.Same(t, stored, logger.FromContext(ctx))
	assert.Same(t, stored, logger.FromContextOrDefault(ctx, nil))

	// An empty context falls back.
	def := slog.New(slog.NewTextHandler(os.Stderr, nil))
	assert.Same(t, def, logger.FromContextOrDefault(context.Background(), def))
	assert.NotNil(t, logger.FromContext(context.Background()))
}
