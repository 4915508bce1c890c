package logging_test

import (
	"testing"

	"github.com/pilecalc/pile-api/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerKeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := logging.New(zap.New(core))

	logger.Debug("debug msg", "k", 1)
	logger.Info("info msg")
	logger.Warn("failed to track successful login", "user_id", "42", "error", "disk full")
	logger.Error("boom", "path", "/login")

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)

	fields := entries[2].ContextMap()
	assert.Equal(t, "42", fields["user_id"])
	assert.Equal(t, "disk full", fields["error"])
}

func TestLoggerNamed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logging.New(zap.New(core)).Named("http").Info("request")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "http", logs.All()[0].LoggerName)
}

func TestNewNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		logging.New(nil).Info("dropped")
	})
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name string
		cfg  logging.LogConfig
		want zapcore.Level
	}{
		{name: "production", cfg: logging.LogConfig{Level: "warn", App: "pile-api"}, want: zapcore.WarnLevel},
		{name: "development", cfg: logging.LogConfig{Level: "debug", Pretty: true}, want: zapcore.DebugLevel},
		{name: "bad level falls back to info", cfg: logging.LogConfig{Level: "loud"}, want: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := logging.NewLogger(tt.cfg)
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.want))
			assert.False(t, l.Core().Enabled(tt.want-1))
		})
	}
}
