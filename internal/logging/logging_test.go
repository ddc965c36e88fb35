package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(t *testing.T, level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(level)
	return NewWithZap("session", zap.New(core)), logs
}

func TestLoggerFields(t *testing.T) {
	logger, logs := observed(t, zapcore.DebugLevel)

	logger.Info("upsert", map[string]any{"chat_id": "abc", "messages": 2})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "upsert", entry.Message)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	ctx := entry.ContextMap()
	assert.Equal(t, "session", ctx["component"])
	assert.Equal(t, "abc", ctx["chat_id"])
	assert.EqualValues(t, 2, ctx["messages"])
}

func TestLoggerLevels(t *testing.T) {
	logger, logs := observed(t, zapcore.InfoLevel)

	logger.Debug("hidden", nil)
	logger.Warn("remote_list_failed", nil, errors.New("boom"))
	logger.Error("save_failed", map[string]any{"chat_id": "x"}, errors.New("disk full"))

	require.Equal(t, 2, logs.Len())
	warn := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, warn.Level)
	assert.Equal(t, "boom", warn.ContextMap()["error"])

	errEntry := logs.All()[1]
	assert.Equal(t, zapcore.ErrorLevel, errEntry.Level)
	assert.Equal(t, "disk full", errEntry.ContextMap()["error"])
}

func TestTimedEvent(t *testing.T) {
	logger, logs := observed(t, zapcore.InfoLevel)

	logger.TimedEvent("upload", time.Now().Add(-50*time.Millisecond), nil)

	require.Equal(t, 1, logs.Len())
	ms, ok := logs.All()[0].ContextMap()["duration_ms"].(int64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, ms, int64(50))
}

func TestNopLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop().Error("ignored", nil, errors.New("x"))
	})
}

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanchat.log")
	require.NoError(t, Init(Options{File: path, Level: "debug"}))
	t.Cleanup(func() { _ = Init(Options{}) })

	New("config").Info("loaded", map[string]any{"store": "sqlite"})
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event":"loaded"`)
	assert.Contains(t, string(data), `"component":"config"`)
}

func TestInitRejectsBadLevel(t *testing.T) {
	assert.Error(t, Init(Options{Level: "loud"}))
}

func TestComponent(t *testing.T) {
	assert.Equal(t, "chat", New("chat").Component())
}
