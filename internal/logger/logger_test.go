package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	Set(zap.New(core))
	t.Cleanup(func() { log = zap.NewNop().Sugar() })
	return logs
}

func TestInit(t *testing.T) {
	Init("debug")
	assert.NotNil(t, log)
	Init("not-a-level")
	assert.NotNil(t, log)
}

func TestInfo(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	Info("test message", "user_id", 7)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "test message", entry.Message)
	assert.Equal(t, int64(7), entry.ContextMap()["user_id"])
}

func TestError(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	Error("test error")

	require.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestDebugBelowLevel(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	Debug("hidden")
	Debugf("hidden %d", 1)

	assert.Equal(t, 0, logs.Len())
}

func TestInfof(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	Infof("test %s", "message")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "test message", logs.All()[0].Message)
}

func TestErrorf(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	Errorf("test %s", "error")

	assert.Equal(t, "test error", logs.All()[0].Message)
}

func TestWithError(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	WithError(errors.New("boom")).Info("test with error")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "boom", logs.All()[0].ContextMap()["error"])
}
