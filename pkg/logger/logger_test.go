package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}

func TestNewWithOptions_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "floorview.log")

	l, err := NewWithOptions(Options{Level: "info", Format: "console", OutputPath: path})
	require.NoError(t, err)

	l.Info("stream opened", zap.String("url", "ws://line/ws"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stream opened")
	assert.Contains(t, string(data), "ws://line/ws")
}

func TestNewWithOptions_RejectsUnknownFormat(t *testing.T) {
	_, err := NewWithOptions(Options{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestContextLogger_AddsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cl := NewContextLogger(zap.New(core))

	ctx := WithRequestID(context.Background(), "req-42")
	cl.LogRequest(ctx, "GET", "/status", 200, 3)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "/status", fields["path"])
}
