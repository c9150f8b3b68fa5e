package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kasuganosora/scenarioplayer/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	l, err := New(config.LogConfig{Level: "warning"}, false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = New(config.LogConfig{Level: "error"}, true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNewBadLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"}, false)
	assert.Error(t, err)
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.log")
	l, err := New(config.LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1}, false)
	require.NoError(t, err)
	l.Info("script loaded")
	_ = l.Sync() // stderr sync may fail on some platforms

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "script loaded")
}

func TestNewFileOnly(t *testing.T) {
	l, err := NewFile(config.LogConfig{Level: "info"}, false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))

	path := filepath.Join(t.TempDir(), "tui.log")
	l, err = NewFile(config.LogConfig{Level: "info", File: path, MaxSizeMB: 1}, false)
	require.NoError(t, err)
	l.Info("frame")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "frame")
}
