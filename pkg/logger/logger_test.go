package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" Warning "))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("unknown"))
}

func TestLoggerWritesBothStyles(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)

	log.Info("expired subscription %s", "abc")
	log.Warnw("expire rejected", "status", 401)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "expired subscription abc", entries[0].Message)
	assert.Equal(t, "expire rejected", entries[1].Message)
	assert.Equal(t, int64(401), entries[1].ContextMap()["status"])
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "WARN", WARN.String())
	assert.Equal(t, "LEVEL(9)", LogLevel(9).String())
}
