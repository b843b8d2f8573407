package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got, s)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestContextLogger ensures names and fields attached to a context reach the output.
func TestContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := New(zapcore.DebugLevel, EncodingJSON, &buf)

	ctx := ToContext(context.Background(), l)
	ctx = WithName(ctx, "lsep-server")
	ctx = WithKV(ctx, "session_id", "abc")

	InfoKV(ctx, "State changed", "state", "CARE")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "State changed", line["message"])
	require.Equal(t, "lsep-server", line["logger"])
	require.Equal(t, "abc", line["session_id"])
	require.Equal(t, "CARE", line["state"])
}

// TestFromContext_FallsBackToGlobal returns the global logger for bare contexts.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithLevel filters entries below the wrapped level.
func TestWithLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := New(zapcore.DebugLevel, EncodingJSON, &buf, WithLevel(zapcore.WarnLevel))
	l.Info("dropped")
	require.Zero(t, buf.Len())

	l.Warn("kept")
	require.Contains(t, buf.String(), "kept")
}

// TestConfigure_RejectsUnknownLevel leaves the global logger untouched on bad input.
func TestConfigure_RejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	before := Logger()
	require.Error(t, Configure("loud", "json"))
	require.Same(t, before, Logger())
}
