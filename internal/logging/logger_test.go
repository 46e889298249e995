package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesKeyValues(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "canvas", LevelDebug)

	l.Info("page loaded", "page", 2, "tokens", 40)

	out := buf.String()
	assert.Contains(t, out, "[canvas] ")
	assert.Contains(t, out, "[INFO] page loaded page=2 tokens=40")
}

func TestLoggerOddKeyValues(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "x", LevelDebug)

	l.Warn("odd", "lonely")

	assert.Contains(t, buf.String(), "lonely=<missing>")
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "x", LevelWarn)

	l.Debug("hidden")
	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Error("shown", "err", "boom")
	assert.Contains(t, buf.String(), "[ERROR] shown err=boom")

	buf.Reset()
	l.SetLevel(LevelDebug)
	l.Debug("now shown")
	assert.Contains(t, buf.String(), "[DEBUG] now shown")
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "app", LevelInfo).With("watcher")

	l.Info("started")

	assert.Contains(t, buf.String(), "[app/watcher] ")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		" warn ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestDiscardAndNil(t *testing.T) {
	Discard().Error("nothing")
	var l *Logger
	l.Info("nil logger is silent")
}
