package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(&buf, "info", "text")
		require.NoError(t, err)

		l.Debug("hidden")
		l.Info("message_received", "message", "hello world.")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), `message="hello world."`)
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(&buf, "debug", "json")
		require.NoError(t, err)

		l.Debug("connection_active", "conn_id", "abc")
		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "connection_active", rec["msg"])
		assert.Equal(t, "abc", rec["conn_id"])
	})

	t.Run("BadFormat", func(t *testing.T) {
		_, err := New(&bytes.Buffer{}, "info", "xml")
		assert.Error(t, err)
	})

	t.Run("BadLevel", func(t *testing.T) {
		_, err := New(&bytes.Buffer{}, "chatty", "text")
		assert.Error(t, err)
	})
}
