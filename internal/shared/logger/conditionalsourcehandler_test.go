package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionalSourceHandler_Levels(t *testing.T) {
	tests := []struct {
		name       string
		level      slog.Level
		withSource bool
	}{
		{"debug has no source", slog.LevelDebug, false},
		{"info has no source", slog.LevelInfo, false},
		{"warn has source", slog.LevelWarn, true},
		{"error has source", slog.LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			l := slog.New(NewConditionalSourceHandler(base, slog.LevelWarn, slog.LevelError))

			l.Log(context.Background(), tt.level, "plan resolved")

			assert.Equal(t, tt.withSource, bytes.Contains(buf.Bytes(), []byte("source=")), buf.String())
		})
	}
}

func TestConditionalSourceHandler_KeepsAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	l := slog.New(NewConditionalSourceHandler(base, slog.LevelError)).
		With("organization_id", "org_1").
		WithGroup("limit")

	l.Info("checked", "key", "documents")

	out := buf.String()
	assert.Contains(t, out, "organization_id=org_1")
	assert.Contains(t, out, "limit.key=documents")
	assert.NotContains(t, out, "source=")
}

func TestConditionalSourceHandler_RespectsBaseLevel(t *testing.T) {
	base := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	h := NewConditionalSourceHandler(base, slog.LevelError)

	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
