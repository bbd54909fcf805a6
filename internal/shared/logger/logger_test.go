package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgdeck/internal/shared/config"
)

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestConditionalSourceHandler_OnlySelectedLevels(t *testing.T) {
	tests := []struct {
		name       string
		level      slog.Level
		wantSource bool
	}{
		{"info stays short", slog.LevelInfo, false},
		{"debug stays short", slog.LevelDebug, false},
		{"warn carries source", slog.LevelWarn, true},
		{"error carries source", slog.LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			log := NewLoggerWithSlog(slog.New(NewConditionalSourceHandler(base, slog.LevelWarn, slog.LevelError)))

			switch tt.level {
			case slog.LevelDebug:
				log.Debugw("msg", "k", 1)
			case slog.LevelInfo:
				log.Infow("msg", "k", 1)
			case slog.LevelWarn:
				log.Warnw("msg", "k", 1)
			case slog.LevelError:
				log.Errorw("msg", "k", 1)
			}

			rec := decodeRecord(t, &buf)
			_, hasSource := rec[slog.SourceKey]
			assert.Equal(t, tt.wantSource, hasSource)
			assert.EqualValues(t, 1, rec["k"])
		})
	}
}

func TestSlogLogger_SourcePointsAtCaller(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	log := NewLoggerWithSlog(slog.New(NewConditionalSourceHandler(base, slog.LevelError)))

	log.Errorw("boom")

	rec := decodeRecord(t, &buf)
	src, ok := rec[slog.SourceKey].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "logger_test.go", filepath.Base(src["file"].(string)))
}

func TestSlogLogger_NamedAndWith(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithSlog(slog.New(slog.NewJSONHandler(&buf, nil))).
		Named("billing").
		With("user_id", 7)

	log.Info("subscribed")

	rec := decodeRecord(t, &buf)
	assert.Equal(t, "billing", rec["logger"])
	assert.EqualValues(t, 7, rec["user_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestInit_FileOutputRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msgdeck.log")
	err := Init(&config.LoggerConfig{Level: "info", Format: "json", OutputPath: path, MaxSizeMB: 1}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Sync() })

	Info("written to file")
	assert.FileExists(t, path)
}
