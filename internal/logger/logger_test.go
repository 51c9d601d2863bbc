package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})

	log.Info("catalog opened", "path", "/tmp/db")

	assert.Contains(t, buf.String(), "catalog opened")
	assert.Contains(t, buf.String(), "\"level\":\"INFO\"")
	assert.Contains(t, buf.String(), "\"path\":\"/tmp/db\"")
}

func TestNewFormatAutoDetection(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{name: "production uses json", environment: "production", wantJSON: true},
		{name: "development uses text", environment: "development", wantJSON: false},
		{name: "empty environment uses text", environment: "", wantJSON: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Environment: tt.environment, Writer: &buf})
			log.Info("probe")

			isJSON := strings.HasPrefix(strings.TrimSpace(buf.String()), "{")
			assert.Equal(t, tt.wantJSON, isJSON, "output: %s", buf.String())
		})
	}
}

func TestTextHandlerAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "text", Writer: &buf})

	log.With("recording", "rec-1").Warn("segment dropped", "duration", 2.5)

	out := buf.String()
	assert.Contains(t, out, "WRN")
	assert.Contains(t, out, "segment dropped")
	assert.Contains(t, out, "recording=rec-1")
	assert.Contains(t, out, "duration=2.5")
}

func TestTextHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "text", Level: slog.LevelWarn, Writer: &buf})

	log.Info("hidden")
	log.Error("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
