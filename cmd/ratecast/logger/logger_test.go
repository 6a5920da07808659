package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/HatiCode/ratecast/cmd/ratecast/config"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{LogFormat: "json", LogLevel: "info"}, &buf)

	log.Debug("hidden")
	log.Info("visible", "paths", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "visible" {
		t.Errorf("msg = %v, want visible", entry["msg"])
	}
	if entry["component"] != "ratecast" {
		t.Errorf("component = %v, want ratecast", entry["component"])
	}
}

func TestNewWithWriter_TextDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{LogFormat: "text", LogLevel: "debug"}, &buf)

	log.Debug("bucket summary")

	if !strings.Contains(buf.String(), "level=DEBUG") {
		t.Errorf("expected debug line in text output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
