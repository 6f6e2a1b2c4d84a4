package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info", "prod")
	l.Debug("hidden")
	l.Info("Add record", "name", "web-1", "ip", "10.0.0.1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if entry["msg"] != "Add record" || entry["name"] != "web-1" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNewDevWritesText(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug", "dev")
	l.Debug("Get instances", "count", 3)

	out := buf.String()
	if !strings.Contains(out, "Get instances") {
		t.Errorf("expected message in output, got %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("dev handler should not write json, got %q", out)
	}
}
