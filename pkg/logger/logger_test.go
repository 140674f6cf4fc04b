package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", &buf)

	log.Info("queue started", "capacity", 500)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "queue started" {
		t.Errorf("expected msg 'queue started', got %v", record["msg"])
	}
	if record["capacity"] != float64(500) {
		t.Errorf("expected capacity 500, got %v", record["capacity"])
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", &buf)

	log.Info("should be filtered")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %q", buf.String())
	}

	log.Warn("should appear")
	if buf.Len() == 0 {
		t.Fatalf("expected warn message to be logged")
	}
}

func TestNewTextOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewText("info", &buf)

	log.Info("shaper stopped", "packets", 42)
	out := buf.String()
	if !strings.Contains(out, "shaper stopped") {
		t.Errorf("expected text output to contain message, got %q", out)
	}
	if !strings.Contains(out, "packets=42") {
		t.Errorf("expected text output to contain attribute, got %q", out)
	}
}

func TestSetDefault(t *testing.T) {
	original := Default
	defer SetDefault(original)

	var buf bytes.Buffer
	SetDefault(New("info", &buf))

	Info("default logger message")
	if buf.Len() == 0 {
		t.Fatalf("expected package-level Info to write through the default logger")
	}
}
