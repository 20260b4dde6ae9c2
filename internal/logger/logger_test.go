package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
	}{
		{"debug level", "debug", "console"},
		{"info level", "info", "console"},
		{"warn level", "warn", "console"},
		{"error level", "error", "console"},
		{"json format", "info", "json"},
		{"uppercase level", "DEBUG", "console"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Setup(tt.level, tt.format)
			if Log == nil {
				t.Error("expected Log to be initialized")
			}
		})
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level  string
		expect zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"Info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := ParseLevel(tt.level); got != tt.expect {
				t.Errorf("level %q: expected %v, got %v", tt.level, tt.expect, got)
			}
		})
	}
}

func TestJSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json")

	l.Info("benchmark done", "backend", "naive", "size", 256, "orphan")

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["message"] != "benchmark done" {
		t.Errorf("message = %v", rec["message"])
	}
	if rec["backend"] != "naive" {
		t.Errorf("backend = %v", rec["backend"])
	}
	if rec["size"] != float64(256) {
		t.Errorf("size = %v", rec["size"])
	}
	if _, ok := rec["orphan"]; ok {
		t.Error("trailing key without value should be dropped")
	}
}

func TestErrorAttachesErr(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json")

	l.Error("setup failed", errors.New("ret=-5"), "backend", "rknn")

	if !strings.Contains(buf.String(), `"error":"ret=-5"`) {
		t.Errorf("expected error field, got %s", buf.String())
	}
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json").With("size", 512, 7, "non-string key")

	l.Warn("slow")

	out := buf.String()
	if !strings.Contains(out, `"size":512`) {
		t.Errorf("missing size field: %s", out)
	}
	if !strings.Contains(out, `"7":"non-string key"`) {
		t.Errorf("non-string key should be stringified: %s", out)
	}
}
