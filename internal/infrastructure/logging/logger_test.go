package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/mqtt-launcher/internal/infrastructure/config"
)

func TestNew_Stdout(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "1.0.0")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNew_Stderr(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}, "1.0.0")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher.log")

	logger, err := New(config.LoggingConfig{Level: "info", Format: "text", Output: path}, "1.0.0")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("first line")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// A second logger appends instead of truncating.
	logger, err = New(config.LoggingConfig{Level: "info", Format: "text", Output: path}, "1.0.0")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("second line")
	_ = logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "first line") || !strings.Contains(out, "second line") {
		t.Errorf("log file = %q, want both lines", out)
	}
	if !strings.Contains(out, "service=mqtt-launcher") {
		t.Errorf("log file = %q, want service field", out)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != logFileMode {
		t.Errorf("log file mode = %o, want %o", perm, logFileMode)
	}
}

func TestNew_FileError(t *testing.T) {
	_, err := New(config.LoggingConfig{Output: "/nonexistent/dir/launcher.log"}, "1.0.0")
	if err == nil {
		t.Error("New() expected error for unwritable log path")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{name: "debug level", input: "debug", expected: slog.LevelDebug},
		{name: "case insensitive", input: "DEBUG", expected: slog.LevelDebug},
		{name: "info level", input: "info", expected: slog.LevelInfo},
		{name: "warn is info", input: "warn", expected: slog.LevelInfo},
		{name: "unknown defaults to info", input: "verbose", expected: slog.LevelInfo},
		{name: "empty defaults to info", input: "", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, config.LoggingConfig{Level: "info", Format: "json"}, "1.0.0")

	child := logger.With("component", "dispatch")
	if child == logger {
		t.Error("expected child logger to be different from parent")
	}
	if err := child.Close(); err != nil {
		t.Errorf("child Close() error = %v", err)
	}

	child.Info("routed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if entry["component"] != "dispatch" {
		t.Errorf("component = %v, want dispatch", entry["component"])
	}
}

func TestDefault(t *testing.T) {
	logger := Default()

	if logger == nil {
		t.Fatal("expected non-nil default logger")
	}
}

func TestLogger_OutputContainsDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, config.LoggingConfig{Level: "info", Format: "json"}, "test")

	logger.Info("test message", "key", "value")

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}

	if logEntry["service"] != "mqtt-launcher" {
		t.Errorf("expected service='mqtt-launcher', got %v", logEntry["service"])
	}
	if logEntry["version"] != "test" {
		t.Errorf("expected version='test', got %v", logEntry["version"])
	}
	if logEntry["msg"] != "test message" {
		t.Errorf("expected msg='test message', got %v", logEntry["msg"])
	}
	if logEntry["key"] != "value" {
		t.Errorf("expected key='value', got %v", logEntry["key"])
	}
}

func TestLogger_DebugFiltered(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, config.LoggingConfig{Level: "info", Format: "text"}, "test")

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug output at info level: %q", buf.String())
	}

	logger = newWithWriter(&buf, config.LoggingConfig{Level: "debug", Format: "text"}, "test")
	logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug output missing at debug level: %q", buf.String())
	}
}
