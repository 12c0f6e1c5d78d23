package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/mqtt-launcher/internal/infrastructure/config"
)

// logFileMode is used when the log file is created.
const logFileMode = 0600

// Logger wraps slog.Logger with launcher-specific functionality.
//
// It provides structured logging with default fields and level-based filtering.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger

	// file is the opened log file, nil for stdout/stderr and derived loggers.
	file io.Closer
}

// New creates a new Logger with the specified configuration.
//
// It configures:
//   - Output destination ("stdout", "stderr" or a file path, appended to)
//   - Output format (text by default, json on request)
//   - Log level filtering ("debug" or info)
//   - Default fields (service name, version)
//
// Parameters:
//   - cfg: Logging configuration derived from the launcher config
//   - version: Application version for default field
//
// Returns:
//   - *Logger: Configured logger ready for use
//   - error: If the log file cannot be opened
func New(cfg config.LoggingConfig, version string) (*Logger, error) {
	var (
		output io.Writer
		file   *os.File
	)
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logFileMode)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		output = f
		file = f
	}

	logger := newWithWriter(output, cfg, version)
	if file != nil {
		logger.file = file
	}
	return logger, nil
}

// newWithWriter builds a logger writing to w.
func newWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	// Add default fields
	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "mqtt-launcher"),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// parseLevel converts the loglevel setting to slog.Level.
//
// Only "debug" (any case) enables debug output; everything else is info.
func parseLevel(level string) slog.Level {
	if strings.EqualFold(strings.TrimSpace(level), "debug") {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// With returns a new Logger with additional default attributes.
//
// The returned logger shares the parent's output but does not own it;
// only the logger returned by New closes the log file.
//
// Example:
//
//	mqttLogger := logger.With("component", "mqtt")
//	mqttLogger.Info("connected") // Includes component=mqtt
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Close closes the log file, if this logger opened one.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Default creates a default logger for use before configuration is loaded.
//
// This logger writes text to stderr at info level.
// It should only be used during early startup before config is available.
func Default() *Logger {
	return newWithWriter(os.Stderr, config.LoggingConfig{
		Level:  "info",
		Format: "text",
	}, "dev")
}
