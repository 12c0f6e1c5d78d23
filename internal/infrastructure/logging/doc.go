// Package logging provides structured logging for mqtt-launcher.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the launcher.
//
// # Features
//
//   - Text output by default, JSON on request
//   - Log file (appended, created 0600) or stdout/stderr
//   - Default fields (service, version) on all log entries
//   - Two levels: debug when loglevel is "debug", info otherwise
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logfile: "/var/log/mqtt-launcher.log"   # or stdout, stderr
//	loglevel: "debug"
//	logformat: "text"                       # text, json
//
// # Usage
//
//	logger, err := logging.New(cfg.Logging(), "1.0.0")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//	logger.Info("connected", "broker", "localhost:1883")
//
// # Security
//
// Never log mqtt_password or other credentials. Parameters are logged
// quoted at debug level so control characters stay visible.
package logging
