// Package logging provides structured logging for the Kobayashi clients.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across both client binaries.
//
// # Features
//
//   - Text output by default (human-readable console tool)
//   - JSON output for log shippers
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig, from the YAML file or flags:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stderr"   # stdout, stderr
//
// The --debug flag forces the debug level.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "kobayashi-publisher", "1.0.0")
//	logger.Info("Connecting to secure broker", "broker", addr)
//	logger.Error("Connection failed", "error", err)
//
// The logger is created once at startup and passed explicitly to every
// component; components derive child loggers with With("component", ...).
package logging
