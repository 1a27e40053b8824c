// Package logging provides structured logging for the espbridge supervisor.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation support for debugging and post-hoc analysis. A
// detached launcher has no terminal, so its diagnostics end up here: the
// supervisor log records lock activity, session state transitions, and
// child exit details, while the bridge server's own output goes to a
// separate plain-text session log.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (TCP port, serial device, component)
//   - Size-based rotation for the session output log
//   - Aggregation, filtering, and export of supervisor log entries
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The [Logger] type
// uses Go's slog internally which is designed for concurrent access. The
// [RotatingWriter] type uses a mutex to protect file operations during
// rotation. Child loggers created via With* methods share the underlying
// writer safely.
//
// # Basic Usage
//
// Create a logger for the supervisor state directory:
//
//	logger, err := logging.NewLogger("/home/user/.local/state/espbridge", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	// Log messages at various levels
//	logger.Debug("detailed info", "key", "value")
//	logger.Info("operation completed", "duration_ms", 150)
//	logger.Warn("potential issue", "threshold", 100)
//	logger.Error("operation failed", "error", err.Error())
//
// # Context Propagation
//
// Create child loggers with persistent context attributes:
//
//	// Add the protected TCP port
//	portLogger := logger.WithPort(2217)
//
//	// Add the serial device
//	deviceLogger := portLogger.WithDevice("/dev/ttyUSB0")
//
//	// Add the emitting component
//	bridgeLogger := deviceLogger.WithComponent("bridge")
//
//	// All logs from bridgeLogger will include tcp_port, device, and component
//	bridgeLogger.Info("bridge listening", "pid", 4312)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"bridge listening","tcp_port":2217,"device":"/dev/ttyUSB0","component":"bridge","pid":4312}
//
// # Log Rotation
//
// The bridge server can emit output indefinitely, so the session output log
// uses size-based rotation to prevent unbounded growth:
//
//	config := logging.RotationConfig{
//	    MaxSizeMB:  10, // Rotate when file exceeds 10MB
//	    MaxBackups: 3,  // Keep 3 backup files
//	}
//
//	w, err := logging.NewRotatingWriter(path, config)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
// Rotated files are named: espbridge-2217.log.1, espbridge-2217.log.2, etc.,
// where .1 is the most recent backup.
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output:
//
//	func TestSomething(t *testing.T) {
//	    logger := logging.NopLogger()
//	    // Use logger in tests without creating files
//	}
//
// # Log Levels
//
// The package defines four log levels:
//
//   - [LevelDebug]: Detailed information for debugging
//   - [LevelInfo]: General operational information (default)
//   - [LevelWarn]: Warning conditions that may need attention
//   - [LevelError]: Error conditions that affect functionality
//
// Use [ValidLevels] to get the list of valid level strings, and [ParseLevel]
// to normalize user-provided level strings.
//
// # Configuration
//
// The logging system is typically configured via the espbridge config file:
//
//	log:
//	  level: info
//	  max_size_mb: 10
//	  max_backups: 3
//
// Command-line flags and ESPBRIDGE_* environment variables override these.
package logging
