package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "relay.buffer_lines")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Serial config
	errors = append(errors, c.validateSerial()...)

	// Validate TCP config
	errors = append(errors, c.validateTCP()...)

	// Validate Bridge config
	errors = append(errors, c.validateBridge()...)

	// Validate Relay config
	errors = append(errors, c.validateRelay()...)

	// Validate Log config
	errors = append(errors, c.validateLog()...)

	// Validate Paths config
	errors = append(errors, c.validatePaths()...)

	return errors
}

// validateSerial validates the SerialConfig
func (c *Config) validateSerial() []ValidationError {
	var errors []ValidationError

	// Device may be empty (supplied on the command line instead), but if
	// set it must be a plausible path
	if c.Serial.Device != "" {
		errors = append(errors, validatePathValue(c.Serial.Device, "serial.device")...)
	}

	return errors
}

// validateTCP validates the TCPConfig
func (c *Config) validateTCP() []ValidationError {
	var errors []ValidationError

	// Port 0 is valid and means "unprotected, server default"
	const maxPort = 65535
	if c.TCP.Port < 0 {
		errors = append(errors, ValidationError{
			Field:   "tcp.port",
			Value:   c.TCP.Port,
			Message: "must be non-negative (0 disables single-instance protection)",
		})
	}
	if c.TCP.Port > maxPort {
		errors = append(errors, ValidationError{
			Field:   "tcp.port",
			Value:   c.TCP.Port,
			Message: fmt.Sprintf("exceeds maximum of %d", maxPort),
		})
	}

	if strings.ContainsRune(c.TCP.Host, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "tcp.host",
			Value:   c.TCP.Host,
			Message: "contains invalid null character",
		})
	}

	return errors
}

// validateBridge validates the BridgeConfig
func (c *Config) validateBridge() []ValidationError {
	var errors []ValidationError

	if c.Bridge.Binary == "" {
		errors = append(errors, ValidationError{
			Field:   "bridge.binary",
			Value:   c.Bridge.Binary,
			Message: "cannot be empty",
		})
	} else {
		errors = append(errors, validatePathValue(c.Bridge.Binary, "bridge.binary")...)
	}

	// Readiness timeout bounds
	const minReadyTimeout = 1
	const maxReadyTimeout = 300 // 5 minutes

	if c.Bridge.ReadyTimeoutSeconds < minReadyTimeout {
		errors = append(errors, ValidationError{
			Field:   "bridge.ready_timeout_seconds",
			Value:   c.Bridge.ReadyTimeoutSeconds,
			Message: fmt.Sprintf("must be at least %d second", minReadyTimeout),
		})
	}
	if c.Bridge.ReadyTimeoutSeconds > maxReadyTimeout {
		errors = append(errors, ValidationError{
			Field:   "bridge.ready_timeout_seconds",
			Value:   c.Bridge.ReadyTimeoutSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d seconds", maxReadyTimeout),
		})
	}

	// Stop grace bounds. A bridge holding a serial device open should
	// never take this long to die, but the ceiling keeps a typo from
	// wedging shutdown for an hour.
	const minStopGrace = 1
	const maxStopGrace = 60

	if c.Bridge.StopGraceSeconds < minStopGrace {
		errors = append(errors, ValidationError{
			Field:   "bridge.stop_grace_seconds",
			Value:   c.Bridge.StopGraceSeconds,
			Message: fmt.Sprintf("must be at least %d second", minStopGrace),
		})
	}
	if c.Bridge.StopGraceSeconds > maxStopGrace {
		errors = append(errors, ValidationError{
			Field:   "bridge.stop_grace_seconds",
			Value:   c.Bridge.StopGraceSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d seconds", maxStopGrace),
		})
	}

	return errors
}

// validateRelay validates the RelayConfig
func (c *Config) validateRelay() []ValidationError {
	var errors []ValidationError

	// Subscriber buffer bounds
	const minBufferLines = 16
	const maxBufferLines = 65536

	if c.Relay.BufferLines < minBufferLines {
		errors = append(errors, ValidationError{
			Field:   "relay.buffer_lines",
			Value:   c.Relay.BufferLines,
			Message: fmt.Sprintf("must be at least %d lines", minBufferLines),
		})
	}
	if c.Relay.BufferLines > maxBufferLines {
		errors = append(errors, ValidationError{
			Field:   "relay.buffer_lines",
			Value:   c.Relay.BufferLines,
			Message: fmt.Sprintf("exceeds maximum of %d lines", maxBufferLines),
		})
	}

	// Replay buffer bounds (0 disables replay, which is valid)
	const maxReplayLines = 10000

	if c.Relay.ReplayLines < 0 {
		errors = append(errors, ValidationError{
			Field:   "relay.replay_lines",
			Value:   c.Relay.ReplayLines,
			Message: "must be non-negative (0 disables replay)",
		})
	}
	if c.Relay.ReplayLines > maxReplayLines {
		errors = append(errors, ValidationError{
			Field:   "relay.replay_lines",
			Value:   c.Relay.ReplayLines,
			Message: fmt.Sprintf("exceeds maximum of %d lines", maxReplayLines),
		})
	}

	return errors
}

// validateLog validates the LogConfig
func (c *Config) validateLog() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Log.Level != "" && !slices.Contains(ValidLogLevels(), c.Log.Level) {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Value:   c.Log.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Log.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "log.max_size_mb",
			Value:   c.Log.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Log.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "log.max_size_mb",
			Value:   c.Log.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Log.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "log.max_backups",
			Value:   c.Log.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validatePaths validates the PathsConfig
func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	if c.Paths.StateDir != "" {
		errors = append(errors, validatePathValue(c.Paths.StateDir, "paths.state_dir")...)
	}
	if c.Paths.LockDir != "" {
		errors = append(errors, validatePathValue(c.Paths.LockDir, "paths.lock_dir")...)
	}

	return errors
}

// validatePathValue applies the checks shared by all path-like fields
func validatePathValue(path, field string) []ValidationError {
	var errors []ValidationError

	// Check for null bytes which are invalid in paths
	if strings.ContainsRune(path, '\x00') {
		errors = append(errors, ValidationError{
			Field:   field,
			Value:   path,
			Message: "path contains invalid null character",
		})
	}

	// Reasonable path length limit (most filesystems have limits around 4096)
	const maxPathLength = 4096
	if len(path) > maxPathLength {
		errors = append(errors, ValidationError{
			Field:   field,
			Value:   path,
			Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
		})
	}

	return errors
}
