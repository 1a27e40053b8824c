package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

// hasFieldError reports whether errs contains an error for the given field
func hasFieldError(errs []ValidationError, field string) bool {
	for _, err := range errs {
		if err.Field == field {
			return true
		}
	}
	return false
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got %d errors: %v", len(errs), errs)
	}
}

func TestConfig_Validate_Serial(t *testing.T) {
	t.Run("empty device is valid", func(t *testing.T) {
		cfg := Default()
		cfg.Serial.Device = ""
		errs := cfg.Validate()

		if hasFieldError(errs, "serial.device") {
			t.Error("empty device should be valid (supplied via flag)")
		}
	})

	t.Run("typical device paths are valid", func(t *testing.T) {
		for _, device := range []string{"/dev/ttyUSB0", "/dev/tty.usbserial-0001", "COM3"} {
			cfg := Default()
			cfg.Serial.Device = device
			errs := cfg.Validate()

			if hasFieldError(errs, "serial.device") {
				t.Errorf("device %q should be valid", device)
			}
		}
	})

	t.Run("null byte in device", func(t *testing.T) {
		cfg := Default()
		cfg.Serial.Device = "/dev/tty\x00USB0"
		errs := cfg.Validate()

		if !hasFieldError(errs, "serial.device") {
			t.Error("expected error for device path with null byte")
		}
	})

	t.Run("excessively long device path", func(t *testing.T) {
		cfg := Default()
		cfg.Serial.Device = "/dev/" + strings.Repeat("x", 5000)
		errs := cfg.Validate()

		if !hasFieldError(errs, "serial.device") {
			t.Error("expected error for overlong device path")
		}
	})
}

func TestConfig_Validate_TCP(t *testing.T) {
	tests := []struct {
		name     string
		port     int
		hasError bool
	}{
		{"default port", 2217, false},
		{"zero disables protection", 0, false},
		{"low port", 1, false},
		{"max port", 65535, false},
		{"negative port", -1, true},
		{"port too large", 65536, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.TCP.Port = tt.port
			errs := cfg.Validate()

			if hasFieldError(errs, "tcp.port") != tt.hasError {
				t.Errorf("Validate() for port=%d: hasError=%v, want %v", tt.port, hasFieldError(errs, "tcp.port"), tt.hasError)
			}
		})
	}

	t.Run("null byte in host", func(t *testing.T) {
		cfg := Default()
		cfg.TCP.Host = "local\x00host"
		errs := cfg.Validate()

		if !hasFieldError(errs, "tcp.host") {
			t.Error("expected error for host with null byte")
		}
	})
}

func TestConfig_Validate_Bridge(t *testing.T) {
	t.Run("empty binary", func(t *testing.T) {
		cfg := Default()
		cfg.Bridge.Binary = ""
		errs := cfg.Validate()

		if !hasFieldError(errs, "bridge.binary") {
			t.Error("expected error for empty binary")
		}
	})

	t.Run("absolute binary path is valid", func(t *testing.T) {
		cfg := Default()
		cfg.Bridge.Binary = "/usr/local/bin/esp_rfc2217_server"
		errs := cfg.Validate()

		if hasFieldError(errs, "bridge.binary") {
			t.Error("absolute binary path should be valid")
		}
	})

	t.Run("ready timeout bounds", func(t *testing.T) {
		tests := []struct {
			seconds  int
			hasError bool
		}{
			{10, false},
			{1, false},
			{300, false},
			{0, true},
			{-5, true},
			{301, true},
		}

		for _, tt := range tests {
			cfg := Default()
			cfg.Bridge.ReadyTimeoutSeconds = tt.seconds
			errs := cfg.Validate()

			if hasFieldError(errs, "bridge.ready_timeout_seconds") != tt.hasError {
				t.Errorf("ready_timeout_seconds=%d: hasError=%v, want %v",
					tt.seconds, hasFieldError(errs, "bridge.ready_timeout_seconds"), tt.hasError)
			}
		}
	})

	t.Run("stop grace bounds", func(t *testing.T) {
		tests := []struct {
			seconds  int
			hasError bool
		}{
			{5, false},
			{1, false},
			{60, false},
			{0, true},
			{-1, true},
			{61, true},
		}

		for _, tt := range tests {
			cfg := Default()
			cfg.Bridge.StopGraceSeconds = tt.seconds
			errs := cfg.Validate()

			if hasFieldError(errs, "bridge.stop_grace_seconds") != tt.hasError {
				t.Errorf("stop_grace_seconds=%d: hasError=%v, want %v",
					tt.seconds, hasFieldError(errs, "bridge.stop_grace_seconds"), tt.hasError)
			}
		}
	})
}

func TestConfig_Validate_Relay(t *testing.T) {
	t.Run("buffer lines bounds", func(t *testing.T) {
		tests := []struct {
			lines    int
			hasError bool
		}{
			{256, false},
			{16, false},
			{65536, false},
			{15, true},
			{0, true},
			{-1, true},
			{65537, true},
		}

		for _, tt := range tests {
			cfg := Default()
			cfg.Relay.BufferLines = tt.lines
			errs := cfg.Validate()

			if hasFieldError(errs, "relay.buffer_lines") != tt.hasError {
				t.Errorf("buffer_lines=%d: hasError=%v, want %v",
					tt.lines, hasFieldError(errs, "relay.buffer_lines"), tt.hasError)
			}
		}
	})

	t.Run("replay lines bounds", func(t *testing.T) {
		tests := []struct {
			lines    int
			hasError bool
		}{
			{200, false},
			{0, false}, // 0 disables replay
			{10000, false},
			{-1, true},
			{10001, true},
		}

		for _, tt := range tests {
			cfg := Default()
			cfg.Relay.ReplayLines = tt.lines
			errs := cfg.Validate()

			if hasFieldError(errs, "relay.replay_lines") != tt.hasError {
				t.Errorf("replay_lines=%d: hasError=%v, want %v",
					tt.lines, hasFieldError(errs, "relay.replay_lines"), tt.hasError)
			}
		}
	})
}

func TestConfig_Validate_Log(t *testing.T) {
	t.Run("log levels", func(t *testing.T) {
		tests := []struct {
			level    string
			hasError bool
		}{
			{"debug", false},
			{"info", false},
			{"warn", false},
			{"error", false},
			{"", false}, // Empty falls back to default
			{"trace", true},
			{"INFO", true}, // Case sensitive
		}

		for _, tt := range tests {
			cfg := Default()
			cfg.Log.Level = tt.level
			errs := cfg.Validate()

			if hasFieldError(errs, "log.level") != tt.hasError {
				t.Errorf("level=%q: hasError=%v, want %v",
					tt.level, hasFieldError(errs, "log.level"), tt.hasError)
			}
		}
	})

	t.Run("max size bounds", func(t *testing.T) {
		tests := []struct {
			sizeMB   int
			hasError bool
		}{
			{10, false},
			{1, false},
			{1000, false},
			{0, true},
			{-1, true},
			{1001, true},
		}

		for _, tt := range tests {
			cfg := Default()
			cfg.Log.MaxSizeMB = tt.sizeMB
			errs := cfg.Validate()

			if hasFieldError(errs, "log.max_size_mb") != tt.hasError {
				t.Errorf("max_size_mb=%d: hasError=%v, want %v",
					tt.sizeMB, hasFieldError(errs, "log.max_size_mb"), tt.hasError)
			}
		}
	})

	t.Run("negative max backups", func(t *testing.T) {
		cfg := Default()
		cfg.Log.MaxBackups = -1
		errs := cfg.Validate()

		if !hasFieldError(errs, "log.max_backups") {
			t.Error("expected error for negative max_backups")
		}
	})

	t.Run("zero max backups is valid", func(t *testing.T) {
		cfg := Default()
		cfg.Log.MaxBackups = 0
		errs := cfg.Validate()

		if hasFieldError(errs, "log.max_backups") {
			t.Error("zero max_backups should be valid (no backups kept)")
		}
	})
}

func TestConfig_Validate_Paths(t *testing.T) {
	t.Run("empty paths are valid", func(t *testing.T) {
		cfg := Default()
		errs := cfg.Validate()

		if hasFieldError(errs, "paths.state_dir") || hasFieldError(errs, "paths.lock_dir") {
			t.Error("empty paths should be valid (defaults apply)")
		}
	})

	t.Run("null byte in state dir", func(t *testing.T) {
		cfg := Default()
		cfg.Paths.StateDir = "/var/\x00/state"
		errs := cfg.Validate()

		if !hasFieldError(errs, "paths.state_dir") {
			t.Error("expected error for state_dir with null byte")
		}
	})

	t.Run("null byte in lock dir", func(t *testing.T) {
		cfg := Default()
		cfg.Paths.LockDir = "/tmp/\x00"
		errs := cfg.Validate()

		if !hasFieldError(errs, "paths.lock_dir") {
			t.Error("expected error for lock_dir with null byte")
		}
	})

	t.Run("overlong lock dir", func(t *testing.T) {
		cfg := Default()
		cfg.Paths.LockDir = "/" + strings.Repeat("d", 5000)
		errs := cfg.Validate()

		if !hasFieldError(errs, "paths.lock_dir") {
			t.Error("expected error for overlong lock_dir")
		}
	})
}

func TestConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.TCP.Port = -1
	cfg.Bridge.Binary = ""
	cfg.Relay.BufferLines = 0
	cfg.Log.Level = "loud"

	errs := cfg.Validate()

	for _, field := range []string{"tcp.port", "bridge.binary", "relay.buffer_lines", "log.level"} {
		if !hasFieldError(errs, field) {
			t.Errorf("expected error for %s in combined validation", field)
		}
	}
	if len(errs) < 4 {
		t.Errorf("expected at least 4 errors, got %d: %v", len(errs), errs)
	}
}
