package bridge

import (
	"testing"
	"time"

	"github.com/serial-tools/espbridge/internal/errors"
)

func TestConfig_WithDefaults(t *testing.T) {
	t.Run("fills zero fields", func(t *testing.T) {
		cfg := Config{Device: "/dev/ttyUSB0", TCPPort: 2217}.withDefaults()

		if cfg.Binary != "esp_rfc2217_server" {
			t.Errorf("Binary = %q, want esp_rfc2217_server", cfg.Binary)
		}
		if cfg.ReadyTimeout != 10*time.Second {
			t.Errorf("ReadyTimeout = %v, want 10s", cfg.ReadyTimeout)
		}
		if cfg.StopGrace != 5*time.Second {
			t.Errorf("StopGrace = %v, want 5s", cfg.StopGrace)
		}
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		cfg := Config{
			Device:       "/dev/ttyUSB0",
			TCPPort:      4000,
			Binary:       "/opt/bin/custom_server",
			ReadyTimeout: 2 * time.Second,
			StopGrace:    time.Second,
		}.withDefaults()

		if cfg.Binary != "/opt/bin/custom_server" {
			t.Errorf("Binary overridden: %q", cfg.Binary)
		}
		if cfg.ReadyTimeout != 2*time.Second {
			t.Errorf("ReadyTimeout overridden: %v", cfg.ReadyTimeout)
		}
		if cfg.StopGrace != time.Second {
			t.Errorf("StopGrace overridden: %v", cfg.StopGrace)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid",
			cfg:     Config{Device: "/dev/ttyUSB0", TCPPort: 2217},
			wantErr: false,
		},
		{
			name:    "missing device",
			cfg:     Config{TCPPort: 2217},
			wantErr: true,
		},
		{
			name:    "port zero",
			cfg:     Config{Device: "/dev/ttyUSB0", TCPPort: 0},
			wantErr: true,
		},
		{
			name:    "port too large",
			cfg:     Config{Device: "/dev/ttyUSB0", TCPPort: 65536},
			wantErr: true,
		},
		{
			name:    "negative port",
			cfg:     Config{Device: "/dev/ttyUSB0", TCPPort: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr {
				var verr *errors.ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("expected *ValidationError, got %T", err)
				}
			}
		})
	}
}
