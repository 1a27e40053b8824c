package bridge

import (
	"time"

	"github.com/serial-tools/espbridge/internal/errors"
)

// Defaults applied by Start when the corresponding Config field is zero.
const (
	defaultBinaryName   = "esp_rfc2217_server"
	defaultReadyTimeout = 10 * time.Second
	defaultStopGrace    = 5 * time.Second
	defaultBufferLines  = 256
)

// Config describes one bridge session.
type Config struct {
	// Device is the serial device the server should expose, e.g.
	// /dev/ttyUSB0 or COM3. Required.
	Device string

	// TCPPort is the port the server listens on. Required; the server
	// binds all interfaces.
	TCPPort int

	// Host is the address dialed by the readiness probe. Empty means
	// localhost.
	Host string

	// Binary overrides the server executable. A name is resolved next to
	// our own executable first, then on PATH; a path with a separator is
	// used as-is. Empty means esp_rfc2217_server.
	Binary string

	// ReadyTimeout bounds how long Start waits for the TCP port to accept
	// connections before declaring the session running anyway.
	ReadyTimeout time.Duration

	// StopGrace is how long Stop waits after the graceful signal before
	// force killing the child.
	StopGrace time.Duration
}

// withDefaults returns a copy with zero fields replaced by defaults.
func (c Config) withDefaults() Config {
	if c.Binary == "" {
		c.Binary = defaultBinaryName
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = defaultReadyTimeout
	}
	if c.StopGrace <= 0 {
		c.StopGrace = defaultStopGrace
	}
	return c
}

// validate checks the fields a session cannot run without.
func (c Config) validate() error {
	if c.Device == "" {
		return errors.NewValidationError("serial device is required").
			WithField("device")
	}
	if c.TCPPort < 1 || c.TCPPort > 65535 {
		return errors.NewValidationError("tcp port must be between 1 and 65535").
			WithField("tcp_port").
			WithValue(c.TCPPort)
	}
	return nil
}
