package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultTCPPort is the TCP port RFC2217 servers conventionally listen on.
// It is both our default for tcp.port and the port the bridge binary
// falls back to when launched without one.
const DefaultTCPPort = 2217

// DefaultBinaryName is the bridge server binary launched for each session.
const DefaultBinaryName = "esp_rfc2217_server"

// Config represents the complete espbridge configuration
type Config struct {
	Serial SerialConfig `mapstructure:"serial"`
	TCP    TCPConfig    `mapstructure:"tcp"`
	Bridge BridgeConfig `mapstructure:"bridge"`
	Relay  RelayConfig  `mapstructure:"relay"`
	Log    LogConfig    `mapstructure:"log"`
	Paths  PathsConfig  `mapstructure:"paths"`
}

// SerialConfig controls which serial device is bridged
type SerialConfig struct {
	// Device is the serial device path to bridge (e.g. "/dev/ttyUSB0", "COM3").
	// Empty means the device must be supplied on the command line.
	Device string `mapstructure:"device"`
	// WatchDevice enables watching the device node and logging a warning
	// when it disappears while a bridge is running (default: true)
	WatchDevice bool `mapstructure:"watch_device"`
}

// TCPConfig controls the network side of the bridge
type TCPConfig struct {
	// Port is the TCP port the bridge server listens on. Supplying a
	// port activates single-instance protection for it: a second launch
	// against the same port exits instead of starting a duplicate
	// server. When unset (0) the server uses the conventional port 2217
	// and no protection applies.
	Port int `mapstructure:"port"`
	// Host is the address used when probing the server for readiness.
	// Empty means localhost. The server itself always binds all interfaces.
	Host string `mapstructure:"host"`
}

// BridgeConfig controls how the bridge server child process is run
type BridgeConfig struct {
	// Binary is the bridge server executable name or path (default: "esp_rfc2217_server").
	// Bare names are resolved next to the espbridge executable first, then on PATH.
	Binary string `mapstructure:"binary"`
	// ReadyTimeoutSeconds is how long to wait for the server to accept
	// TCP connections before assuming it is up anyway (default: 10)
	ReadyTimeoutSeconds int `mapstructure:"ready_timeout_seconds"`
	// StopGraceSeconds is how long a graceful stop waits before the
	// child is killed outright (default: 5)
	StopGraceSeconds int `mapstructure:"stop_grace_seconds"`
}

// RelayConfig controls output streaming from the child process
type RelayConfig struct {
	// BufferLines is the per-subscriber channel capacity. A subscriber
	// that falls behind by more than this loses its oldest lines (default: 256)
	BufferLines int `mapstructure:"buffer_lines"`
	// ReplayLines is how many recent lines are retained for replay to
	// subscribers that attach after the bridge started (default: 200)
	ReplayLines int `mapstructure:"replay_lines"`
}

// LogConfig controls debug logging behavior
type LogConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// PathsConfig controls where espbridge stores data
type PathsConfig struct {
	// StateDir is the directory for logs and session state.
	// If empty, defaults to the XDG state directory
	// (usually ~/.local/state/espbridge).
	// Supports ~ for home directory expansion.
	StateDir string `mapstructure:"state_dir"`

	// LockDir is the directory where per-port lock files are created.
	// If empty, defaults to the system temporary directory. All launches
	// that should exclude each other must agree on this directory.
	// Supports ~ for home directory expansion.
	LockDir string `mapstructure:"lock_dir"`
}

// ResolveStateDir returns the resolved state directory path.
// If StateDir is empty, it returns the default XDG state directory.
// If StateDir starts with ~, it expands to the user's home directory.
func (p *PathsConfig) ResolveStateDir() string {
	if p.StateDir == "" {
		return DefaultStateDir()
	}
	return expandHome(p.StateDir)
}

// ResolveLockDir returns the resolved lock directory path.
// If LockDir is empty, it returns the system temporary directory.
// If LockDir starts with ~, it expands to the user's home directory.
func (p *PathsConfig) ResolveLockDir() string {
	if p.LockDir == "" {
		return os.TempDir()
	}
	return expandHome(p.LockDir)
}

// expandHome expands a leading ~ to the user's home directory
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			return home
		}
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Device:      "", // Must come from the command line when empty
			WatchDevice: true,
		},
		TCP: TCPConfig{
			Port: 0,  // Unset; the bridge serves the conventional port unprotected
			Host: "", // Empty means probe via localhost
		},
		Bridge: BridgeConfig{
			Binary:              DefaultBinaryName,
			ReadyTimeoutSeconds: 10,
			StopGraceSeconds:    5,
		},
		Relay: RelayConfig{
			BufferLines: 256,
			ReplayLines: 200,
		},
		Log: LogConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Paths: PathsConfig{
			StateDir: "", // Empty means use the XDG state directory
			LockDir:  "", // Empty means use the system temp directory
		},
	}
}

// ReadyTimeout returns the readiness timeout as a time.Duration
func (c *BridgeConfig) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutSeconds) * time.Second
}

// StopGrace returns the graceful stop window as a time.Duration
func (c *BridgeConfig) StopGrace() time.Duration {
	return time.Duration(c.StopGraceSeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Serial defaults
	viper.SetDefault("serial.device", defaults.Serial.Device)
	viper.SetDefault("serial.watch_device", defaults.Serial.WatchDevice)

	// TCP defaults
	viper.SetDefault("tcp.port", defaults.TCP.Port)
	viper.SetDefault("tcp.host", defaults.TCP.Host)

	// Bridge defaults
	viper.SetDefault("bridge.binary", defaults.Bridge.Binary)
	viper.SetDefault("bridge.ready_timeout_seconds", defaults.Bridge.ReadyTimeoutSeconds)
	viper.SetDefault("bridge.stop_grace_seconds", defaults.Bridge.StopGraceSeconds)

	// Relay defaults
	viper.SetDefault("relay.buffer_lines", defaults.Relay.BufferLines)
	viper.SetDefault("relay.replay_lines", defaults.Relay.ReplayLines)

	// Log defaults
	viper.SetDefault("log.enabled", defaults.Log.Enabled)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.max_size_mb", defaults.Log.MaxSizeMB)
	viper.SetDefault("log.max_backups", defaults.Log.MaxBackups)

	// Paths defaults
	viper.SetDefault("paths.state_dir", defaults.Paths.StateDir)
	viper.SetDefault("paths.lock_dir", defaults.Paths.LockDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "espbridge")
	}
	// Fall back to ~/.config/espbridge
	home, err := os.UserHomeDir()
	if err != nil {
		return ".espbridge"
	}
	return filepath.Join(home, ".config", "espbridge")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultStateDir returns the path to the user's state directory, used for
// debug and session logs
func DefaultStateDir() string {
	// Check XDG_STATE_HOME first
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "espbridge")
	}
	// Fall back to ~/.local/state/espbridge
	home, err := os.UserHomeDir()
	if err != nil {
		return ".espbridge"
	}
	return filepath.Join(home, ".local", "state", "espbridge")
}
