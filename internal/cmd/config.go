package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/serial-tools/espbridge/internal/config"
	"github.com/serial-tools/espbridge/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify espbridge configuration",
	Long: `View or modify espbridge configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  espbridge config set serial.device /dev/ttyUSB0
  espbridge config set tcp.port 4000
  espbridge config set log.level debug

Valid keys:
  serial.device                - Serial device to bridge by default
  serial.watch_device          - Watch the device node while bridging (true/false)
  tcp.port                     - TCP port to serve on (0 disables single-instance protection)
  tcp.host                     - Host used for the readiness probe
  bridge.binary                - Bridge server executable name or path
  bridge.ready_timeout_seconds - How long to wait for the server to accept connections
  bridge.stop_grace_seconds    - Grace period before a stop escalates to SIGKILL
  relay.buffer_lines           - Output lines buffered for replay and subscribers
  relay.replay_lines           - Output lines pulled into the debug log on startup failure
  log.enabled                  - Write espbridge's own structured log (true/false)
  log.level                    - Minimum level for the structured log
  log.max_size_mb              - Log size that triggers rotation
  log.max_backups              - Rotated log files to keep
  paths.state_dir              - Where session output and debug logs live
  paths.lock_dir               - Where port locks live`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/espbridge/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	fmt.Println("Current configuration:")
	fmt.Println()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	fmt.Println("serial:")
	fmt.Printf("  device: %s\n", orUnset(cfg.Serial.Device))
	fmt.Printf("  watch_device: %v\n", cfg.Serial.WatchDevice)

	fmt.Println("tcp:")
	fmt.Printf("  port: %d\n", cfg.TCP.Port)
	fmt.Printf("  host: %s\n", orUnset(cfg.TCP.Host))

	fmt.Println("bridge:")
	fmt.Printf("  binary: %s\n", cfg.Bridge.Binary)
	fmt.Printf("  ready_timeout_seconds: %d\n", cfg.Bridge.ReadyTimeoutSeconds)
	fmt.Printf("  stop_grace_seconds: %d\n", cfg.Bridge.StopGraceSeconds)

	fmt.Println("relay:")
	fmt.Printf("  buffer_lines: %d\n", cfg.Relay.BufferLines)
	fmt.Printf("  replay_lines: %d\n", cfg.Relay.ReplayLines)

	fmt.Println("log:")
	fmt.Printf("  enabled: %v\n", cfg.Log.Enabled)
	fmt.Printf("  level: %s\n", cfg.Log.Level)
	fmt.Printf("  max_size_mb: %d\n", cfg.Log.MaxSizeMB)
	fmt.Printf("  max_backups: %d\n", cfg.Log.MaxBackups)

	fmt.Println("paths:")
	fmt.Printf("  state_dir: %s\n", cfg.Paths.ResolveStateDir())
	fmt.Printf("  lock_dir: %s\n", cfg.Paths.ResolveLockDir())

	return nil
}

// orUnset makes empty string values readable in the config listing.
func orUnset(value string) string {
	if value == "" {
		return "(unset)"
	}
	return value
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Validate the key exists
	validKeys := map[string]string{
		"serial.device":                "string",
		"serial.watch_device":          "bool",
		"tcp.port":                     "int",
		"tcp.host":                     "string",
		"bridge.binary":                "string",
		"bridge.ready_timeout_seconds": "int",
		"bridge.stop_grace_seconds":    "int",
		"relay.buffer_lines":           "int",
		"relay.replay_lines":           "int",
		"log.enabled":                  "bool",
		"log.level":                    "level",
		"log.max_size_mb":              "int",
		"log.max_backups":              "int",
		"paths.state_dir":              "string",
		"paths.lock_dir":               "string",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'espbridge config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue interface{}
	switch keyType {
	case "string":
		typedValue = value
	case "level":
		if !isValidLevel(value) {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(logging.ValidLevels(), ", "))
		}
		typedValue = strings.ToLower(value)
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set the value in viper
	viper.Set(key, typedValue)

	// Write to config file
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Set %s = %v\n", key, typedValue)
	fmt.Printf("Config saved to %s\n", configFile)

	return nil
}

// isValidLevel reports whether value names a known log level.
func isValidLevel(value string) bool {
	upper := strings.ToUpper(value)
	for _, level := range logging.ValidLevels() {
		if upper == level {
			return true
		}
	}
	return false
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'espbridge config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# espbridge configuration

# Serial side of the bridge
serial:
  # Device to bridge when --serial-port is not given.
  # Leave empty to pick interactively.
  device: ""
  # Watch the device node and log when it disappears or comes back
  watch_device: true

# TCP side of the bridge
tcp:
  # Port the bridge server listens on. Setting one (2217 is the
  # convention) activates single-instance protection for it; 0 keeps
  # the server's built-in default with no protection.
  port: 0
  # Host used for the readiness probe (empty means localhost)
  host: ""

# Bridge server process
bridge:
  # Executable name or path of the rfc2217 server
  binary: esp_rfc2217_server
  # How long to wait for the server to start accepting connections
  ready_timeout_seconds: 10
  # Grace period between SIGTERM and SIGKILL on stop
  stop_grace_seconds: 5

# Output relay (advanced)
relay:
  # Output lines buffered for late subscribers
  buffer_lines: 256
  # Output lines copied into the debug log when startup fails
  replay_lines: 200

# espbridge's own structured log
log:
  enabled: true
  # debug, info, warn, or error
  level: info
  # Rotate the log once it exceeds this size
  max_size_mb: 10
  # Rotated files to keep
  max_backups: 3

# State locations (advanced). Empty means the platform default.
paths:
  state_dir: ""
  lock_dir: ""
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	fmt.Println("Edit this file to customize espbridge's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Default path: %s (not created)\n", configFile)
	}

	fmt.Println("\nEnvironment variables: ESPBRIDGE_* (e.g., ESPBRIDGE_TCP_PORT)")

	return nil
}
