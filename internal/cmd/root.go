// Package cmd implements the espbridge command line interface.
package cmd

import (
	"strings"

	"github.com/serial-tools/espbridge/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "espbridge",
	Short: "Share a serial device over TCP",
	Long: `espbridge exposes a local serial device over TCP by launching and
supervising an esp_rfc2217_server instance.

Run it with a serial device to start a bridge in the background:

  espbridge --serial-port /dev/ttyUSB0

Without --serial-port it lists the available ports and lets you pick one.
The bridge keeps running after espbridge returns; use 'espbridge status'
to see it and 'espbridge stop' to shut it down. Tools connect to the
bridge with an rfc2217 URL, e.g. esptool --port rfc2217://localhost:2217.`,
	Args: cobra.NoArgs,
	RunE: runLaunch,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
}

// initConfig sets up viper to read from config file and environment
func initConfig() {
	// Register defaults first
	config.SetDefaults()

	// Look for config in ~/.config/espbridge/config.yaml
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(config.ConfigDir())

	// Environment variables: ESPBRIDGE_TCP_PORT, ESPBRIDGE_SERIAL_DEVICE, etc.
	viper.SetEnvPrefix("ESPBRIDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Ignore error if config file doesn't exist (it's optional)
	_ = viper.ReadInConfig()
}
