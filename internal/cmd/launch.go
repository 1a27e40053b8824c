package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/serial-tools/espbridge/internal/config"
	"github.com/serial-tools/espbridge/internal/errors"
	"github.com/serial-tools/espbridge/internal/launcher"
	"github.com/serial-tools/espbridge/internal/logging"
	"github.com/serial-tools/espbridge/internal/portlock"
	"github.com/serial-tools/espbridge/internal/ports"
	"github.com/serial-tools/espbridge/internal/tui/picker"
)

var (
	launchSerialPort string
	launchTCPPort    int
	launchForeground bool
)

func init() {
	rootCmd.Flags().StringVarP(&launchSerialPort, "serial-port", "s", "", "Serial device to bridge (e.g. /dev/ttyUSB0)")
	rootCmd.Flags().IntVarP(&launchTCPPort, "tcp-port", "t", 0, "TCP port to serve on (0 disables single-instance protection)")
	rootCmd.Flags().BoolVarP(&launchForeground, "foreground", "F", false, "Stay attached instead of launching in the background")
}

func runLaunch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags override the config file and environment
	if launchSerialPort != "" {
		cfg.Serial.Device = launchSerialPort
	}
	if cmd.Flags().Changed("tcp-port") {
		cfg.TCP.Port = launchTCPPort
	}

	if cfg.Serial.Device == "" {
		device, err := pickDevice()
		if err != nil {
			return err
		}
		if device == "" {
			// Picker cancelled
			return nil
		}
		cfg.Serial.Device = device
	}

	opts := launcher.OptionsFrom(cfg)

	if !launchForeground && !launcher.IsDetached() {
		return launchDetached(cfg, opts)
	}

	return supervise(cmd, cfg, opts)
}

// pickDevice runs the interactive port picker. It returns an empty
// string when the user cancels the picker.
func pickDevice() (string, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return "", errors.NewValidationError("no serial device specified (use --serial-port, or run interactively to pick one)")
	}

	devices, err := ports.List()
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", errors.NewValidationError("no serial ports found")
	}

	chosen, err := picker.Run(devices)
	if err != nil {
		return "", err
	}
	if chosen == nil {
		fmt.Println("No port selected.")
		return "", nil
	}
	return chosen.Path, nil
}

// launchDetached re-executes espbridge in the background and reports
// where the bridge ended up. The fast path avoids spawning a child
// that would immediately lose the lock to a live owner.
func launchDetached(cfg *config.Config, opts launcher.Options) error {
	if opts.Protected {
		if rec, alive := portlock.Inspect(opts.LockDir, opts.TCPPort); alive {
			printAlreadyRunning(opts.TCPPort, rec.PID)
			return nil
		}
	}

	// The child re-reads config and environment; only flag overrides and
	// the picker's choice need forwarding. The unresolved port keeps
	// tcp.port=0 meaning "unprotected" in the child too.
	childArgs := []string{
		"--foreground",
		"--serial-port", opts.Device,
		"--tcp-port", strconv.Itoa(cfg.TCP.Port),
	}

	pid, err := launcher.Detach(childArgs)
	if err != nil {
		return err
	}

	fmt.Printf("Launched espbridge in the background (pid %d)\n", pid)
	fmt.Printf("  Device:  %s\n", opts.Device)
	fmt.Printf("  TCP:     rfc2217://localhost:%d\n", opts.TCPPort)
	fmt.Printf("  Output:  %s\n", launcher.SessionLogPath(opts.StateDir, opts.TCPPort))
	fmt.Println("\nStop it with 'espbridge stop'.")
	return nil
}

// supervise runs the bridge supervisor in this process, either because
// --foreground was given or because this is the detached copy.
func supervise(cmd *cobra.Command, cfg *config.Config, opts launcher.Options) error {
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	if !launcher.IsDetached() {
		// Interactive foreground: mirror the bridge output to the
		// terminal and announce readiness
		opts.Echo = os.Stdout
		opts.OnReady = func(pid int) {
			fmt.Printf("Bridge ready on rfc2217://localhost:%d (pid %d), press Ctrl-C to stop\n", opts.TCPPort, pid)
		}
	}

	return reportLaunchResult(launcher.New(opts, logger).Run(cmd.Context()), opts)
}

// buildLogger routes espbridge's own diagnostics to the state dir. The
// detached copy has no terminal, so a file is the only place they can go.
func buildLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Log.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLoggerWithRotation(cfg.Paths.ResolveStateDir(), cfg.Log.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
}

// reportLaunchResult translates supervisor errors into exit behavior.
// Informational outcomes and warnings exit zero; real failures propagate.
func reportLaunchResult(err error, opts launcher.Options) error {
	if err == nil {
		return nil
	}

	if errors.IsInformational(err) {
		var lockErr *errors.LockError
		if errors.As(err, &lockErr) && lockErr.OwnerPID > 0 {
			printAlreadyRunning(opts.TCPPort, lockErr.OwnerPID)
		} else {
			fmt.Println(err)
		}
		return nil
	}

	if errors.GetSeverity(err) == errors.SeverityWarning {
		fmt.Printf("Warning: %v\n", err)
		return nil
	}

	return err
}

func printAlreadyRunning(port, ownerPID int) {
	fmt.Printf("espbridge is already running on TCP port %d (pid %d)\n", port, ownerPID)
	fmt.Println("Use 'espbridge stop' to stop it, or pick another port with --tcp-port.")
}
