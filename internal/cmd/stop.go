package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/serial-tools/espbridge/internal/config"
	"github.com/serial-tools/espbridge/internal/errors"
	"github.com/serial-tools/espbridge/internal/portlock"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running bridge",
	Long: `Stop asks the supervisor of a running bridge to shut down, then waits
for it to release its port lock. The supervisor stops the bridge server
gracefully and escalates to a hard kill if it does not exit in time.`,
	RunE: runStop,
}

var stopTCPPort int

func init() {
	rootCmd.AddCommand(stopCmd)
	stopCmd.Flags().IntVarP(&stopTCPPort, "tcp-port", "t", 0, "TCP port of the bridge to stop (default: the configured port)")
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	port := resolveTCPPort(cfg, cmd.Flags().Changed("tcp-port"), stopTCPPort)
	lockDir := cfg.Paths.ResolveLockDir()

	rec, alive := portlock.Inspect(lockDir, port)
	if rec == nil {
		fmt.Printf("No bridge is registered on TCP port %d.\n", port)
		return nil
	}
	if !alive {
		fmt.Printf("The bridge on TCP port %d is already gone (stale lock from pid %d).\n", port, rec.PID)
		fmt.Println("Run 'espbridge clean' to remove the stale lock.")
		return nil
	}

	if err := terminateProcess(rec.PID); err != nil {
		return errors.Wrapf(err, "failed to signal the supervisor (pid %d)", rec.PID)
	}
	fmt.Printf("Stopping bridge on TCP port %d (pid %d)...\n", port, rec.PID)

	// Releasing the lock is the supervisor's last act before exiting, so
	// the lock disappearing means shutdown completed
	deadline := time.Now().Add(cfg.Bridge.StopGrace() + 5*time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(portlock.Path(lockDir, port)); os.IsNotExist(err) {
			fmt.Println("Bridge stopped.")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Println("Warning: the supervisor has not confirmed shutdown yet, check 'espbridge status'.")
	return nil
}

// resolveTCPPort picks the port a management command operates on: the
// flag when given, otherwise the configured port, with a disabled (zero)
// config port meaning the default.
func resolveTCPPort(cfg *config.Config, flagChanged bool, flagPort int) int {
	port := cfg.TCP.Port
	if flagChanged {
		port = flagPort
	}
	if port == 0 {
		port = config.DefaultTCPPort
	}
	return port
}
