package launcher

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/serial-tools/espbridge/internal/errors"
)

// detachEnv marks the re-executed background supervisor so it knows to
// log to the state directory instead of the terminal.
const detachEnv = "ESPBRIDGE_DETACHED"

// IsDetached reports whether this process is the background supervisor
// spawned by Detach.
func IsDetached() bool {
	return os.Getenv(detachEnv) == "1"
}

// detachCommand builds the background re-execution of exe. The child
// carries the detach marker in its environment and no terminal stdio.
func detachCommand(exe string, args []string) *exec.Cmd {
	cmd := exec.Command(exe, args...)
	cmd.Env = append(os.Environ(), detachEnv+"=1")
	cmd.SysProcAttr = detachSysProcAttr()

	// No terminal: all output goes to the state dir logs
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	return cmd
}

// Detach re-executes the espbridge binary in the background, detached
// from the terminal, and returns the child's PID. args are passed
// verbatim; the caller includes the flag that keeps the child in the
// foreground so it does not detach again.
func Detach(args []string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, errors.Wrap(err, "failed to locate the espbridge executable")
	}

	cmd := detachCommand(exe, args)
	if err := cmd.Start(); err != nil {
		return 0, errors.NewStartError(
			fmt.Sprintf("failed to launch the background supervisor: %v", err),
			errors.ErrSpawnFailed,
		)
	}

	pid := cmd.Process.Pid

	// Let the supervisor outlive us
	if err := cmd.Process.Release(); err != nil {
		return pid, errors.Wrap(err, "failed to release the background supervisor")
	}

	return pid, nil
}
