//go:build windows

package portlock

import (
	"errors"
	"os"
)

// processAlive reports whether a process with the given PID is running.
// On Windows, FindProcess opens a real process handle and fails for PIDs
// that no longer exist. A handle can still be opened briefly for an
// exited process, so a nil-signal probe catches those via ErrProcessDone;
// any other probe error means the handle is live.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	defer func() { _ = p.Release() }()

	if err := p.Signal(nil); errors.Is(err, os.ErrProcessDone) {
		return false
	}
	return true
}
