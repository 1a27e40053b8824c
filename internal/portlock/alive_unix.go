//go:build !windows

package portlock

import (
	"errors"
	"os"
	"syscall"
)

// processAlive reports whether a process with the given PID is running.
// Signal 0 probes for existence without delivering anything; EPERM means
// the process exists but belongs to another user, which still counts.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
