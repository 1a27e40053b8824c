//go:build unix

package cmd

import "syscall"

// terminateProcess asks a supervisor to shut down. SIGTERM runs the
// same graceful path as Ctrl-C in the foreground.
func terminateProcess(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}
