//go:build windows

package cmd

import "os"

// terminateProcess stops a supervisor. Windows cannot deliver SIGTERM
// to an unrelated process, so the stop is immediate; the supervisor's
// own cleanup never runs and 'espbridge clean' may be needed after.
func terminateProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
