//go:build !windows

package bridge

import (
	"os"
	"syscall"
)

// signalStop delivers the graceful termination signal to the child.
func signalStop(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
