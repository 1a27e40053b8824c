//go:build windows

package bridge

import "os"

// signalStop attempts graceful termination. Sending os.Interrupt to
// another process is not implemented on Windows, so this normally returns
// an error and the caller falls through to the forced kill.
func signalStop(p *os.Process) error {
	return p.Signal(os.Interrupt)
}
