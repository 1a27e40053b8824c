//go:build unix

package launcher

import "syscall"

// detachSysProcAttr detaches the background supervisor from the
// controlling terminal. On Unix, a new session does that; the
// supervisor survives the terminal closing.
func detachSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid: true, // Create new session, detach from controlling terminal
	}
}
