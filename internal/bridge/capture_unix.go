//go:build !windows

package bridge

import (
	"io"
	"os/exec"

	"github.com/creack/pty"
)

// startWithCapture starts cmd with stdout and stderr merged onto a PTY and
// returns the master end for reading. The PTY keeps the child
// line-buffered, so output arrives promptly instead of in 4KB block
// flushes. Reads return an error once the child exits; the relay treats
// that as EOF.
func startWithCapture(cmd *exec.Cmd) (io.ReadCloser, error) {
	return pty.Start(cmd)
}
