//go:build windows

package bridge

import (
	"io"
	"os"
	"os/exec"
)

// startWithCapture starts cmd with stdout and stderr merged onto a shared
// pipe and returns the read end. Windows has no PTY equivalent we can hand
// to an arbitrary child, so block buffering in the child is accepted here.
func startWithCapture(cmd *exec.Cmd) (io.ReadCloser, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, err
	}

	// The child holds its own handle now; closing ours lets the read end
	// see EOF when the child exits.
	_ = pw.Close()

	return pr, nil
}
