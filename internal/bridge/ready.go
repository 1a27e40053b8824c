package bridge

import (
	"context"
	"net"
	"time"
)

// readyResult is the outcome of a readiness wait.
type readyResult int

const (
	// readyAccepted means the server accepted a TCP connection.
	readyAccepted readyResult = iota
	// readyWindowElapsed means the window passed with the child still
	// alive. The server may simply not accept probe connections; the
	// session is treated as running.
	readyWindowElapsed
	// readyChildExited means the child died before becoming ready.
	readyChildExited
	// readyCanceled means the context was canceled.
	readyCanceled
)

const (
	readyPollInterval = 100 * time.Millisecond
	readyDialTimeout  = 250 * time.Millisecond
)

// waitForPort polls addr until it accepts a TCP connection, the child
// exits, the window elapses, or ctx is canceled.
func waitForPort(ctx context.Context, addr string, window time.Duration, childDone <-chan struct{}) readyResult {
	deadline := time.NewTimer(window)
	defer deadline.Stop()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return readyCanceled
		case <-childDone:
			return readyChildExited
		case <-deadline.C:
			return readyWindowElapsed
		case <-ticker.C:
			conn, err := net.DialTimeout("tcp", addr, readyDialTimeout)
			if err == nil {
				_ = conn.Close()
				return readyAccepted
			}
		}
	}
}
