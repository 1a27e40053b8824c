package bridge

import (
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/serial-tools/espbridge/internal/errors"
	"github.com/serial-tools/espbridge/internal/logging"
	"github.com/serial-tools/espbridge/internal/relay"
)

// Session is one supervised bridge server process.
//
// A session is created by [Controller.Start] and is already Starting or
// Running when the caller first sees it. The background monitor reaps the
// child whenever it exits and finishes the output relay, so Done is
// closed exactly once per session and the terminal marker is always
// delivered.
type Session struct {
	cfg     Config
	cmd     *exec.Cmd
	capture io.ReadCloser
	out     *relay.Relay
	logger  *logging.Logger

	mu       sync.Mutex
	state    State
	exitCode int

	done chan struct{}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PID returns the child process ID.
func (s *Session) PID() int {
	return s.cmd.Process.Pid
}

// Device returns the serial device this session bridges.
func (s *Session) Device() string {
	return s.cfg.Device
}

// TCPPort returns the TCP port the bridge server listens on.
func (s *Session) TCPPort() int {
	return s.cfg.TCPPort
}

// Output returns the relay carrying the child's merged output.
func (s *Session) Output() *relay.Relay {
	return s.out
}

// Done is closed once the child has been reaped and the terminal marker
// delivered.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// ExitCode returns the child's exit code. Valid once Done is closed;
// -1 means killed by a signal or not yet exited.
func (s *Session) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// Err reports how the session ended: nil for a requested stop, a crash
// error if the child exited on its own. Valid once Done is closed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCrashed {
		return nil
	}
	return errors.NewSessionError("bridge server exited unexpectedly", errors.ErrChildCrashed).
		WithDevice(s.cfg.Device).
		WithPort(s.cfg.TCPPort).
		WithExitCode(s.exitCode)
}

// Stop shuts the child down: graceful signal first, forced kill once the
// grace period expires. It blocks until the child is reaped and always
// returns within the grace period plus a small epsilon.
//
// Stopping a stopped or crashed session is a no-op. Needing the forced
// kill is reported as a StopTimeout error with warning severity; the
// session still ends up Stopped.
func (s *Session) Stop() error {
	s.mu.Lock()
	switch s.state {
	case StateStopped, StateCrashed:
		s.mu.Unlock()
		return nil
	case StateStopping:
		// Another Stop is in flight; wait for it to finish.
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.state = StateStopping
	grace := s.cfg.StopGrace
	s.mu.Unlock()

	s.logger.Info("stopping bridge server",
		"pid", s.cmd.Process.Pid,
		"grace", grace.String(),
	)

	if err := signalStop(s.cmd.Process); err != nil {
		// No graceful delivery on this platform, or the process is
		// already gone. The kill settles it either way.
		_ = s.cmd.Process.Kill()
	}

	select {
	case <-s.done:
		return nil
	case <-time.After(grace):
	}

	_ = s.cmd.Process.Kill()
	<-s.done

	return errors.NewSessionError("bridge server did not exit within the stop grace period", errors.ErrStopTimeout).
		WithDevice(s.cfg.Device).
		WithPort(s.cfg.TCPPort)
}

// monitor reaps the child and settles the session's final state. Runs on
// its own goroutine for the lifetime of the child.
func (s *Session) monitor() {
	err := s.cmd.Wait()
	code := exitCodeOf(err)

	s.mu.Lock()
	requested := s.state == StateStopping
	if requested {
		s.state = StateStopped
	} else {
		s.state = StateCrashed
	}
	s.exitCode = code
	s.mu.Unlock()

	kind := relay.KindStopped
	if !requested {
		kind = relay.KindCrashed
	}
	s.out.Finish(kind, code)
	_ = s.capture.Close()

	if requested {
		s.logger.Info("bridge server stopped", "exit_code", code)
	} else {
		s.logger.Warn("bridge server exited unexpectedly", "exit_code", code)
	}

	close(s.done)
}

// exitCodeOf extracts the child's exit code from cmd.Wait's error.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
