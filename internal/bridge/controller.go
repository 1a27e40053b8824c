package bridge

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"sync"

	"github.com/serial-tools/espbridge/internal/errors"
	"github.com/serial-tools/espbridge/internal/logging"
	"github.com/serial-tools/espbridge/internal/relay"
)

// Controller spawns bridge sessions and enforces that at most one is
// Starting or Running at a time.
type Controller struct {
	logger *logging.Logger

	mu     sync.Mutex
	active *Session
}

// NewController creates a controller. A nil logger is replaced with a
// no-op logger.
func NewController(logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Controller{logger: logger}
}

// Active returns the most recent session, which may have reached a
// terminal state, or nil if Start never succeeded.
func (c *Controller) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Start launches the bridge server described by cfg and supervises it.
//
// Output is streamed through out from the moment the child is spawned;
// pass nil to let the session create its own relay. Start returns once
// the session is Running: either the readiness probe connected to the
// server's TCP port, or the readiness window elapsed with the child still
// alive.
//
// On any error no session remains: a child that died during startup has
// been reaped (its exit code and last output are in the error and the
// relay), and a canceled ctx stops the child before returning.
func (c *Controller) Start(ctx context.Context, cfg Config, out *relay.Relay) (*Session, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	binary, err := LocateBinary(cfg.Binary)
	if err != nil {
		return nil, err
	}

	if err := probePort(cfg.TCPPort); err != nil {
		return nil, errors.NewStartError("tcp port is already bound by another process", errors.ErrPortUnavailable).
			WithPort(cfg.TCPPort)
	}

	if out == nil {
		out = relay.New(defaultBufferLines)
	}

	logger := c.logger.WithPort(cfg.TCPPort).WithDevice(cfg.Device)

	session := &Session{
		cfg:      cfg,
		out:      out,
		logger:   logger,
		state:    StateStarting,
		exitCode: -1,
		done:     make(chan struct{}),
	}

	// Claim the active slot before spawning so two concurrent Starts
	// cannot both proceed.
	c.mu.Lock()
	if c.active != nil && !c.active.State().terminal() {
		port := c.active.cfg.TCPPort
		c.mu.Unlock()
		return nil, errors.NewStartError("a bridge session is already active", errors.ErrSessionActive).
			WithPort(port)
	}
	c.active = session
	c.mu.Unlock()

	// esp_rfc2217_server -p <tcpPort> <serialDevice>
	cmd := exec.Command(binary, "-p", strconv.Itoa(cfg.TCPPort), cfg.Device)
	capture, err := startWithCapture(cmd)
	if err != nil {
		c.clearActive(session)
		return nil, errors.NewStartError(fmt.Sprintf("spawn failed: %v", err), errors.ErrSpawnFailed).
			WithBinary(binary).
			WithDevice(cfg.Device).
			WithPort(cfg.TCPPort)
	}
	session.cmd = cmd
	session.capture = capture

	logger.Info("bridge server spawned",
		"pid", cmd.Process.Pid,
		"binary", binary,
	)

	out.Start(capture)
	go session.monitor()

	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	addr := net.JoinHostPort(host, strconv.Itoa(cfg.TCPPort))

	switch waitForPort(ctx, addr, cfg.ReadyTimeout, session.done) {
	case readyAccepted:
		logger.Info("bridge server ready", "addr", addr)

	case readyWindowElapsed:
		logger.Warn("readiness window elapsed, assuming the server is up",
			"addr", addr,
			"window", cfg.ReadyTimeout.String(),
		)

	case readyChildExited:
		c.clearActive(session)
		return nil, errors.NewSessionError("bridge server exited during startup", errors.ErrChildCrashed).
			WithDevice(cfg.Device).
			WithPort(cfg.TCPPort).
			WithExitCode(session.ExitCode())

	case readyCanceled:
		_ = session.Stop()
		c.clearActive(session)
		return nil, errors.Wrap(errors.ErrCanceled, "launch canceled during startup")
	}

	// The child may have crashed in the instant after the probe; never
	// overwrite a terminal state.
	session.mu.Lock()
	if session.state == StateStarting {
		session.state = StateRunning
	}
	session.mu.Unlock()

	return session, nil
}

// clearActive releases the active slot if s still holds it.
func (c *Controller) clearActive(s *Session) {
	c.mu.Lock()
	if c.active == s {
		c.active = nil
	}
	c.mu.Unlock()
}

// probePort verifies the child's bind address is free by briefly
// listening on it. The server binds all interfaces, so the probe does
// too.
func probePort(port int) error {
	l, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	return l.Close()
}
