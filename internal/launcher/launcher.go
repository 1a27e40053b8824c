// Package launcher runs the espbridge supervisor: it takes the port
// lock, spawns the bridge server, streams the server's output to the
// session log, and shuts the server down when asked. The launch command
// runs it directly in the foreground or re-executes itself detached and
// lets the background copy run it.
package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/serial-tools/espbridge/internal/bridge"
	"github.com/serial-tools/espbridge/internal/config"
	"github.com/serial-tools/espbridge/internal/errors"
	"github.com/serial-tools/espbridge/internal/logging"
	"github.com/serial-tools/espbridge/internal/portlock"
	"github.com/serial-tools/espbridge/internal/ports"
	"github.com/serial-tools/espbridge/internal/relay"
)

// Options configure one supervisor run.
type Options struct {
	// Device is the serial device to bridge.
	Device string

	// TCPPort is the port the bridge server listens on. Always concrete;
	// OptionsFrom resolves a disabled (zero) config port to the default.
	TCPPort int

	// Protected controls single-instance protection. When false the
	// supervisor skips the port lock entirely.
	Protected bool

	// Host is the address used for the readiness probe. Empty means
	// localhost.
	Host string

	// Binary is the bridge server executable name or path.
	Binary string

	ReadyTimeout time.Duration
	StopGrace    time.Duration

	// BufferLines sizes the relay ring and subscriber channels.
	BufferLines int

	// ReplayLines bounds how much recent output is pulled into the
	// debug log when the server fails at startup.
	ReplayLines int

	// WatchDevice enables the device node watcher.
	WatchDevice bool

	StateDir string
	LockDir  string

	// SessionLog controls rotation of the session output log.
	SessionLog logging.RotationConfig

	// Echo, when set, receives a copy of every output line. The launch
	// command points it at stdout in foreground mode.
	Echo io.Writer

	// OnReady, when set, is called once the bridge server is accepting
	// connections (or its readiness window elapsed).
	OnReady func(pid int)
}

// OptionsFrom maps the loaded configuration onto supervisor options.
// Command-line overrides are applied by the caller afterwards.
func OptionsFrom(cfg *config.Config) Options {
	port := cfg.TCP.Port
	protected := port != 0
	if port == 0 {
		port = config.DefaultTCPPort
	}

	return Options{
		Device:       cfg.Serial.Device,
		TCPPort:      port,
		Protected:    protected,
		Host:         cfg.TCP.Host,
		Binary:       cfg.Bridge.Binary,
		ReadyTimeout: cfg.Bridge.ReadyTimeout(),
		StopGrace:    cfg.Bridge.StopGrace(),
		BufferLines:  cfg.Relay.BufferLines,
		ReplayLines:  cfg.Relay.ReplayLines,
		WatchDevice:  cfg.Serial.WatchDevice,
		StateDir:     cfg.Paths.ResolveStateDir(),
		LockDir:      cfg.Paths.ResolveLockDir(),
		SessionLog: logging.RotationConfig{
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		},
	}
}

// SessionLogPath returns where the supervisor for the given port writes
// the bridge server's output.
func SessionLogPath(stateDir string, port int) string {
	return filepath.Join(stateDir, fmt.Sprintf("espbridge-%d.log", port))
}

// Launcher supervises a single bridge session from launch to exit.
type Launcher struct {
	opts   Options
	logger *logging.Logger
	ctrl   *bridge.Controller
}

// New creates a Launcher. A nil logger disables logging.
func New(opts Options, logger *logging.Logger) *Launcher {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Launcher{
		opts:   opts,
		logger: logger.WithComponent("launcher").WithPort(opts.TCPPort).WithDevice(opts.Device),
		ctrl:   bridge.NewController(logger),
	}
}

// Run supervises one bridge session: acquire the port lock, spawn the
// bridge server, stream its output to the session log, and stop it when
// the context is canceled or a termination signal arrives. Run blocks
// until the server is gone and the lock is released.
//
// The error is nil after a clean shutdown. ErrAlreadyRunning means
// another espbridge owns the port and nothing was started. A stop that
// needed SIGKILL returns ErrStopTimeout with warning severity; the
// session still ended.
func (l *Launcher) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if l.opts.Protected {
		lock, err := portlock.Acquire(l.opts.LockDir, l.opts.TCPPort, l.logger)
		if err != nil {
			return err
		}
		defer func() {
			if rerr := lock.Release(); rerr != nil {
				l.logger.Warn("failed to release port lock", "error", rerr)
			}
		}()
	} else {
		l.logger.Info("port lock disabled, duplicate launches are not prevented")
	}

	out := relay.New(l.opts.BufferLines)
	sub := out.Attach(0)

	logPath := SessionLogPath(l.opts.StateDir, l.opts.TCPPort)
	writer, err := logging.NewRotatingWriter(logPath, l.opts.SessionLog)
	if err != nil {
		sub.Close()
		return errors.Wrap(err, "failed to open the session log")
	}
	defer func() {
		_ = writer.Close()
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for line := range sub.Lines() {
			if _, werr := writer.Write([]byte(line.Text + "\n")); werr != nil {
				l.logger.Warn("session log write failed", "error", werr)
			}
			if l.opts.Echo != nil {
				fmt.Fprintln(l.opts.Echo, line.Text)
			}
		}
	}()
	// Closing the subscriber ends the writer goroutine on every path,
	// including start failures where the relay never finishes.
	defer func() {
		sub.Close()
		<-writerDone
	}()

	sess, err := l.ctrl.Start(ctx, bridge.Config{
		Device:       l.opts.Device,
		TCPPort:      l.opts.TCPPort,
		Host:         l.opts.Host,
		Binary:       l.opts.Binary,
		ReadyTimeout: l.opts.ReadyTimeout,
		StopGrace:    l.opts.StopGrace,
	}, out)
	if err != nil {
		// Pull the server's dying output into the debug log so a
		// detached launch failure is diagnosable from there alone
		if tail := out.Recent(l.opts.ReplayLines); len(tail) > 0 {
			lines := make([]string, len(tail))
			for i, ln := range tail {
				lines[i] = ln.Text
			}
			l.logger.Error("bridge server failed at startup",
				"output", strings.Join(lines, "\n"))
		}
		return err
	}

	var watchEvents <-chan ports.Event
	if l.opts.WatchDevice {
		watcher, werr := ports.NewWatcher(l.opts.Device, l.logger)
		if werr != nil {
			l.logger.Warn("device watch unavailable", "error", werr)
		} else {
			watcher.Start()
			defer watcher.Close()
			watchEvents = watcher.Events()
		}
	}

	l.logger.Info("supervising bridge session", "pid", sess.PID(), "session_log", logPath)
	if l.opts.OnReady != nil {
		l.opts.OnReady(sess.PID())
	}

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("shutdown requested")
			stopErr := sess.Stop()
			if stopErr != nil {
				l.logger.Warn("bridge server stop was not clean", "error", stopErr)
			}
			return stopErr

		case ev := <-watchEvents:
			switch ev.Kind {
			case ports.DeviceGone:
				l.logger.Warn("serial device disappeared while the bridge is running")
			case ports.DeviceBack:
				l.logger.Info("serial device reappeared")
			}

		case <-sess.Done():
			return sess.Err()
		}
	}
}
