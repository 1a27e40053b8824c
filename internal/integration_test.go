// Package internal contains integration tests that exercise several
// espbridge packages together: a supervisor holding the port lock, a
// duplicate launch bouncing off it, and stale state giving way to a
// fresh session. Behavior owned by a single package lives in that
// package's tests; these cover the seams.
package internal

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/serial-tools/espbridge/internal/errors"
	"github.com/serial-tools/espbridge/internal/launcher"
	"github.com/serial-tools/espbridge/internal/logging"
	"github.com/serial-tools/espbridge/internal/portlock"
	"github.com/serial-tools/espbridge/internal/testutil"
)

// gracefulBody runs until SIGTERM, then exits cleanly.
const gracefulBody = "trap 'exit 0' TERM\nwhile :; do sleep 0.05; done\n"

// launchOptions returns supervisor options with every path pointed at
// temp directories and a short readiness window.
func launchOptions(t *testing.T, binary string) launcher.Options {
	t.Helper()

	return launcher.Options{
		Device:       "/dev/null",
		TCPPort:      testutil.FreeTCPPort(t),
		Protected:    true,
		Binary:       binary,
		ReadyTimeout: 150 * time.Millisecond,
		StopGrace:    5 * time.Second,
		BufferLines:  64,
		ReplayLines:  50,
		StateDir:     t.TempDir(),
		LockDir:      t.TempDir(),
		SessionLog:   logging.RotationConfig{MaxSizeMB: 10, MaxBackups: 1},
	}
}

// TestDuplicateLaunchBouncesOffRunningBridge starts a second supervisor
// on a port whose first supervisor is still up. The duplicate must come
// back informational with the owner's pid and must not disturb the
// running session.
func TestDuplicateLaunchBouncesOffRunningBridge(t *testing.T) {
	testutil.RequirePOSIX(t)

	opts := launchOptions(t, testutil.FakeServer(t, gracefulBody))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts.OnReady = func(pid int) {
		dup := opts
		dup.StateDir = t.TempDir()
		dup.OnReady = func(int) { t.Error("duplicate launch must not reach readiness") }

		err := launcher.New(dup, nil).Run(context.Background())
		if !errors.Is(err, errors.ErrAlreadyRunning) {
			t.Errorf("duplicate Run = %v, want ErrAlreadyRunning", err)
		}
		if !errors.IsInformational(err) {
			t.Error("a duplicate launch is informational, not a failure")
		}
		var lockErr *errors.LockError
		if errors.As(err, &lockErr) {
			if lockErr.OwnerPID != os.Getpid() {
				t.Errorf("OwnerPID = %d, want %d", lockErr.OwnerPID, os.Getpid())
			}
		} else {
			t.Errorf("expected *LockError, got %T", err)
		}

		// The duplicate must not have written a session log of its own
		if _, serr := os.Stat(launcher.SessionLogPath(dup.StateDir, dup.TCPPort)); !os.IsNotExist(serr) {
			t.Error("duplicate launch should not create a session log")
		}

		cancel()
	}

	if err := launcher.New(opts, nil).Run(ctx); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	data, err := os.ReadFile(launcher.SessionLogPath(opts.StateDir, opts.TCPPort))
	if err != nil {
		t.Fatalf("session log missing: %v", err)
	}
	if !strings.Contains(string(data), "[Process exited with code 0]") {
		t.Errorf("session log lacks the terminal marker:\n%s", data)
	}
}

// TestStaleLockGivesWayToNewLaunch plants a lock whose owner is long
// gone and verifies a fresh launch reclaims the port end to end.
func TestStaleLockGivesWayToNewLaunch(t *testing.T) {
	testutil.RequirePOSIX(t)

	opts := launchOptions(t, testutil.FakeServer(t, gracefulBody))

	stale := portlock.Record{
		PID:       1 << 30,
		Hostname:  "elsewhere",
		CreatedAt: time.Now().Add(-time.Hour),
	}
	data, err := json.Marshal(stale)
	if err != nil {
		t.Fatalf("failed to marshal stale record: %v", err)
	}
	if err := os.WriteFile(portlock.Path(opts.LockDir, opts.TCPPort), data, 0644); err != nil {
		t.Fatalf("failed to plant stale lock: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts.OnReady = func(pid int) {
		// The reclaimed lock now names this process as the owner
		rec, alive := portlock.Inspect(opts.LockDir, opts.TCPPort)
		if rec == nil {
			t.Error("lock record missing while the bridge is running")
		} else if rec.PID != os.Getpid() {
			t.Errorf("lock owner pid = %d, want %d", rec.PID, os.Getpid())
		}
		if !alive {
			t.Error("the reclaimed lock should report a live owner")
		}
		cancel()
	}

	if err := launcher.New(opts, nil).Run(ctx); err != nil {
		t.Fatalf("Run over a stale lock failed: %v", err)
	}

	if _, err := os.Stat(portlock.Path(opts.LockDir, opts.TCPPort)); !os.IsNotExist(err) {
		t.Error("lock should be released after shutdown")
	}
}

// TestLockEnumerationTracksSession checks the enumeration the status
// command relies on: one live entry while the bridge runs, none after
// it shuts down.
func TestLockEnumerationTracksSession(t *testing.T) {
	testutil.RequirePOSIX(t)

	opts := launchOptions(t, testutil.FakeServer(t, gracefulBody))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts.OnReady = func(pid int) {
		locks, err := portlock.List(opts.LockDir)
		if err != nil {
			t.Errorf("List failed: %v", err)
		} else if len(locks) != 1 {
			t.Errorf("List returned %d entries, want 1", len(locks))
		} else {
			lk := locks[0]
			if lk.Port != opts.TCPPort {
				t.Errorf("Port = %d, want %d", lk.Port, opts.TCPPort)
			}
			if !lk.Alive {
				t.Error("the running bridge should report a live owner")
			}
			if lk.Record == nil || lk.Record.PID != os.Getpid() {
				t.Errorf("lock owner = %+v, want pid %d", lk.Record, os.Getpid())
			}
		}
		cancel()
	}

	if err := launcher.New(opts, nil).Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	locks, err := portlock.List(opts.LockDir)
	if err != nil {
		t.Fatalf("List after shutdown failed: %v", err)
	}
	if len(locks) != 0 {
		t.Errorf("List after shutdown returned %d entries, want 0", len(locks))
	}
}
