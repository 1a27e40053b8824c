// Package portlock provides the per-port launch lock that keeps two
// espbridge processes from serving the same TCP port.
//
// A lock is a small JSON file in the lock directory, named after the
// port it guards. The file records the owning process ID so later
// launches can tell a live owner from a crashed one: a lock whose owner
// is no longer running is stale and is reclaimed on the next acquire.
// Creation always goes through O_EXCL so two racing launches cannot
// both succeed.
package portlock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/serial-tools/espbridge/internal/errors"
	"github.com/serial-tools/espbridge/internal/logging"
)

// lockFilePattern is the lock file name for a given port.
const lockFilePattern = "espbridge-tcp%d.lock"

// lockFileGlob matches all espbridge lock files in a directory.
const lockFileGlob = "espbridge-tcp*.lock"

// maxAcquireAttempts bounds the reclaim-and-retry loop in Acquire.
// Each retry means the lock file vanished or was reclaimed between two
// of our filesystem calls, which should settle within an attempt or two.
const maxAcquireAttempts = 3

// Record is the serialized content of a lock file. Unknown fields in an
// existing file are ignored so older builds can read locks written by
// newer ones.
type Record struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	CreatedAt time.Time `json:"created_at"`
}

// Lock represents an acquired per-port launch lock. Release removes the
// lock file, but only while this process still owns it.
type Lock struct {
	Record

	port   int
	path   string
	logger *logging.Logger
}

// Port returns the TCP port this lock guards.
func (l *Lock) Port() int {
	return l.port
}

// Path returns the lock file path for a port within a lock directory.
func Path(dir string, port int) string {
	return filepath.Join(dir, fmt.Sprintf(lockFilePattern, port))
}

// Acquire attempts to take the launch lock for the given TCP port.
// It fails with errors.ErrAlreadyRunning when another live process
// holds the lock. A lock left behind by a dead process is reclaimed
// transparently, as is one whose content cannot be parsed.
//
// Liveness is judged by probing the recorded PID, which is inherently
// best-effort: the owner can die right after the probe, and a recycled
// PID can impersonate it. The window is accepted rather than papered
// over; the exclusive create below is the part that must never race.
//
// The logger is optional and may be nil (locks are acquired before
// logging is fully set up on some paths).
func Acquire(dir string, port int, logger *logging.Logger) (*Lock, error) {
	lockPath := Path(dir, port)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	rec := Record{
		PID:       os.Getpid(),
		Hostname:  hostname,
		CreatedAt: time.Now(),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, errors.NewLockError("failed to marshal lock record", err).WithPort(port)
	}

	for attempt := 0; attempt < maxAcquireAttempts; attempt++ {
		// O_EXCL makes creation atomic: of any number of concurrent
		// launches, exactly one gets the file.
		f, createErr := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if createErr == nil {
			if _, err := f.Write(data); err != nil {
				_ = f.Close()
				_ = os.Remove(lockPath)
				return nil, errors.NewLockError("failed to write lock file", err).
					WithPort(port).WithPath(lockPath)
			}
			if err := f.Close(); err != nil {
				_ = os.Remove(lockPath)
				return nil, errors.NewLockError("failed to close lock file", err).
					WithPort(port).WithPath(lockPath)
			}

			if logger != nil {
				logger.Info("launch lock acquired",
					"tcp_port", port,
					"pid", rec.PID,
				)
			}

			return &Lock{
				Record: rec,
				port:   port,
				path:   lockPath,
				logger: logger,
			}, nil
		}
		if !os.IsExist(createErr) {
			return nil, errors.NewLockError("failed to create lock file", createErr).
				WithPort(port).WithPath(lockPath)
		}

		// The file exists. Decide whether its owner is live, dead, or
		// unreadable.
		existing, readErr := ReadRecord(lockPath)
		if readErr != nil {
			if os.IsNotExist(readErr) {
				// Released between our create and read; try again.
				continue
			}
			// Unparsable content cannot identify a live owner, so the
			// lock is treated as stale.
			if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
				return nil, errors.NewLockError("failed to remove corrupt lock file", err).
					WithPort(port).WithPath(lockPath)
			}
			if logger != nil {
				logger.Warn("corrupt lock reclaimed",
					"tcp_port", port,
					"path", lockPath,
				)
			}
			continue
		}

		if processAlive(existing.PID) {
			if logger != nil {
				logger.Info("bridge already running",
					"tcp_port", port,
					"owner_pid", existing.PID,
				)
			}
			return nil, errors.NewLockError("held by a live process", errors.ErrAlreadyRunning).
				WithPort(port).WithPath(lockPath).WithOwnerPID(existing.PID)
		}

		// Stale lock: the recorded owner is gone. Remove and retry the
		// exclusive create; if several launches reclaim concurrently,
		// the create still admits only one.
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return nil, errors.NewLockError("failed to remove stale lock file", err).
				WithPort(port).WithPath(lockPath)
		}
		if logger != nil {
			logger.Warn("stale lock reclaimed",
				"tcp_port", port,
				"old_pid", existing.PID,
			)
		}
	}

	return nil, errors.NewLockError("lock file kept reappearing during acquisition", errors.ErrLockStale).
		WithPort(port).WithPath(lockPath)
}

// Release removes the lock file. Safe to call multiple times, and a
// no-op if another process has taken the lock over in the meantime
// (possible after this process was wrongly judged dead).
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}

	// Only remove a file we still own.
	existing, err := ReadRecord(l.path)
	if err != nil {
		return nil
	}
	if existing.PID != l.PID {
		return nil
	}

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.NewLockError("failed to remove lock file", err).
			WithPort(l.port).WithPath(l.path)
	}

	if l.logger != nil {
		l.logger.Info("launch lock released",
			"tcp_port", l.port,
		)
	}

	return nil
}

// ReadRecord reads and parses a lock file.
func ReadRecord(lockPath string) (*Record, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}

	return &rec, nil
}

// Inspect reports the lock state for a port. It returns the recorded
// owner and whether that owner is currently alive. A missing or
// unreadable lock file yields (nil, false); a stale lock yields its
// record with alive=false.
func Inspect(dir string, port int) (*Record, bool) {
	rec, err := ReadRecord(Path(dir, port))
	if err != nil {
		return nil, false
	}

	return rec, processAlive(rec.PID)
}

// CleanStale removes the lock file for a port if its owner is no longer
// running or its content is unreadable. Returns true if a file was
// removed. The logger is optional and may be nil.
func CleanStale(dir string, port int, logger *logging.Logger) (bool, error) {
	lockPath := Path(dir, port)

	rec, err := ReadRecord(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		// Unreadable: remove it, same as Acquire would.
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return false, errors.NewLockError("failed to remove corrupt lock file", err).
				WithPort(port).WithPath(lockPath)
		}
		if logger != nil {
			logger.Warn("corrupt lock cleaned",
				"tcp_port", port,
				"path", lockPath,
			)
		}
		return true, nil
	}

	if processAlive(rec.PID) {
		return false, nil
	}

	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return false, errors.NewLockError("failed to remove stale lock file", err).
			WithPort(port).WithPath(lockPath)
	}

	if logger != nil {
		logger.Warn("stale lock cleaned",
			"tcp_port", port,
			"old_pid", rec.PID,
		)
	}

	return true, nil
}

// Status describes one lock file found by List.
type Status struct {
	Port int

	// Record is the parsed lock content, or nil when the file could not
	// be read or parsed.
	Record *Record

	// Alive reports whether the recorded owner is currently running.
	Alive bool
}

// List reports every espbridge lock in the directory, sorted by port.
// Nothing is modified; corrupt lock files show up with a nil Record so
// callers can offer to clean them.
func List(dir string) ([]Status, error) {
	matches, err := filepath.Glob(filepath.Join(dir, lockFileGlob))
	if err != nil {
		return nil, errors.NewLockError("failed to scan lock directory", err).WithPath(dir)
	}

	var locks []Status
	for _, match := range matches {
		port, ok := portFromPath(match)
		if !ok {
			continue
		}
		st := Status{Port: port}
		if rec, err := ReadRecord(match); err == nil {
			st.Record = rec
			st.Alive = processAlive(rec.PID)
		}
		locks = append(locks, st)
	}

	sort.Slice(locks, func(i, j int) bool { return locks[i].Port < locks[j].Port })
	return locks, nil
}

// CleanAll sweeps the lock directory and removes every stale or corrupt
// espbridge lock file. It returns the ports whose locks were removed,
// sorted ascending. Locks held by live processes are left alone.
func CleanAll(dir string, logger *logging.Logger) ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, lockFileGlob))
	if err != nil {
		return nil, errors.NewLockError("failed to scan lock directory", err).WithPath(dir)
	}

	var cleaned []int
	for _, match := range matches {
		port, ok := portFromPath(match)
		if !ok {
			continue
		}
		removed, err := CleanStale(dir, port, logger)
		if err != nil {
			return cleaned, err
		}
		if removed {
			cleaned = append(cleaned, port)
		}
	}

	sort.Ints(cleaned)
	return cleaned, nil
}

// portFromPath extracts the port number from a lock file path.
func portFromPath(path string) (int, bool) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".lock")
	idx := strings.LastIndex(name, "tcp")
	if idx < 0 {
		return 0, false
	}
	port, err := strconv.Atoi(name[idx+len("tcp"):])
	if err != nil || port < 0 {
		return 0, false
	}
	return port, true
}
