package ports

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/serial-tools/espbridge/internal/errors"
	"github.com/serial-tools/espbridge/internal/logging"
)

// EventKind says what happened to a watched device node.
type EventKind int

const (
	// DeviceGone means the device node disappeared (unplugged).
	DeviceGone EventKind = iota

	// DeviceBack means the device node reappeared after being gone.
	DeviceBack
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case DeviceGone:
		return "gone"
	case DeviceBack:
		return "back"
	default:
		return "unknown"
	}
}

// Event reports a presence change of the watched device node.
type Event struct {
	Kind EventKind
	Path string
	At   time.Time
}

// Watcher observes a single serial device node and emits an Event when
// it vanishes or comes back. Device nodes cannot be watched directly
// once removed, so the watcher monitors the parent directory and checks
// the node itself after a short debounce.
type Watcher struct {
	device  string
	fs      *fsnotify.Watcher
	events  chan Event
	logger  *logging.Logger
	present bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// debounceDelay absorbs the burst of filesystem events a replug produces.
const debounceDelay = 100 * time.Millisecond

// NewWatcher creates a watcher for the given device node. The device
// itself may or may not exist yet; its parent directory must.
func NewWatcher(device string, logger *logging.Logger) (*Watcher, error) {
	if device == "" {
		return nil, errors.NewValidationError("device path is required").WithField("device")
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create device watcher")
	}

	device = filepath.Clean(device)
	dir := filepath.Dir(device)
	if err := fs.Add(dir); err != nil {
		_ = fs.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", dir)
	}

	_, statErr := os.Stat(device)

	return &Watcher{
		device:  device,
		fs:      fs,
		events:  make(chan Event, 8),
		logger:  logger.WithComponent("ports"),
		present: statErr == nil,
		stopCh:  make(chan struct{}),
	}, nil
}

// Events returns the channel presence changes are delivered on. The
// channel is never closed; stop consuming after Close.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.fs.Close()
	})
}

// watchLoop filters directory events down to the watched node and
// re-checks its presence after each debounce window.
func (w *Watcher) watchLoop() {
	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.device {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			debounce.Reset(debounceDelay)

		case <-debounce.C:
			w.checkPresence()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("device watcher error", "error", err)
		}
	}
}

// checkPresence stats the node and emits an event on a state flip.
func (w *Watcher) checkPresence() {
	_, err := os.Stat(w.device)
	nowPresent := err == nil
	if nowPresent == w.present {
		return
	}
	w.present = nowPresent

	kind := DeviceGone
	if nowPresent {
		kind = DeviceBack
	}
	ev := Event{Kind: kind, Path: w.device, At: time.Now()}

	// If nobody is consuming, keep the newest state, not the oldest
	select {
	case w.events <- ev:
	default:
		select {
		case <-w.events:
		default:
		}
		select {
		case w.events <- ev:
		default:
		}
	}
}
