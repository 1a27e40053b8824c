// Package relay fans out the merged output of the bridge child process to
// any number of subscribers without ever blocking the reader.
//
// A Relay drains an io.Reader (the child's merged stdout+stderr) line by
// line on a dedicated goroutine, retains a ring of recent lines for late
// subscribers and crash diagnostics, and broadcasts each line to all
// attached subscribers. Subscribers have bounded buffers; a slow consumer
// loses its oldest unread lines, never the newest, and its drop count is
// tracked.
//
// When the child exits, Finish emits exactly one terminal marker line as
// the final item on every subscriber channel and closes them. The marker
// is never dropped and nothing is ever reordered.
package relay

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// Kind classifies a relay line.
type Kind int

const (
	// KindOutput is a verbatim line of child output.
	KindOutput Kind = iota
	// KindStopped is the terminal marker after a requested stop or a
	// clean exit.
	KindStopped
	// KindCrashed is the terminal marker after an unexpected child exit.
	KindCrashed
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindOutput:
		return "output"
	case KindStopped:
		return "stopped"
	case KindCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// Line is a single line of relayed output. Text has no trailing newline.
type Line struct {
	Kind Kind
	Text string
}

// markerText renders the terminal marker for an exit code.
func markerText(exitCode int) string {
	return fmt.Sprintf("[Process exited with code %d]", exitCode)
}

// Subscriber receives relayed lines on a bounded channel.
type Subscriber struct {
	relay     *Relay
	ch        chan Line
	dropped   atomic.Uint64
	closeOnce sync.Once
}

// Lines returns the channel of relayed lines. The channel is closed after
// the terminal marker has been delivered, or when the subscriber detaches.
func (s *Subscriber) Lines() <-chan Line {
	return s.ch
}

// Dropped returns how many lines this subscriber has lost to overflow.
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

// Close detaches the subscriber from the relay and closes its channel.
// Safe to call multiple times, including after the relay has finished.
func (s *Subscriber) Close() {
	s.relay.detach(s)
	s.closeOnce.Do(func() {
		close(s.ch)
	})
}

// deliver places a line on the subscriber's channel, dropping the oldest
// unread line to make room if the buffer is full. The newest line always
// lands, so a terminal marker delivered last is never lost. Only the
// relay's broadcast path sends, so the retry loop always terminates.
func (s *Subscriber) deliver(line Line) {
	for {
		select {
		case s.ch <- line:
			return
		default:
		}

		select {
		case <-s.ch:
			s.dropped.Add(1)
		default:
		}
	}
}

// Relay drains a child output stream and broadcasts it.
//
// Lifecycle: New, Start(reader) once the child is running, Attach any time,
// Finish(kind, exitCode) after the child has been reaped. Finish waits for
// the drain goroutine to exhaust the reader so the marker is the final
// line everywhere.
type Relay struct {
	bufferLines int
	ring        *Ring

	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	closed bool

	startOnce sync.Once
	drainDone chan struct{}
}

// New creates a relay whose ring and per-subscriber buffers hold
// bufferLines lines. bufferLines must be positive.
func New(bufferLines int) *Relay {
	return &Relay{
		bufferLines: bufferLines,
		ring:        NewRing(bufferLines),
		subs:        make(map[*Subscriber]struct{}),
		drainDone:   make(chan struct{}),
	}
}

// Start begins draining src on a new goroutine. Only the first call has
// any effect.
func (r *Relay) Start(src io.Reader) {
	r.startOnce.Do(func() {
		go r.drain(src)
	})
}

// drain reads src line by line until EOF or a read error. A PTY master
// returns an error rather than io.EOF when the child exits, so any error
// ends the drain.
func (r *Relay) drain(src io.Reader) {
	defer close(r.drainDone)

	reader := bufio.NewReader(src)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			text := strings.TrimRight(line, "\r\n")
			r.publish(Line{Kind: KindOutput, Text: text})
		}
		if err != nil {
			return
		}
	}
}

// publish appends a line to the ring and broadcasts it to all subscribers.
func (r *Relay) publish(line Line) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.ring.Append(line)
	for s := range r.subs {
		s.deliver(line)
	}
}

// Attach adds a subscriber. The subscriber first receives up to replay of
// the most recent lines from the ring, then every line from this point on,
// in emission order. If the relay has already finished, the subscriber
// receives the replay (whose last line is the terminal marker) and an
// immediately closed channel.
func (r *Relay) Attach(replay int) *Subscriber {
	if replay > r.bufferLines {
		replay = r.bufferLines
	}

	s := &Subscriber{
		relay: r,
		ch:    make(chan Line, r.bufferLines),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range r.ring.Last(replay) {
		s.deliver(line)
	}

	if r.closed {
		s.closeOnce.Do(func() {
			close(s.ch)
		})
		return s
	}

	r.subs[s] = struct{}{}
	return s
}

// detach removes a subscriber so it receives no further lines.
func (r *Relay) detach(s *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.subs, s)
}

// Recent returns up to n of the most recent lines for diagnostics, oldest
// first.
func (r *Relay) Recent(n int) []Line {
	return r.ring.Last(n)
}

// Finish waits for the drain to exhaust the child's output, then emits the
// terminal marker as the final line on every subscriber channel and closes
// them. kind should be KindStopped or KindCrashed. Exactly one marker is
// ever emitted; repeat calls are no-ops.
//
// Callers must ensure the source reader will reach EOF (the child exiting
// closes its end of the pipe or PTY), otherwise Finish blocks.
func (r *Relay) Finish(kind Kind, exitCode int) {
	// If Start was never called there is nothing to drain.
	r.startOnce.Do(func() {
		close(r.drainDone)
	})
	<-r.drainDone

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	marker := Line{Kind: kind, Text: markerText(exitCode)}
	r.ring.Append(marker)

	for s := range r.subs {
		s.deliver(marker)
		s.closeOnce.Do(func() {
			close(s.ch)
		})
	}
	r.subs = nil
}
