package relay

import "sync"

// Ring is a thread-safe circular buffer holding the most recent lines of
// bridge output.
//
// A ring buffer is a fixed-size buffer that operates as if its ends were
// connected in a circle. When the buffer fills up, new lines overwrite the
// oldest ones, so the ring always holds the tail of the output stream
// without unbounded memory growth.
//
// The buffer maintains two pointers:
//   - start: the oldest retained line
//   - end: where the next line will be written
//
// While the buffer has room only 'end' advances. Once it fills, both
// pointers advance together, sliding a window over the stream:
//
//	Capacity 3:   append a, b, c  → [a, b, c]
//	              append d        → [b, c, d]
//
// All methods are safe for concurrent use. Append takes an exclusive lock;
// Last and Len take shared locks.
type Ring struct {
	lines []Line
	size  int
	start int
	end   int
	full  bool
	mu    sync.RWMutex
}

// NewRing creates a ring retaining the most recent size lines.
// Size must be positive.
func NewRing(size int) *Ring {
	return &Ring{
		lines: make([]Line, size),
		size:  size,
	}
}

// Append adds a line, overwriting the oldest retained line if the ring
// is full.
func (r *Ring) Append(line Line) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines[r.end] = line
	r.end = (r.end + 1) % r.size

	if r.full {
		r.start = (r.start + 1) % r.size
	}

	if r.end == r.start {
		r.full = true
	}
}

// Last returns up to n of the most recent lines in chronological order
// (oldest first). It returns fewer than n lines if the ring holds fewer,
// and nil if n is not positive or the ring is empty.
//
// The returned slice is a copy; modifying it does not affect the ring.
func (r *Ring) Last(n int) []Line {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := r.len()
	if n > count {
		n = count
	}
	if n <= 0 {
		return nil
	}

	result := make([]Line, 0, n)
	idx := (r.end - n + r.size) % r.size
	for i := 0; i < n; i++ {
		result = append(result, r.lines[(idx+i)%r.size])
	}

	return result
}

// Len returns the number of lines currently retained, between 0 and the
// ring's capacity.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.len()
}

// len returns the number of retained lines (caller must hold lock).
func (r *Ring) len() int {
	if r.full {
		return r.size
	}

	if r.end >= r.start {
		return r.end - r.start
	}

	return r.size - r.start + r.end
}
