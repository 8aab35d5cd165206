package logring

import "time"

// Stream identifies the origin of a captured line.
const (
	StreamStdout  = "stdout"
	StreamStderr  = "stderr"
	StreamManager = "manager" // synthetic lifecycle entries emitted by the supervisor
)

// Entry is one captured output line.
type Entry struct {
	At     time.Time `json:"at"`
	Stream string    `json:"stream"`
	Line   string    `json:"line"`
}

// Ring is a fixed-capacity buffer of Entries. Once full, each append
// evicts the oldest entry. Not safe for concurrent use; callers hold
// their own lock.
type Ring struct {
	buf   []Entry
	head  int // index of oldest entry
	count int
}

const DefaultCapacity = 500

// New returns a Ring with the given capacity. Non-positive capacities
// fall back to DefaultCapacity.
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]Entry, capacity)}
}

func (r *Ring) Capacity() int { return len(r.buf) }

func (r *Ring) Len() int { return r.count }

// Append adds an entry, evicting the oldest one when full.
func (r *Ring) Append(e Entry) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = e
		r.count++
		return
	}
	r.buf[r.head] = e
	r.head = (r.head + 1) % len(r.buf)
}

// Tail returns up to limit of the most recent entries in chronological
// order. A non-positive limit returns all buffered entries.
func (r *Ring) Tail(limit int) []Entry {
	n := r.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, 0, n)
	start := r.head + r.count - n
	for i := 0; i < n; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
