package degradation

import (
	"sync"
	"time"
)

// Event is one applied level change, kept for audit/API exposure.
type Event struct {
	At     time.Time
	From   Level
	To     Level
	Reason string
	Rule   string
}

// History is a bounded ring of level-change events. Safe for concurrent use.
type History struct {
	mu    sync.RWMutex
	buf   []Event
	head  int
	count int
}

const DefaultHistoryCapacity = 1000

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]Event, capacity)}
}

func (h *History) Append(event Event) {
	h.mu.Lock()
	h.buf[h.head] = event
	h.head = (h.head + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
	h.mu.Unlock()
}

// Recent returns up to n events, newest first.
func (h *History) Recent(n int) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > h.count {
		n = h.count
	}

	out := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.head - i + len(h.buf)) % len(h.buf)
		out = append(out, h.buf[idx])
	}

	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
