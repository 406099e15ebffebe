package resilience

import "time"

// CallOutcome is a single finished call as seen by the breaker.
type CallOutcome struct {
	At       time.Time
	Success  bool
	Slow     bool
	Duration time.Duration
}

// WindowStats are the aggregated counters over the live window contents.
type WindowStats struct {
	Total       int
	Success     int
	Failure     int
	Slow        int
	DurationSum time.Duration
}

// FailureRate returns the failure percentage over the window, 0 when empty.
func (s WindowStats) FailureRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Failure) / float64(s.Total) * 100
}

// SlowRate returns the slow-call percentage over the window, 0 when empty.
func (s WindowStats) SlowRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Slow) / float64(s.Total) * 100
}

// AvgDuration returns the mean call duration over the window, 0 when empty.
func (s WindowStats) AvgDuration() time.Duration {
	if s.Total == 0 {
		return 0
	}
	return s.DurationSum / time.Duration(s.Total)
}

// StatsWindow is a ring buffer of call outcomes bounded by capacity and by
// age. Counters are adjusted on every insert and eviction so they always
// describe the surviving entries. Not safe for concurrent use; the owning
// breaker serializes access.
type StatsWindow struct {
	buf    []CallOutcome
	head   int
	count  int
	maxAge time.Duration
	stats  WindowStats
}

func NewStatsWindow(capacity int, maxAge time.Duration) *StatsWindow {
	if capacity < 1 {
		capacity = 1
	}

	return &StatsWindow{
		buf:    make([]CallOutcome, capacity),
		maxAge: maxAge,
	}
}

// Record inserts an outcome, evicting anything the insert displaces or ages
// out.
func (w *StatsWindow) Record(outcome CallOutcome) {
	w.evictExpired(outcome.At)

	if w.count == len(w.buf) {
		w.apply(w.buf[w.oldestIndex()], -1)
		w.count--
	}

	w.buf[w.head] = outcome
	w.head = (w.head + 1) % len(w.buf)
	w.count++
	w.apply(outcome, 1)
}

// Snapshot evicts aged entries and returns a copy of the counters.
func (w *StatsWindow) Snapshot(now time.Time) WindowStats {
	w.evictExpired(now)
	return w.stats
}

func (w *StatsWindow) Reset() {
	w.head = 0
	w.count = 0
	w.stats = WindowStats{}
}

func (w *StatsWindow) oldestIndex() int {
	return (w.head - w.count + len(w.buf)) % len(w.buf)
}

func (w *StatsWindow) evictExpired(now time.Time) {
	if w.maxAge <= 0 {
		return
	}

	for w.count > 0 {
		oldest := w.buf[w.oldestIndex()]
		if now.Sub(oldest.At) <= w.maxAge {
			break
		}
		w.apply(oldest, -1)
		w.count--
	}
}

func (w *StatsWindow) apply(outcome CallOutcome, sign int) {
	w.stats.Total += sign
	if outcome.Success {
		w.stats.Success += sign
	} else {
		w.stats.Failure += sign
	}
	if outcome.Slow {
		w.stats.Slow += sign
	}
	w.stats.DurationSum += time.Duration(sign) * outcome.Duration
}
