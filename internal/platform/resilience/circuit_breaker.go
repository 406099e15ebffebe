package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// State is the breaker state machine position. It is always one of the three
// values below.
type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StateChange describes one transition, including forced ones.
type StateChange struct {
	Name   string
	From   State
	To     State
	Reason string
	At     time.Time
}

// StateChangeFunc observes transitions. It runs outside the breaker lock on
// the goroutine that caused the transition, so implementations that block
// should hand off.
type StateChangeFunc func(StateChange)

// BreakerSnapshot is an immutable view of one breaker.
type BreakerSnapshot struct {
	Name             string
	State            State
	Forced           bool
	Stats            WindowStats
	LastTransitionAt time.Time
}

// CircuitBreaker isolates one dependency: closed calls flow and are measured,
// open calls fail fast, half-open admits a bounded number of trials.
// Transitions are serialized under one mutex; state reads are lock-free.
type CircuitBreaker struct {
	name string

	cfg    atomic.Pointer[Config]
	state  atomic.Int32
	forced atomic.Bool

	mu                sync.Mutex
	window            *StatsWindow
	openedAt          time.Time
	openedAtNano      atomic.Int64
	halfOpenInFlight  int
	halfOpenSuccesses int
	lastTransitionAt  time.Time

	onStateChange StateChangeFunc
	now           func() time.Time
}

// NewCircuitBreaker builds a breaker for name. Zero config fields take
// defaults; anything invalid after that fails construction.
func NewCircuitBreaker(name string, cfg Config) (*CircuitBreaker, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ConfigError{Field: "name", Reason: "cannot be empty"}
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &CircuitBreaker{
		name:   name,
		window: NewStatsWindow(cfg.WindowSize, cfg.MonitoringPeriod),
		now:    time.Now,
	}
	b.cfg.Store(&cfg)
	b.state.Store(int32(StateClosed))

	return b, nil
}

func (b *CircuitBreaker) Name() string {
	return b.name
}

// Config returns the active configuration.
func (b *CircuitBreaker) Config() Config {
	return *b.cfg.Load()
}

// UpdateConfig swaps the configuration atomically. The window and half-open
// progress restart because samples measured against the old thresholds would
// mislead the new ones; the current state is kept.
func (b *CircuitBreaker) UpdateConfig(cfg Config) error {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	b.cfg.Store(&cfg)
	b.window = NewStatsWindow(cfg.WindowSize, cfg.MonitoringPeriod)
	b.halfOpenInFlight = 0
	b.halfOpenSuccesses = 0
	b.mu.Unlock()

	return nil
}

// SetStateChangeFunc installs the transition observer. Install before the
// breaker takes traffic.
func (b *CircuitBreaker) SetStateChangeFunc(fn StateChangeFunc) {
	b.mu.Lock()
	b.onStateChange = fn
	b.mu.Unlock()
}

// State reads the effective state without locking. An open breaker whose
// timeout has elapsed reports HALF_OPEN; the stored state moves on the next
// call attempt.
func (b *CircuitBreaker) State() State {
	state := State(b.state.Load())
	if state != StateOpen || b.forced.Load() {
		return state
	}

	openedAt := time.Unix(0, b.openedAtNano.Load())
	if b.now().Sub(openedAt) >= b.cfg.Load().OpenTimeout {
		return StateHalfOpen
	}

	return state
}

// Snapshot returns an immutable copy of the breaker's observable state.
func (b *CircuitBreaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	state := State(b.state.Load())
	if state == StateOpen && !b.forced.Load() && now.Sub(b.openedAt) >= b.cfg.Load().OpenTimeout {
		state = StateHalfOpen
	}

	return BreakerSnapshot{
		Name:             b.name,
		State:            state,
		Forced:           b.forced.Load(),
		Stats:            b.window.Snapshot(now),
		LastTransitionAt: b.lastTransitionAt,
	}
}

// Execute runs fn under the breaker. Rejections surface as *CircuitOpenError
// or *TrialLimitError (both match ErrCircuitOpen); fn errors pass through
// untouched.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	return b.ExecuteWithFallback(ctx, fn, nil)
}

// ExecuteWithFallback is Execute with a fallback invoked for rejections and
// for fn errors; the fallback receives the cause and its result is returned.
func (b *CircuitBreaker) ExecuteWithFallback(ctx context.Context, fn func(context.Context) error, fallback func(context.Context, error) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := b.acquire(); err != nil {
		if fallback != nil {
			return fallback(ctx, err)
		}
		return err
	}

	start := b.now()
	err := fn(ctx)
	b.afterCall(err, b.now().Sub(start))

	if err != nil && fallback != nil {
		return fallback(ctx, err)
	}
	return err
}

// acquire decides whether a call may proceed and claims a half-open trial
// slot when needed.
func (b *CircuitBreaker) acquire() error {
	b.mu.Lock()

	now := b.now()
	cfg := b.cfg.Load()
	state := State(b.state.Load())
	var change *StateChange

	if state == StateOpen {
		if b.forced.Load() {
			b.mu.Unlock()
			return &CircuitOpenError{Name: b.name}
		}
		if now.Sub(b.openedAt) < cfg.OpenTimeout {
			until := b.openedAt.Add(cfg.OpenTimeout)
			b.mu.Unlock()
			return &CircuitOpenError{Name: b.name, Until: until}
		}
		change = b.transition(StateHalfOpen, now, "open timeout elapsed")
		state = StateHalfOpen
	}

	if state == StateHalfOpen {
		if b.halfOpenInFlight >= cfg.SuccessThreshold {
			b.mu.Unlock()
			b.notify(change)
			return &TrialLimitError{Name: b.name}
		}
		b.halfOpenInFlight++
	}

	b.mu.Unlock()
	b.notify(change)
	return nil
}

// afterCall classifies the finished call. Caller cancellation says nothing
// about the dependency, so it only releases the trial slot; a deadline hit
// counts as failure.
func (b *CircuitBreaker) afterCall(err error, duration time.Duration) {
	if err != nil && errors.Is(err, context.Canceled) {
		b.releaseTrial()
		return
	}

	cfg := b.cfg.Load()
	outcome := CallOutcome{
		At:       b.now(),
		Success:  err == nil,
		Slow:     cfg.SlowCallThreshold > 0 && duration >= cfg.SlowCallThreshold,
		Duration: duration,
	}

	b.mu.Lock()
	var change *StateChange
	switch State(b.state.Load()) {
	case StateClosed:
		b.window.Record(outcome)
		change = b.maybeTrip(outcome.At)
	case StateHalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		if outcome.Success {
			b.halfOpenSuccesses++
			if b.halfOpenSuccesses >= cfg.SuccessThreshold {
				change = b.transition(StateClosed, outcome.At, "trial successes reached threshold")
			}
		} else {
			change = b.transition(StateOpen, outcome.At, "trial call failed")
		}
	case StateOpen:
		// Late result from a call admitted before the trip; the window was
		// reset on transition, so it carries no signal anymore.
	}
	b.mu.Unlock()
	b.notify(change)
}

func (b *CircuitBreaker) releaseTrial() {
	b.mu.Lock()
	if State(b.state.Load()) == StateHalfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}
	b.mu.Unlock()
}

// maybeTrip evaluates the closed-state window against the thresholds.
// Held-lock helper.
func (b *CircuitBreaker) maybeTrip(at time.Time) *StateChange {
	cfg := b.cfg.Load()
	stats := b.window.Snapshot(at)
	if stats.Total < cfg.MinimumCalls {
		return nil
	}

	failureMetric := stats.FailureRate()
	if cfg.FailureThresholdKind == ThresholdCount {
		failureMetric = float64(stats.Failure)
	}
	if failureMetric >= cfg.FailureThreshold {
		return b.transition(StateOpen, at, "failure threshold exceeded")
	}
	if cfg.SlowCallRateThreshold > 0 && stats.SlowRate() >= cfg.SlowCallRateThreshold {
		return b.transition(StateOpen, at, "slow call rate threshold exceeded")
	}
	return nil
}

// ForceOpen pins the breaker open; the open timeout is ignored until
// ForceClose. The reason flows into the emitted change for auditing.
func (b *CircuitBreaker) ForceOpen(reason string) {
	b.mu.Lock()
	b.forced.Store(true)
	var change *StateChange
	if State(b.state.Load()) != StateOpen {
		change = b.transition(StateOpen, b.now(), reason)
	} else {
		now := b.now()
		b.lastTransitionAt = now
		change = &StateChange{Name: b.name, From: StateOpen, To: StateOpen, Reason: reason, At: now}
	}
	b.mu.Unlock()
	b.notify(change)
}

// ForceClose lifts a forced-open pin and restores normal closed operation.
func (b *CircuitBreaker) ForceClose(reason string) {
	b.mu.Lock()
	b.forced.Store(false)
	var change *StateChange
	if State(b.state.Load()) != StateClosed {
		change = b.transition(StateClosed, b.now(), reason)
	} else {
		now := b.now()
		b.lastTransitionAt = now
		change = &StateChange{Name: b.name, From: StateClosed, To: StateClosed, Reason: reason, At: now}
	}
	b.mu.Unlock()
	b.notify(change)
}

// transition moves the state machine and resets per-state bookkeeping. Every
// transition restarts the window. Held-lock helper; the returned change is
// delivered after unlocking.
func (b *CircuitBreaker) transition(to State, at time.Time, reason string) *StateChange {
	from := State(b.state.Load())
	b.state.Store(int32(to))
	b.window.Reset()
	b.halfOpenInFlight = 0
	b.halfOpenSuccesses = 0
	b.lastTransitionAt = at

	if to == StateOpen {
		b.openedAt = at
		b.openedAtNano.Store(at.UnixNano())
	}

	return &StateChange{Name: b.name, From: from, To: to, Reason: reason, At: at}
}

func (b *CircuitBreaker) notify(change *StateChange) {
	if change == nil {
		return
	}
	b.mu.Lock()
	fn := b.onStateChange
	b.mu.Unlock()
	if fn != nil {
		fn(*change)
	}
}
