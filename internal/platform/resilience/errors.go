package resilience

import (
	"errors"
	"fmt"
	"time"
)

// ErrCircuitOpen matches every rejection a breaker produces without running
// the call: open-state fail-fast and exhausted half-open trials alike.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrBreakerNotFound is returned by registry lookups for unknown names.
var ErrBreakerNotFound = errors.New("circuit breaker not found")

// CircuitOpenError rejects a call while the breaker is open. Until carries
// the earliest probe time; it is zero while the breaker is forced open.
type CircuitOpenError struct {
	Name  string
	Until time.Time
}

func (e *CircuitOpenError) Error() string {
	if e.Until.IsZero() {
		return fmt.Sprintf("circuit breaker %q is open", e.Name)
	}
	return fmt.Sprintf("circuit breaker %q is open until %s", e.Name, e.Until.UTC().Format(time.RFC3339))
}

func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// TrialLimitError rejects a call because all half-open trial slots are taken.
// Callers treat it exactly like an open breaker.
type TrialLimitError struct {
	Name string
}

func (e *TrialLimitError) Error() string {
	return fmt.Sprintf("circuit breaker %q half-open trial limit reached", e.Name)
}

func (e *TrialLimitError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// ConfigError reports an invalid breaker configuration. Construction with an
// invalid config fails outright; nothing half-built is returned.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid circuit breaker config: %s %s", e.Field, e.Reason)
}
