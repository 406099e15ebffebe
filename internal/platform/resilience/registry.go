package resilience

import (
	"fmt"
	"sort"
	"sync"
)

// BreakerAggregate summarizes the whole registry for consumers that react to
// fleet-wide breaker health.
type BreakerAggregate struct {
	Total              int
	OpenCount          int
	OverallFailureRate float64
}

// Registry owns named breakers. Lookups for one name always yield the same
// instance regardless of interleaving.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	hook     StateChangeFunc
}

func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*CircuitBreaker)}
}

// GetOrCreate returns the breaker for name, creating it from cfg on first
// use. An existing breaker keeps its configuration; reconfiguration goes
// through Configure.
func (r *Registry) GetOrCreate(name string, cfg Config) (*CircuitBreaker, error) {
	r.mu.RLock()
	if b, ok := r.breakers[name]; ok {
		r.mu.RUnlock()
		return b, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b, nil
	}

	b, err := NewCircuitBreaker(name, cfg)
	if err != nil {
		return nil, err
	}
	b.SetStateChangeFunc(r.hook)
	r.breakers[name] = b

	return b, nil
}

func (r *Registry) Get(name string) (*CircuitBreaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.breakers[name]
	return b, ok
}

// Configure creates the breaker when absent and swaps its config when
// present. This is the hot-reload path for policy updates.
func (r *Registry) Configure(name string, cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b.UpdateConfig(cfg)
	}

	b, err := NewCircuitBreaker(name, cfg)
	if err != nil {
		return err
	}
	b.SetStateChangeFunc(r.hook)
	r.breakers[name] = b

	return nil
}

// Snapshot returns the immutable status of one breaker.
func (r *Registry) Snapshot(name string) (BreakerSnapshot, error) {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()

	if !ok {
		return BreakerSnapshot{}, fmt.Errorf("circuit breaker %q: %w", name, ErrBreakerNotFound)
	}
	return b.Snapshot(), nil
}

// Snapshots returns all breaker statuses sorted by name.
func (r *Registry) Snapshots() []BreakerSnapshot {
	r.mu.RLock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.RUnlock()

	out := make([]BreakerSnapshot, 0, len(breakers))
	for _, b := range breakers {
		out = append(out, b.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Remove drops the breaker for name; removing an unknown name does nothing.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	delete(r.breakers, name)
	r.mu.Unlock()
}

// SetStateChangeHook installs fn on every current and future breaker.
func (r *Registry) SetStateChangeHook(fn StateChangeFunc) {
	r.mu.Lock()
	r.hook = fn
	for _, b := range r.breakers {
		b.SetStateChangeFunc(fn)
	}
	r.mu.Unlock()
}

// Aggregate folds all snapshots into fleet-level numbers: open breaker count
// and the failure rate across every live window.
func (r *Registry) Aggregate() BreakerAggregate {
	snapshots := r.Snapshots()

	agg := BreakerAggregate{Total: len(snapshots)}
	calls := 0
	failures := 0
	for _, s := range snapshots {
		if s.State == StateOpen {
			agg.OpenCount++
		}
		calls += s.Stats.Total
		failures += s.Stats.Failure
	}
	if calls > 0 {
		agg.OverallFailureRate = float64(failures) / float64(calls) * 100
	}

	return agg
}
