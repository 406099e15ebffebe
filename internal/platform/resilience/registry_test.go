package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRegistry_GetOrCreateReturnsSameInstance(t *testing.T) {
	r := NewRegistry()

	first, err := r.GetOrCreate("payments", testConfig())
	if err != nil {
		t.Fatalf("first get-or-create: %v", err)
	}

	other := testConfig()
	other.FailureThreshold = 10
	other.OpenTimeout = time.Hour

	second, err := r.GetOrCreate("payments", other)
	if err != nil {
		t.Fatalf("second get-or-create: %v", err)
	}
	if first != second {
		t.Fatal("expected the same breaker instance for one name")
	}
	if got := second.Config(); got.FailureThreshold != 50 || got.OpenTimeout != 5*time.Second {
		t.Fatalf("expected the second config ignored, got %+v", got)
	}
}

func TestRegistry_ConcurrentGetOrCreateYieldsOneInstance(t *testing.T) {
	r := NewRegistry()

	const callers = 32
	instances := make([]*CircuitBreaker, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := r.GetOrCreate("payments", testConfig())
			if err != nil {
				t.Errorf("get-or-create %d: %v", i, err)
				return
			}
			instances[i] = b
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if instances[i] != instances[0] {
			t.Fatalf("caller %d received a different instance", i)
		}
	}
}

func TestRegistry_ConfigureUpdatesInPlace(t *testing.T) {
	r := NewRegistry()

	b, err := r.GetOrCreate("payments", testConfig())
	if err != nil {
		t.Fatalf("get-or-create: %v", err)
	}

	updated := testConfig()
	updated.FailureThreshold = 75
	if err := r.Configure("payments", updated); err != nil {
		t.Fatalf("configure: %v", err)
	}

	got, ok := r.Get("payments")
	if !ok || got != b {
		t.Fatal("expected configure to keep the existing instance")
	}
	if got.Config().FailureThreshold != 75 {
		t.Fatalf("expected updated threshold, got %v", got.Config().FailureThreshold)
	}
}

func TestRegistry_RemoveUnknownNameIsNoop(t *testing.T) {
	r := NewRegistry()

	if _, err := r.GetOrCreate("payments", testConfig()); err != nil {
		t.Fatalf("get-or-create: %v", err)
	}

	r.Remove("ghost")
	if _, ok := r.Get("payments"); !ok {
		t.Fatal("removing an unknown name must not touch other breakers")
	}

	r.Remove("payments")
	if _, ok := r.Get("payments"); ok {
		t.Fatal("expected payments removed")
	}
	if _, err := r.Snapshot("payments"); !errors.Is(err, ErrBreakerNotFound) {
		t.Fatalf("expected ErrBreakerNotFound after remove, got %v", err)
	}
}

func TestRegistry_StateChangeHookReachesExistingBreakers(t *testing.T) {
	r := NewRegistry()

	b, err := r.GetOrCreate("payments", testConfig())
	if err != nil {
		t.Fatalf("get-or-create: %v", err)
	}

	var mu sync.Mutex
	var changes []StateChange
	r.SetStateChangeHook(func(change StateChange) {
		mu.Lock()
		changes = append(changes, change)
		mu.Unlock()
	})

	b.ForceOpen("drill")

	ctx := context.Background()
	if err := b.Execute(ctx, succeedCall); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected forced-open rejection, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 1 || changes[0].To != StateOpen {
		t.Fatalf("expected one OPEN transition through the hook, got %+v", changes)
	}
}
