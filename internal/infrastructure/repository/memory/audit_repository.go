package memory

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/faultline/internal/domain/audit"
)

const defaultAuditCapacity = 1000

// AuditRepository keeps audit events in a bounded in-memory ring for DB-less
// deployments. Oldest events are dropped once the capacity is reached.
type AuditRepository struct {
	mu       sync.RWMutex
	events   []audit.Event
	capacity int
}

func NewAuditRepository(capacity int) *AuditRepository {
	if capacity < 1 {
		capacity = defaultAuditCapacity
	}
	return &AuditRepository{capacity: capacity}
}

func (r *AuditRepository) Insert(_ context.Context, event audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	if len(r.events) > r.capacity {
		r.events = r.events[len(r.events)-r.capacity:]
	}

	return nil
}

func (r *AuditRepository) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	if limit < 1 {
		limit = 50
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit > len(r.events) {
		limit = len(r.events)
	}

	out := make([]audit.Event, 0, limit)
	for i := len(r.events) - 1; i >= len(r.events)-limit; i-- {
		out = append(out, r.events[i])
	}

	return out, nil
}

func (r *AuditRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.events[:0]
	var pruned int64
	for _, event := range r.events {
		if event.OccurredAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, event)
	}
	r.events = kept

	return pruned, nil
}
