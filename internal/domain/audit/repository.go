package audit

import (
	"context"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
