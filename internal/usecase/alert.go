package usecase

import (
	"context"
	"time"
)

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is one operator-facing notification about a fault-layer event.
type Alert struct {
	ID       string
	Kind     string
	Severity AlertSeverity
	Subject  string
	Message  string
	Fields   map[string]string
	At       time.Time
}

// AlertSink delivers alerts to an external channel. Implementations own their
// transport-level retries; callers treat Send as best effort.
type AlertSink interface {
	Send(ctx context.Context, alert Alert) error
}
