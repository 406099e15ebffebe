package audit

import "time"

// Source tells which subsystem produced the event.
type Source string

const (
	SourceBreaker     Source = "circuit_breaker"
	SourceDegradation Source = "degradation"
	SourcePolicy      Source = "policy"
)

// Event is one durable fault-management record: a breaker transition, a
// degradation level change, or a policy apply.
type Event struct {
	ID         string
	Source     Source
	Subject    string
	EventType  string
	FromState  string
	ToState    string
	Reason     string
	Detail     map[string]any
	OccurredAt time.Time
	TraceID    string
	SpanID     string
}
