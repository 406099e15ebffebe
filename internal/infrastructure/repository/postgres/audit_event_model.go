package postgres

import "time"

type auditEventInsertModel struct {
	PublicID   string    `db:"public_id"`
	Source     string    `db:"source"`
	Subject    string    `db:"subject"`
	EventType  string    `db:"event_type"`
	FromState  *string   `db:"from_state"`
	ToState    *string   `db:"to_state"`
	Reason     *string   `db:"reason"`
	Detail     string    `db:"detail"`
	OccurredAt time.Time `db:"occurred_at"`
	TraceID    *string   `db:"trace_id"`
	SpanID     *string   `db:"span_id"`
}

type auditEventRow struct {
	PublicID   string    `db:"public_id"`
	Source     string    `db:"source"`
	Subject    string    `db:"subject"`
	EventType  string    `db:"event_type"`
	FromState  *string   `db:"from_state"`
	ToState    *string   `db:"to_state"`
	Reason     *string   `db:"reason"`
	Detail     []byte    `db:"detail"`
	OccurredAt time.Time `db:"occurred_at"`
	TraceID    *string   `db:"trace_id"`
	SpanID     *string   `db:"span_id"`
}
