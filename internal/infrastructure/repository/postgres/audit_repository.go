package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/faultline/internal/domain/audit"
	qb "github.com/riskibarqy/faultline/internal/platform/querybuilder"
)

type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, event audit.Event) error {
	publicID := strings.TrimSpace(event.ID)
	if publicID == "" {
		return fmt.Errorf("audit event id is required")
	}
	subject := strings.TrimSpace(event.Subject)
	if subject == "" {
		subject = "unknown"
	}

	occurredAt := event.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	detailJSON, err := marshalDetail(event.Detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}

	model := auditEventInsertModel{
		PublicID:   publicID,
		Source:     string(event.Source),
		Subject:    subject,
		EventType:  strings.TrimSpace(event.EventType),
		FromState:  optionalString(event.FromState),
		ToState:    optionalString(event.ToState),
		Reason:     optionalString(event.Reason),
		Detail:     detailJSON,
		OccurredAt: occurredAt,
		TraceID:    optionalString(event.TraceID),
		SpanID:     optionalString(event.SpanID),
	}

	query, args, err := qb.InsertModel("audit_events", model, "ON CONFLICT (public_id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build insert audit event query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit event public_id=%s source=%s: %w", publicID, event.Source, err)
	}

	return nil
}

func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit < 1 {
		limit = 50
	}

	const query = `SELECT public_id, source, subject, event_type, from_state, to_state, reason, detail, occurred_at, trace_id, span_id
FROM audit_events
ORDER BY occurred_at DESC, id DESC
LIMIT $1`

	var rows []auditEventRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list recent audit events limit=%d: %w", limit, err)
	}

	out := make([]audit.Event, 0, len(rows))
	for _, row := range rows {
		event, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}

	return out, nil
}

func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_events WHERE occurred_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete audit events before %s: %w", cutoff.UTC().Format(time.RFC3339), err)
	}

	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned audit events: %w", err)
	}

	return pruned, nil
}

func (row auditEventRow) toDomain() (audit.Event, error) {
	event := audit.Event{
		ID:         row.PublicID,
		Source:     audit.Source(row.Source),
		Subject:    row.Subject,
		EventType:  row.EventType,
		FromState:  stringValue(row.FromState),
		ToState:    stringValue(row.ToState),
		Reason:     stringValue(row.Reason),
		OccurredAt: row.OccurredAt,
		TraceID:    stringValue(row.TraceID),
		SpanID:     stringValue(row.SpanID),
	}

	if len(row.Detail) > 0 && string(row.Detail) != "{}" {
		if err := sonic.Unmarshal(row.Detail, &event.Detail); err != nil {
			return audit.Event{}, fmt.Errorf("unmarshal audit detail public_id=%s: %w", row.PublicID, err)
		}
	}

	return event, nil
}

func marshalDetail(detail map[string]any) (string, error) {
	if len(detail) == 0 {
		return "{}", nil
	}
	raw, err := sonic.Marshal(detail)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
