package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	dalpg "github.com/everestmart/delivery-svc/internal/dal/postgres"
	"github.com/everestmart/delivery-svc/internal/service/models/auditlog"
)

// AuditRepository stores order status transitions for the admin timeline.
type AuditRepository struct {
	conn dalpg.Querier
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(conn dalpg.Querier) *AuditRepository {
	return &AuditRepository{conn: conn}
}

// Insert records one order status transition.
func (r *AuditRepository) Insert(ctx context.Context, entry auditlog.Entry) error {
	query, args, err := sq.Insert("order_audit_log").
		Columns(
			"order_id",
			"from_status",
			"to_status",
			"actor",
			"actor_id",
			"note",
			"occurred_at",
		).
		Values(
			entry.OrderID,
			entry.FromStatus,
			entry.ToStatus,
			string(entry.Actor),
			entry.ActorID,
			entry.Note,
			entry.OccurredAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// ListByOrder returns the transition history of an order, oldest first.
func (r *AuditRepository) ListByOrder(ctx context.Context, orderID string) ([]auditlog.Entry, error) {
	query, args, err := sq.Select(
		"id",
		"order_id",
		"from_status",
		"to_status",
		"actor",
		"actor_id",
		"note",
		"occurred_at",
	).
		From("order_audit_log").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("occurred_at ASC", "id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []auditlog.Entry
	for rows.Next() {
		var (
			e     auditlog.Entry
			actor string
		)
		err := rows.Scan(
			&e.ID,
			&e.OrderID,
			&e.FromStatus,
			&e.ToStatus,
			&actor,
			&e.ActorID,
			&e.Note,
			&e.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Actor = auditlog.Actor(actor)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}
