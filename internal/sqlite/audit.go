package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/axpulse/axpulse/internal/domain/audit"
)

// AuditRepository implements repository.AuditRepository for SQLite
type AuditRepository struct {
	q dbtx
}

// Record inserts one audit entry
func (r *AuditRepository) Record(ctx context.Context, entry *audit.Entry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_log (entity_type, entity_id, change_kind, before_state, after_state, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.q.ExecContext(ctx, query,
		entry.EntityType,
		entry.EntityID,
		entry.ChangeKind,
		entry.BeforeState,
		entry.AfterState,
		entry.Actor,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		entry.ID = id
	}
	entry.CreatedAt = createdAt

	return nil
}

// List returns audit entries matching the given filters, newest first
func (r *AuditRepository) List(ctx context.Context, opts audit.ListOptions) ([]audit.Entry, error) {
	query := `
		SELECT id, entity_type, entity_id, change_kind, before_state, after_state, actor, created_at
		FROM audit_log
	`

	var conditions []string
	var args []any
	if opts.EntityType != "" {
		conditions = append(conditions, "entity_type = ?")
		args = append(args, opts.EntityType)
	}
	if opts.EntityID != "" {
		conditions = append(conditions, "entity_id = ?")
		args = append(args, opts.EntityID)
	}

	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	query += " ORDER BY id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var entry audit.Entry
		if err := rows.Scan(
			&entry.ID,
			&entry.EntityType,
			&entry.EntityID,
			&entry.ChangeKind,
			&entry.BeforeState,
			&entry.AfterState,
			&entry.Actor,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}

	return entries, nil
}
