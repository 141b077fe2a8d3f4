package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/axpulse/axpulse/internal/domain/event"
	"github.com/axpulse/axpulse/internal/repository"
)

// EventRepository implements repository.EventRepository for SQLite
type EventRepository struct {
	q dbtx
}

// Put upserts one ledger row. A row already present for the same (project,
// month, kind, source snapshot date) has its count overwritten.
func (r *EventRepository) Put(ctx context.Context, evt *event.MonthlyEvent) (bool, error) {
	var exists int
	err := r.q.QueryRowContext(ctx, `
		SELECT 1 FROM monthly_events
		WHERE project_id = ? AND month_key = ? AND kind = ? AND source_snapshot_date = ?
	`, evt.ProjectID, evt.MonthKey, evt.Kind, evt.SourceSnapshotDate).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to check event: %w", err)
	}
	created := err == sql.ErrNoRows

	query := `
		INSERT INTO monthly_events (project_id, month_key, kind, count, source_snapshot_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, month_key, kind, source_snapshot_date)
		DO UPDATE SET count = excluded.count
	`
	_, err = r.q.ExecContext(ctx, query,
		evt.ProjectID,
		evt.MonthKey,
		evt.Kind,
		evt.Count,
		evt.SourceSnapshotDate,
	)
	if err != nil {
		if sentinel := constraintSentinel(err); sentinel != nil {
			return false, sentinel
		}
		return false, fmt.Errorf("failed to put event: %w", err)
	}

	return created, nil
}

// Current returns the latest-known value for a (project, month, kind) tuple
func (r *EventRepository) Current(ctx context.Context, projectID string, key event.MonthKey, kind event.Kind) (*event.MonthlyEvent, error) {
	query := `
		SELECT project_id, month_key, kind, count, source_snapshot_date
		FROM monthly_events
		WHERE project_id = ? AND month_key = ? AND kind = ?
		ORDER BY source_snapshot_date DESC
		LIMIT 1
	`

	var evt event.MonthlyEvent
	err := r.q.QueryRowContext(ctx, query, projectID, key, kind).Scan(
		&evt.ProjectID,
		&evt.MonthKey,
		&evt.Kind,
		&evt.Count,
		&evt.SourceSnapshotDate,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &evt, nil
}

// ListCurrent returns the latest-known value per (project, month, kind)
// tuple, optionally bounded by month range and by source snapshot date.
func (r *EventRepository) ListCurrent(ctx context.Context, opts repository.ListEventsOptions) ([]event.MonthlyEvent, error) {
	query := `
		SELECT e.project_id, e.month_key, e.kind, e.count, e.source_snapshot_date
		FROM monthly_events e
		JOIN (
			SELECT project_id, month_key, kind, MAX(source_snapshot_date) AS source_snapshot_date
			FROM monthly_events
			WHERE (? = '' OR source_snapshot_date <= ?)
			GROUP BY project_id, month_key, kind
		) latest
			ON latest.project_id = e.project_id
			AND latest.month_key = e.month_key
			AND latest.kind = e.kind
			AND latest.source_snapshot_date = e.source_snapshot_date
		WHERE (? = '' OR e.month_key >= ?)
			AND (? = '' OR e.month_key <= ?)
		ORDER BY e.project_id ASC, e.month_key ASC, e.kind ASC
	`

	rows, err := r.q.QueryContext(ctx, query,
		opts.AsOf, opts.AsOf,
		string(opts.From), string(opts.From),
		string(opts.To), string(opts.To),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []event.MonthlyEvent
	for rows.Next() {
		var evt event.MonthlyEvent
		if err := rows.Scan(
			&evt.ProjectID,
			&evt.MonthKey,
			&evt.Kind,
			&evt.Count,
			&evt.SourceSnapshotDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, evt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}
