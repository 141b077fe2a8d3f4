package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/axpulse/axpulse/internal/domain/project"
	"github.com/axpulse/axpulse/internal/repository"
)

// ProjectRepository implements repository.ProjectRepository for SQLite
type ProjectRepository struct {
	q dbtx
}

// Create inserts a new project
func (r *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	query := `
		INSERT INTO projects (id, name, champion, strategy_id, status, created_snapshot, updated_snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.q.ExecContext(ctx, query,
		proj.ID,
		proj.Name,
		proj.Champion,
		proj.StrategyID,
		proj.Status,
		proj.CreatedSnapshot,
		proj.UpdatedSnapshot,
	)

	if err != nil {
		if sentinel := constraintSentinel(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// Get retrieves a project by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	query := `
		SELECT id, name, champion, strategy_id, status, created_snapshot, updated_snapshot
		FROM projects
		WHERE id = ?
	`

	var proj project.Project
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&proj.ID,
		&proj.Name,
		&proj.Champion,
		&proj.StrategyID,
		&proj.Status,
		&proj.CreatedSnapshot,
		&proj.UpdatedSnapshot,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &proj, nil
}

// Update rewrites the mutable fields of an existing project
func (r *ProjectRepository) Update(ctx context.Context, proj *project.Project) error {
	query := `
		UPDATE projects
		SET name = ?, champion = ?, strategy_id = ?, status = ?, updated_snapshot = ?
		WHERE id = ?
	`

	result, err := r.q.ExecContext(ctx, query,
		proj.Name,
		proj.Champion,
		proj.StrategyID,
		proj.Status,
		proj.UpdatedSnapshot,
		proj.ID,
	)
	if err != nil {
		if sentinel := constraintSentinel(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("failed to update project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// List returns all projects ordered by ID
func (r *ProjectRepository) List(ctx context.Context) ([]project.Project, error) {
	query := `
		SELECT id, name, champion, strategy_id, status, created_snapshot, updated_snapshot
		FROM projects
		ORDER BY id ASC
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		var proj project.Project
		if err := rows.Scan(
			&proj.ID,
			&proj.Name,
			&proj.Champion,
			&proj.StrategyID,
			&proj.Status,
			&proj.CreatedSnapshot,
			&proj.UpdatedSnapshot,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, proj)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	return projects, nil
}
