package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/axpulse/axpulse/internal/domain/strategy"
	"github.com/axpulse/axpulse/internal/repository"
)

// StrategyRepository implements repository.StrategyRepository for SQLite
type StrategyRepository struct {
	q dbtx
}

// Create inserts a new strategy
func (r *StrategyRepository) Create(ctx context.Context, strat *strategy.Strategy) error {
	query := `
		INSERT INTO strategies (id, name, normalized_name, description, deprecated)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.q.ExecContext(ctx, query,
		strat.ID,
		strat.Name,
		strat.NormalizedName,
		strat.Description,
		strat.Deprecated,
	)

	if err != nil {
		if sentinel := constraintSentinel(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("failed to create strategy: %w", err)
	}

	return nil
}

// Get retrieves a strategy by ID
func (r *StrategyRepository) Get(ctx context.Context, id string) (*strategy.Strategy, error) {
	return r.getWhere(ctx, "id = ?", id)
}

// GetByName retrieves a strategy by its normalized name
func (r *StrategyRepository) GetByName(ctx context.Context, normalizedName string) (*strategy.Strategy, error) {
	return r.getWhere(ctx, "normalized_name = ?", normalizedName)
}

func (r *StrategyRepository) getWhere(ctx context.Context, cond string, arg any) (*strategy.Strategy, error) {
	query := `
		SELECT id, name, normalized_name, description, deprecated
		FROM strategies
		WHERE ` + cond

	var strat strategy.Strategy
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&strat.ID,
		&strat.Name,
		&strat.NormalizedName,
		&strat.Description,
		&strat.Deprecated,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}

	return &strat, nil
}

// List returns all strategies ordered by name
func (r *StrategyRepository) List(ctx context.Context) ([]strategy.Strategy, error) {
	query := `
		SELECT id, name, normalized_name, description, deprecated
		FROM strategies
		ORDER BY name ASC
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}
	defer rows.Close()

	var strategies []strategy.Strategy
	for rows.Next() {
		var strat strategy.Strategy
		if err := rows.Scan(
			&strat.ID,
			&strat.Name,
			&strat.NormalizedName,
			&strat.Description,
			&strat.Deprecated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		strategies = append(strategies, strat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategy rows: %w", err)
	}

	return strategies, nil
}

// SetDeprecated flips the deprecated flag on a strategy
func (r *StrategyRepository) SetDeprecated(ctx context.Context, id string, deprecated bool) error {
	result, err := r.q.ExecContext(ctx, `UPDATE strategies SET deprecated = ? WHERE id = ?`, deprecated, id)
	if err != nil {
		return fmt.Errorf("failed to update strategy: %w", err)
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
