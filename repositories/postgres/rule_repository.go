package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/repositories"
	"go.uber.org/zap"
)

// RuleRepository implements the repositories.RuleRepository interface
type RuleRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *DB, logger *zap.Logger) repositories.RuleRepository {
	return &RuleRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new rule
func (r *RuleRepository) Create(ctx context.Context, rule *models.Rule) error {
	query := `
		INSERT INTO rules (id, pattern, action, description, priority, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		rule.ID,
		rule.Pattern,
		rule.Action,
		rule.Description,
		rule.Priority,
		rule.CreatedBy,
		rule.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	r.logger.Debug("rule created", zap.String("id", rule.ID.String()))
	return nil
}

// GetByID retrieves a rule by ID
func (r *RuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Rule, error) {
	query := `
		SELECT id, pattern, action, description, priority, created_by, created_at
		FROM rules
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	rule := &models.Rule{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&rule.ID,
		&rule.Pattern,
		&rule.Action,
		&rule.Description,
		&rule.Priority,
		&rule.CreatedBy,
		&rule.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// List retrieves all rules in evaluation order. The ordering key
// (priority, created_at, id) is deterministic across repeated listings;
// the matcher depends on this for reproducible audits.
func (r *RuleRepository) List(ctx context.Context) ([]*models.Rule, error) {
	query := `
		SELECT id, pattern, action, description, priority, created_by, created_at
		FROM rules
		ORDER BY priority ASC, created_at ASC, id ASC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.Rule
	for rows.Next() {
		rule := &models.Rule{}
		if err := rows.Scan(
			&rule.ID,
			&rule.Pattern,
			&rule.Action,
			&rule.Description,
			&rule.Priority,
			&rule.CreatedBy,
			&rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rule rows: %w", err)
	}

	return rules, nil
}

// Update updates a rule
func (r *RuleRepository) Update(ctx context.Context, rule *models.Rule) error {
	query := `
		UPDATE rules
		SET pattern = $2,
		    action = $3,
		    description = $4,
		    priority = $5
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		rule.ID,
		rule.Pattern,
		rule.Action,
		rule.Description,
		rule.Priority,
	)

	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return repositories.ErrNotFound
	}

	r.logger.Debug("rule updated", zap.String("id", rule.ID.String()))
	return nil
}

// Delete deletes a rule. Historical command records keep a null
// matched-rule reference through the FK SET NULL.
func (r *RuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM rules WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return repositories.ErrNotFound
	}

	r.logger.Debug("rule deleted", zap.String("id", id.String()))
	return nil
}
