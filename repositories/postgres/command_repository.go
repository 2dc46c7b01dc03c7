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

// CommandRepository implements the repositories.CommandRepository interface
type CommandRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewCommandRepository creates a new command repository
func NewCommandRepository(db *DB, logger *zap.Logger) repositories.CommandRepository {
	return &CommandRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new command record
func (r *CommandRepository) Create(ctx context.Context, cmd *models.Command) error {
	query := `
		INSERT INTO commands (id, command_text, status, principal_id, rule_id, credits_deducted, result, submitted_at, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		cmd.ID,
		cmd.CommandText,
		cmd.Status,
		cmd.PrincipalID,
		cmd.RuleID,
		cmd.CreditsDeducted,
		cmd.Result,
		cmd.SubmittedAt,
		cmd.ExecutedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create command: %w", err)
	}

	r.logger.Debug("command created",
		zap.String("id", cmd.ID.String()),
		zap.String("status", string(cmd.Status)))
	return nil
}

// GetByID retrieves a command by ID
func (r *CommandRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Command, error) {
	query := `
		SELECT id, command_text, status, principal_id, rule_id, credits_deducted, result, submitted_at, executed_at
		FROM commands
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	cmd := &models.Command{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&cmd.ID,
		&cmd.CommandText,
		&cmd.Status,
		&cmd.PrincipalID,
		&cmd.RuleID,
		&cmd.CreditsDeducted,
		&cmd.Result,
		&cmd.SubmittedAt,
		&cmd.ExecutedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get command: %w", err)
	}

	return cmd, nil
}

// ListByPrincipal retrieves a principal's commands, newest first
func (r *CommandRepository) ListByPrincipal(ctx context.Context, principalID uuid.UUID, limit int) ([]*models.Command, error) {
	query := `
		SELECT id, command_text, status, principal_id, rule_id, credits_deducted, result, submitted_at, executed_at
		FROM commands
		WHERE principal_id = $1
		ORDER BY submitted_at DESC, id DESC
		LIMIT $2
	`

	return r.queryCommands(ctx, query, principalID, limit)
}

// ListByStatus retrieves commands in the given status, newest first
func (r *CommandRepository) ListByStatus(ctx context.Context, status models.CommandStatus, limit int) ([]*models.Command, error) {
	query := `
		SELECT id, command_text, status, principal_id, rule_id, credits_deducted, result, submitted_at, executed_at
		FROM commands
		WHERE status = $1
		ORDER BY submitted_at DESC, id DESC
		LIMIT $2
	`

	return r.queryCommands(ctx, query, status, limit)
}

// CountByPrincipal counts a principal's commands, optionally filtered
// by status (empty status counts all)
func (r *CommandRepository) CountByPrincipal(ctx context.Context, principalID uuid.UUID, status models.CommandStatus) (int, error) {
	executor := GetExecutor(ctx, r.db)

	var count int
	var err error
	if status == "" {
		query := `SELECT COUNT(*) FROM commands WHERE principal_id = $1`
		err = executor.QueryRowContext(ctx, query, principalID).Scan(&count)
	} else {
		query := `SELECT COUNT(*) FROM commands WHERE principal_id = $1 AND status = $2`
		err = executor.QueryRowContext(ctx, query, principalID, status).Scan(&count)
	}

	if err != nil {
		return 0, fmt.Errorf("failed to count commands: %w", err)
	}

	return count, nil
}

// queryCommands is a helper method to query multiple commands
func (r *CommandRepository) queryCommands(ctx context.Context, query string, args ...interface{}) ([]*models.Command, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	var commands []*models.Command
	for rows.Next() {
		cmd := &models.Command{}
		if err := rows.Scan(
			&cmd.ID,
			&cmd.CommandText,
			&cmd.Status,
			&cmd.PrincipalID,
			&cmd.RuleID,
			&cmd.CreditsDeducted,
			&cmd.Result,
			&cmd.SubmittedAt,
			&cmd.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		commands = append(commands, cmd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating command rows: %w", err)
	}

	return commands, nil
}
