package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/repositories"
	"go.uber.org/zap"
)

// PrincipalRepository implements the repositories.PrincipalRepository interface
type PrincipalRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewPrincipalRepository creates a new principal repository
func NewPrincipalRepository(db *DB, logger *zap.Logger) repositories.PrincipalRepository {
	return &PrincipalRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new principal
func (r *PrincipalRepository) Create(ctx context.Context, principal *models.Principal) error {
	query := `
		INSERT INTO principals (id, username, api_key_hash, role, credits, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		principal.ID,
		principal.Username,
		principal.APIKeyHash,
		principal.Role,
		principal.Credits,
		principal.CreatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return repositories.ErrDuplicate
		}
		return fmt.Errorf("failed to create principal: %w", err)
	}

	r.logger.Debug("principal created", zap.String("id", principal.ID.String()))
	return nil
}

// GetByID retrieves a principal by ID
func (r *PrincipalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Principal, error) {
	query := `
		SELECT id, username, api_key_hash, role, credits, created_at
		FROM principals
		WHERE id = $1
	`
	return r.queryPrincipal(ctx, query, id)
}

// GetByUsername retrieves a principal by username
func (r *PrincipalRepository) GetByUsername(ctx context.Context, username string) (*models.Principal, error) {
	query := `
		SELECT id, username, api_key_hash, role, credits, created_at
		FROM principals
		WHERE username = $1
	`
	return r.queryPrincipal(ctx, query, username)
}

// GetByAPIKeyHash retrieves a principal by API key hash
func (r *PrincipalRepository) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*models.Principal, error) {
	query := `
		SELECT id, username, api_key_hash, role, credits, created_at
		FROM principals
		WHERE api_key_hash = $1
	`
	return r.queryPrincipal(ctx, query, apiKeyHash)
}

// List retrieves all principals ordered by creation time
func (r *PrincipalRepository) List(ctx context.Context) ([]*models.Principal, error) {
	query := `
		SELECT id, username, api_key_hash, role, credits, created_at
		FROM principals
		ORDER BY created_at ASC, id ASC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query principals: %w", err)
	}
	defer rows.Close()

	var principals []*models.Principal
	for rows.Next() {
		principal := &models.Principal{}
		if err := rows.Scan(
			&principal.ID,
			&principal.Username,
			&principal.APIKeyHash,
			&principal.Role,
			&principal.Credits,
			&principal.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan principal: %w", err)
		}
		principals = append(principals, principal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating principal rows: %w", err)
	}

	return principals, nil
}

// DeductCredits atomically deducts amount from the principal's balance.
// The guarded UPDATE takes the row lock inside the enclosing
// transaction, so concurrent debits against the same principal
// serialize and the later one re-evaluates the balance guard. Zero
// affected rows means either an insufficient balance or a missing
// principal.
func (r *PrincipalRepository) DeductCredits(ctx context.Context, id uuid.UUID, amount int) error {
	query := `
		UPDATE principals
		SET credits = credits - $2
		WHERE id = $1 AND credits >= $2
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to deduct credits: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Distinguish a missing principal from an insufficient balance
		if _, err := r.GetByID(ctx, id); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return repositories.ErrNotFound
			}
			return err
		}
		return repositories.ErrInsufficientCredits
	}

	r.logger.Debug("credits deducted",
		zap.String("principal_id", id.String()),
		zap.Int("amount", amount))
	return nil
}

// AddCredits atomically adds amount to the principal's balance
func (r *PrincipalRepository) AddCredits(ctx context.Context, id uuid.UUID, amount int) error {
	query := `
		UPDATE principals
		SET credits = credits + $2
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to add credits: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return repositories.ErrNotFound
	}

	return nil
}

// AdjustCredits atomically applies a signed delta and returns the new
// balance. Unless allowNegative is set, adjustments that would drive
// the balance negative fail with ErrInsufficientCredits.
func (r *PrincipalRepository) AdjustCredits(ctx context.Context, id uuid.UUID, delta int, allowNegative bool) (int, error) {
	query := `
		UPDATE principals
		SET credits = credits + $2
		WHERE id = $1 AND ($3 OR credits + $2 >= 0)
		RETURNING credits
	`

	executor := GetExecutor(ctx, r.db)
	var newBalance int
	err := executor.QueryRowContext(ctx, query, id, delta, allowNegative).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Distinguish a missing principal from a rejected adjustment
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return 0, getErr
			}
			return 0, repositories.ErrInsufficientCredits
		}
		return 0, fmt.Errorf("failed to adjust credits: %w", err)
	}

	r.logger.Debug("credits adjusted",
		zap.String("principal_id", id.String()),
		zap.Int("delta", delta),
		zap.Int("new_balance", newBalance))
	return newBalance, nil
}

// queryPrincipal is a helper to query a single principal
func (r *PrincipalRepository) queryPrincipal(ctx context.Context, query string, arg interface{}) (*models.Principal, error) {
	executor := GetExecutor(ctx, r.db)
	principal := &models.Principal{}

	err := executor.QueryRowContext(ctx, query, arg).Scan(
		&principal.ID,
		&principal.Username,
		&principal.APIKeyHash,
		&principal.Role,
		&principal.Credits,
		&principal.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}

	return principal, nil
}
