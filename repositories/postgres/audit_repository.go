package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/repositories"
	"go.uber.org/zap"
)

// AuditRepository implements the repositories.AuditRepository interface.
// The audit log is append-only: this repository exposes no update or
// delete operations.
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends a new audit log entry. When a transaction is carried
// in the context the insert joins it, so the entry commits or aborts
// with the enclosing unit.
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, principal_id, action, details, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		log.ID,
		log.PrincipalID,
		log.Action,
		log.Details,
		log.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted",
		zap.String("id", log.ID.String()),
		zap.String("action", string(log.Action)))
	return nil
}

// ListRecent retrieves the most recent entries in timestamp order
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, principal_id, action, details, timestamp
		FROM audit_logs
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`

	return r.queryLogs(ctx, query, limit)
}

// ListByPrincipal retrieves entries for a principal in timestamp order
func (r *AuditRepository) ListByPrincipal(ctx context.Context, principalID uuid.UUID, limit int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, principal_id, action, details, timestamp
		FROM audit_logs
		WHERE principal_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`

	return r.queryLogs(ctx, query, principalID, limit)
}

// ListByTimeRange retrieves entries within [from, to] in timestamp
// order, optionally filtered by principal (uuid.Nil means all)
func (r *AuditRepository) ListByTimeRange(ctx context.Context, principalID uuid.UUID, from, to time.Time, limit int) ([]*models.AuditLog, error) {
	if principalID == uuid.Nil {
		query := `
			SELECT id, principal_id, action, details, timestamp
			FROM audit_logs
			WHERE timestamp >= $1 AND timestamp <= $2
			ORDER BY timestamp DESC, id DESC
			LIMIT $3
		`
		return r.queryLogs(ctx, query, from, to, limit)
	}

	query := `
		SELECT id, principal_id, action, details, timestamp
		FROM audit_logs
		WHERE principal_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp DESC, id DESC
		LIMIT $4
	`
	return r.queryLogs(ctx, query, principalID, from, to, limit)
}

// queryLogs is a helper method to query multiple audit logs
func (r *AuditRepository) queryLogs(ctx context.Context, query string, args ...interface{}) ([]*models.AuditLog, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log := &models.AuditLog{}
		if err := rows.Scan(
			&log.ID,
			&log.PrincipalID,
			&log.Action,
			&log.Details,
			&log.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}
