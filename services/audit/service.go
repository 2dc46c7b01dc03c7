// Package audit implements the audit recorder. Entries are written
// synchronously through the transaction carried in the context, so a
// settlement's audit entry commits or aborts with the rest of the unit.
// The log is append-only and queryable by principal and time range, in
// timestamp order.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/repositories"
	"github.com/upb/command-gateway/services"
	"go.uber.org/zap"
)

// DefaultQueryLimit bounds audit queries when the caller gives no limit
const DefaultQueryLimit = 100

// Service is the audit recorder
type Service struct {
	auditLogs repositories.AuditRepository
	logger    *zap.Logger
}

// NewService creates a new audit service
func NewService(auditLogs repositories.AuditRepository, logger *zap.Logger) *Service {
	return &Service{
		auditLogs: auditLogs,
		logger:    logger,
	}
}

// Record appends an audit entry for the acting principal. When ctx
// carries a transaction the insert joins it; a failed insert aborts
// the enclosing unit.
func (s *Service) Record(ctx context.Context, actorID uuid.UUID, action models.AuditAction, details map[string]interface{}) (*models.AuditLog, error) {
	entry := models.NewAuditLog(actorID, action).WithDetails(details)

	if err := s.auditLogs.Insert(ctx, entry); err != nil {
		return nil, services.WrapInternal("failed to record audit entry", err)
	}

	return entry, nil
}

// QueryFilter narrows an audit query. Zero values mean "no filter".
type QueryFilter struct {
	PrincipalID uuid.UUID
	From        time.Time
	To          time.Time
	Limit       int
}

// Query returns audit entries matching the filter in timestamp order
func (s *Service) Query(ctx context.Context, filter QueryFilter) ([]*models.AuditLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	var (
		logs []*models.AuditLog
		err  error
	)

	switch {
	case !filter.From.IsZero() || !filter.To.IsZero():
		from := filter.From
		to := filter.To
		if to.IsZero() {
			to = time.Now().UTC()
		}
		logs, err = s.auditLogs.ListByTimeRange(ctx, filter.PrincipalID, from, to, limit)
	case filter.PrincipalID != uuid.Nil:
		logs, err = s.auditLogs.ListByPrincipal(ctx, filter.PrincipalID, limit)
	default:
		logs, err = s.auditLogs.ListRecent(ctx, limit)
	}

	if err != nil {
		return nil, services.WrapInternal("failed to query audit logs", err)
	}

	return logs, nil
}
