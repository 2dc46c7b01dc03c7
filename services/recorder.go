package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/command-gateway/models"
)

// AuditRecorder appends audit entries. Implementations must join the
// transaction carried in ctx so an entry commits or aborts with the
// unit that produced it.
type AuditRecorder interface {
	Record(ctx context.Context, actorID uuid.UUID, action models.AuditAction, details map[string]interface{}) (*models.AuditLog, error)
}
