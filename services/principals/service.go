// Package principals manages gateway identities: registration with
// API key issuance, lookup, and usage statistics.
package principals

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/repositories"
	"github.com/upb/command-gateway/services"
	"github.com/upb/command-gateway/utils"
	"go.uber.org/zap"
)

// Service provides principal management operations
type Service struct {
	principals     repositories.PrincipalRepository
	commands       repositories.CommandRepository
	recorder       services.AuditRecorder
	txManager      repositories.TransactionManager
	defaultCredits int
	logger         *zap.Logger
}

// NewService creates a new principal service. defaultCredits is the
// opening balance for newly registered principals.
func NewService(
	principals repositories.PrincipalRepository,
	commands repositories.CommandRepository,
	recorder services.AuditRecorder,
	txManager repositories.TransactionManager,
	defaultCredits int,
	logger *zap.Logger,
) *Service {
	return &Service{
		principals:     principals,
		commands:       commands,
		recorder:       recorder,
		txManager:      txManager,
		defaultCredits: defaultCredits,
		logger:         logger,
	}
}

// RegisterResult carries a freshly created principal together with the
// raw API key. The key is shown exactly once; only its hash is stored.
type RegisterResult struct {
	Principal *models.Principal
	APIKey    string
}

// Register creates a new principal with a generated API key and the
// configured opening credit balance.
func (s *Service) Register(ctx context.Context, actor *models.Principal, username string, role models.PrincipalRole) (*RegisterResult, error) {
	if username == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "username is required", nil)
	}
	if role != models.RoleAdmin && role != models.RoleMember {
		return nil, services.ErrInvalidRole
	}

	apiKey, err := utils.GenerateAPIKey()
	if err != nil {
		return nil, services.WrapInternal("failed to generate API key", err)
	}

	principal := models.NewPrincipal(username, role, utils.HashAPIKey(apiKey), s.defaultCredits)

	err = s.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		if err := s.principals.Create(txCtx, principal); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return services.ErrDuplicateUsername
			}
			return services.WrapInternal("failed to create principal", err)
		}

		_, err := s.recorder.Record(txCtx, actor.ID, models.AuditActionPrincipalCreated, map[string]interface{}{
			"principal_id": principal.ID.String(),
			"username":     principal.Username,
			"role":         string(principal.Role),
			"credits":      principal.Credits,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("principal registered",
		zap.String("principal_id", principal.ID.String()),
		zap.String("username", principal.Username),
		zap.String("role", string(principal.Role)))

	return &RegisterResult{Principal: principal, APIKey: apiKey}, nil
}

// Get returns a principal by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Principal, error) {
	p, err := s.principals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrPrincipalNotFound
		}
		return nil, services.WrapInternal("failed to load principal", err)
	}
	return p, nil
}

// List returns all principals
func (s *Service) List(ctx context.Context) ([]*models.Principal, error) {
	ps, err := s.principals.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list principals", err)
	}
	return ps, nil
}

// Stats summarizes a principal's command activity and balance
type Stats struct {
	PrincipalID      uuid.UUID `json:"principal_id"`
	Username         string    `json:"username"`
	Credits          int       `json:"credits"`
	TotalCommands    int       `json:"total_commands"`
	ExecutedCommands int       `json:"executed_commands"`
	RejectedCommands int       `json:"rejected_commands"`
	PendingCommands  int       `json:"pending_commands"`
}

// StatsFor computes activity statistics for a principal
func (s *Service) StatsFor(ctx context.Context, id uuid.UUID) (*Stats, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	total, err := s.commands.CountByPrincipal(ctx, id, "")
	if err != nil {
		return nil, services.WrapInternal("failed to count commands", err)
	}

	counts := map[models.CommandStatus]int{}
	for _, status := range []models.CommandStatus{models.StatusExecuted, models.StatusRejected, models.StatusPendingApproval} {
		n, err := s.commands.CountByPrincipal(ctx, id, status)
		if err != nil {
			return nil, services.WrapInternal("failed to count commands", err)
		}
		counts[status] = n
	}

	return &Stats{
		PrincipalID:      p.ID,
		Username:         p.Username,
		Credits:          p.Credits,
		TotalCommands:    total,
		ExecutedCommands: counts[models.StatusExecuted],
		RejectedCommands: counts[models.StatusRejected],
		PendingCommands:  counts[models.StatusPendingApproval],
	}, nil
}
