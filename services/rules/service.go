// Package rules implements the rule store: CRUD over the ordered set of
// pattern rules, with pattern validation at write time and an audit
// entry for every mutation.
package rules

import (
	"context"
	"errors"
	"regexp"

	"github.com/google/uuid"
	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/repositories"
	"github.com/upb/command-gateway/services"
	"go.uber.org/zap"
)

// CreateInput holds the fields for a new rule
type CreateInput struct {
	Pattern     string
	Action      models.RuleAction
	Description string
	Priority    int
}

// UpdateInput holds a partial rule update; nil fields are left unchanged
type UpdateInput struct {
	Pattern     *string
	Action      *models.RuleAction
	Description *string
	Priority    *int
}

// Service is the rule store
type Service struct {
	rules     repositories.RuleRepository
	recorder  services.AuditRecorder
	txManager repositories.TransactionManager
	logger    *zap.Logger
}

// NewService creates a new rule store service
func NewService(
	rules repositories.RuleRepository,
	recorder services.AuditRecorder,
	txManager repositories.TransactionManager,
	logger *zap.Logger,
) *Service {
	return &Service{
		rules:     rules,
		recorder:  recorder,
		txManager: txManager,
		logger:    logger,
	}
}

// List returns all rules in evaluation order
func (s *Service) List(ctx context.Context) ([]*models.Rule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list rules", err)
	}
	return rules, nil
}

// Get returns a single rule by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Rule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrRuleNotFound
		}
		return nil, services.WrapInternal("failed to get rule", err)
	}
	return rule, nil
}

// Create validates and persists a new rule. The pattern must compile;
// rule insert and audit entry commit in one transaction.
func (s *Service) Create(ctx context.Context, actor *models.Principal, input CreateInput) (*models.Rule, error) {
	if _, err := regexp.Compile(input.Pattern); err != nil {
		return nil, services.ErrInvalidPattern.WithDetail("pattern", input.Pattern)
	}
	if !models.ValidRuleAction(input.Action) {
		return nil, services.ErrInvalidAction.WithDetail("action", string(input.Action))
	}

	rule := models.NewRule(input.Pattern, input.Action, input.Description, input.Priority, actor.ID)

	err := s.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		if err := s.rules.Create(txCtx, rule); err != nil {
			return services.WrapInternal("failed to create rule", err)
		}

		_, err := s.recorder.Record(txCtx, actor.ID, models.AuditActionRuleCreated, map[string]interface{}{
			"rule_id":  rule.ID.String(),
			"pattern":  rule.Pattern,
			"action":   string(rule.Action),
			"priority": rule.Priority,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("rule created",
		zap.String("rule_id", rule.ID.String()),
		zap.String("action", string(rule.Action)),
		zap.Int("priority", rule.Priority))

	return rule, nil
}

// Update applies a partial update to an existing rule. A new pattern is
// validated before anything is written.
func (s *Service) Update(ctx context.Context, actor *models.Principal, id uuid.UUID, input UpdateInput) (*models.Rule, error) {
	if input.Pattern != nil {
		if _, err := regexp.Compile(*input.Pattern); err != nil {
			return nil, services.ErrInvalidPattern.WithDetail("pattern", *input.Pattern)
		}
	}
	if input.Action != nil && !models.ValidRuleAction(*input.Action) {
		return nil, services.ErrInvalidAction.WithDetail("action", string(*input.Action))
	}

	rule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Pattern != nil {
		rule.Pattern = *input.Pattern
	}
	if input.Action != nil {
		rule.Action = *input.Action
	}
	if input.Description != nil {
		rule.Description = *input.Description
	}
	if input.Priority != nil {
		rule.Priority = *input.Priority
	}

	err = s.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		if err := s.rules.Update(txCtx, rule); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return services.ErrRuleNotFound
			}
			return services.WrapInternal("failed to update rule", err)
		}

		_, err := s.recorder.Record(txCtx, actor.ID, models.AuditActionRuleUpdated, map[string]interface{}{
			"rule_id":  rule.ID.String(),
			"pattern":  rule.Pattern,
			"action":   string(rule.Action),
			"priority": rule.Priority,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("rule updated", zap.String("rule_id", rule.ID.String()))
	return rule, nil
}

// Delete removes a rule. The audit entry captures the rule as it was
// before deletion.
func (s *Service) Delete(ctx context.Context, actor *models.Principal, id uuid.UUID) error {
	rule, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	err = s.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		if _, err := s.recorder.Record(txCtx, actor.ID, models.AuditActionRuleDeleted, map[string]interface{}{
			"rule_id": rule.ID.String(),
			"pattern": rule.Pattern,
			"action":  string(rule.Action),
		}); err != nil {
			return err
		}

		if err := s.rules.Delete(txCtx, id); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return services.ErrRuleNotFound
			}
			return services.WrapInternal("failed to delete rule", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("rule deleted", zap.String("rule_id", id.String()))
	return nil
}
