// Package ledger tracks each principal's spendable credit balance.
//
// Mutations are linearizable per principal: the underlying guarded
// UPDATE takes the row lock, so two concurrent debits against the same
// principal cannot both succeed on a balance that only covers one.
// Cross-principal operations proceed fully in parallel. Negative
// balances never persist, except through an explicit admin override.
package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/repositories"
	"github.com/upb/command-gateway/services"
	"go.uber.org/zap"
)

// Service is the credit ledger
type Service struct {
	principals repositories.PrincipalRepository
	recorder   services.AuditRecorder
	txManager  repositories.TransactionManager
	logger     *zap.Logger
}

// NewService creates a new ledger service
func NewService(
	principals repositories.PrincipalRepository,
	recorder services.AuditRecorder,
	txManager repositories.TransactionManager,
	logger *zap.Logger,
) *Service {
	return &Service{
		principals: principals,
		recorder:   recorder,
		txManager:  txManager,
		logger:     logger,
	}
}

// Debit deducts amount from the principal's balance. Fails fast with
// ErrInsufficientCredit when the balance cannot cover the amount.
// Joins the transaction carried in ctx when one is present.
func (s *Service) Debit(ctx context.Context, principalID uuid.UUID, amount int) error {
	if amount <= 0 {
		return services.ErrInvalidInput.WithDetail("amount", amount)
	}

	err := s.principals.DeductCredits(ctx, principalID, amount)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrInsufficientCredits):
			return services.ErrInsufficientCredit
		case errors.Is(err, repositories.ErrNotFound):
			return services.ErrPrincipalNotFound
		default:
			return services.WrapInternal("failed to debit credits", err)
		}
	}

	return nil
}

// Credit adds amount to the principal's balance
func (s *Service) Credit(ctx context.Context, principalID uuid.UUID, amount int) error {
	if amount <= 0 {
		return services.ErrInvalidInput.WithDetail("amount", amount)
	}

	err := s.principals.AddCredits(ctx, principalID, amount)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrPrincipalNotFound
		}
		return services.WrapInternal("failed to credit", err)
	}

	return nil
}

// BalanceOf returns the principal's current balance
func (s *Service) BalanceOf(ctx context.Context, principalID uuid.UUID) (int, error) {
	principal, err := s.principals.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, services.ErrPrincipalNotFound
		}
		return 0, services.WrapInternal("failed to get principal", err)
	}
	return principal.Credits, nil
}

// Adjust applies a signed delta to the principal's balance on behalf of
// an admin and returns the new balance. An adjustment that would drive
// the balance negative fails with ErrInsufficientCredit unless
// allowNegative is set. The balance change and its audit entry commit
// in one transaction.
func (s *Service) Adjust(ctx context.Context, actor *models.Principal, principalID uuid.UUID, delta int, allowNegative bool) (int, error) {
	if delta == 0 {
		return 0, services.ErrInvalidInput.WithDetail("delta", "must be non-zero")
	}

	newBalance, err := services.WithTransactionResult(ctx, s.txManager, func(txCtx context.Context, _ repositories.Transaction) (int, error) {
		balance, err := s.principals.AdjustCredits(txCtx, principalID, delta, allowNegative)
		if err != nil {
			switch {
			case errors.Is(err, repositories.ErrInsufficientCredits):
				return 0, services.ErrInsufficientCredit.WithDetail("delta", delta)
			case errors.Is(err, repositories.ErrNotFound):
				return 0, services.ErrPrincipalNotFound
			default:
				return 0, services.WrapInternal("failed to adjust credits", err)
			}
		}

		details := map[string]interface{}{
			"target_principal_id": principalID.String(),
			"delta":               delta,
			"new_balance":         balance,
			"allow_negative":      allowNegative,
		}
		if _, err := s.recorder.Record(txCtx, actor.ID, models.AuditActionCreditsAdjusted, details); err != nil {
			return 0, err
		}

		return balance, nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("credits adjusted",
		zap.String("actor", actor.ID.String()),
		zap.String("principal_id", principalID.String()),
		zap.Int("delta", delta),
		zap.Int("new_balance", newBalance))

	return newBalance, nil
}
