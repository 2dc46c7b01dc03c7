// Package settlement orchestrates the lifecycle of a submitted command:
// match against the rule set, decide the action, conditionally debit
// the ledger, simulate execution, and persist the command record plus
// its audit entry as one atomic unit.
//
// Per submission the states are
//
//	Submitted -> {Accepted, Rejected, PendingApproval}
//	Accepted  -> Executed
//
// with Rejected, Executed and PendingApproval terminal. Every
// settlement writes exactly one command record and exactly one audit
// entry, inside the same database transaction as any ledger mutation.
// If any step fails the whole unit rolls back; no partial state is ever
// visible.
package settlement

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/repositories"
	"github.com/upb/command-gateway/services"
	"github.com/upb/command-gateway/services/ledger"
	"github.com/upb/command-gateway/services/matcher"
	"go.uber.org/zap"
)

// DefaultHistoryLimit caps list queries when the caller does not set one.
const DefaultHistoryLimit = 100

// syntaxCheck pairs a screening pattern with its rejection message
type syntaxCheck struct {
	re      *regexp.Regexp
	message string
}

// syntaxChecks screens submissions for patterns that indicate a
// malformed command rather than a policy question. A hit yields a
// recorded rejection, not a transport error.
var syntaxChecks = []syntaxCheck{
	{regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`), "Command contains invalid control characters"},
	{regexp.MustCompile(`^[;&|]`), "Command cannot start with operators"},
	{regexp.MustCompile(`[;&|]$`), "Command cannot end with operators"},
	{regexp.MustCompile(`;;+`), "Invalid syntax: multiple semicolons"},
	{regexp.MustCompile(`\|\|+`), "Invalid syntax: multiple pipes"},
	{regexp.MustCompile(`&&+`), "Invalid syntax: multiple ampersands"},
}

// Service settles command submissions
type Service struct {
	matcher   *matcher.Service
	ledger    *ledger.Service
	commands  repositories.CommandRepository
	recorder  services.AuditRecorder
	txManager repositories.TransactionManager
	cost      int // Credits deducted per executed command
	logger    *zap.Logger
}

// NewService creates a new settlement service. cost is the fixed credit
// cost of one executed command.
func NewService(
	m *matcher.Service,
	l *ledger.Service,
	commands repositories.CommandRepository,
	recorder services.AuditRecorder,
	txManager repositories.TransactionManager,
	cost int,
	logger *zap.Logger,
) *Service {
	if cost <= 0 {
		cost = 1
	}
	return &Service{
		matcher:   m,
		ledger:    l,
		commands:  commands,
		recorder:  recorder,
		txManager: txManager,
		cost:      cost,
		logger:    logger,
	}
}

// Submit settles one command submission for the given principal and
// returns the resulting command record. Business rejections (rule
// rejection, insufficient credit, malformed syntax) return a settled
// record, not an error; only pre-state-change validation failures and
// persistence failures return errors.
func (s *Service) Submit(ctx context.Context, principal *models.Principal, commandText string) (*models.Command, error) {
	trimmed := strings.TrimSpace(commandText)
	if trimmed == "" {
		// Rejected before any state change: no record, no audit entry
		return nil, services.ErrEmptyCommandText
	}

	if reason, ok := screen(trimmed); !ok {
		return s.settleSyntaxRejection(ctx, principal, commandText, reason)
	}

	settled, err := services.WithTransactionResult(ctx, s.txManager, func(txCtx context.Context, _ repositories.Transaction) (*models.Command, error) {
		matched, err := s.matcher.Match(txCtx, commandText)
		if err != nil {
			return nil, services.WrapInternal("rule matching failed", err)
		}

		cmd := models.NewCommand(principal.ID, commandText)
		action := models.ActionAutoAccept
		if matched != nil {
			id := matched.ID
			cmd.RuleID = &id
			action = matched.Action
		}

		var auditAction models.AuditAction
		details := map[string]interface{}{
			"command_id":   cmd.ID.String(),
			"command_text": cmd.CommandText,
		}
		if matched != nil {
			details["rule_id"] = matched.ID.String()
		}

		switch action {
		case models.ActionAutoReject:
			cmd.MarkRejected("Command rejected by rule: " + matched.Label())
			auditAction = models.AuditActionCommandRejected
			details["reason"] = "AUTO_REJECT"

		case models.ActionRequireApproval:
			cmd.MarkPendingApproval()
			auditAction = models.AuditActionCommandPendingApproval

		default: // AUTO_ACCEPT, or no rule matched (default-open)
			if err := s.ledger.Debit(txCtx, principal.ID, s.cost); err != nil {
				if errors.Is(err, services.ErrInsufficientCredit) {
					// Terminal business outcome: recorded and audited,
					// balance untouched
					cmd.MarkRejected("Insufficient credits: command execution requires " +
						strconv.Itoa(s.cost) + " credit(s)")
					auditAction = models.AuditActionCommandRejected
					details["reason"] = "INSUFFICIENT_CREDITS"
					break
				}
				return nil, err
			}
			cmd.MarkExecuted(s.cost)
			auditAction = models.AuditActionCommandExecuted
			details["credits_deducted"] = s.cost
		}

		if err := s.commands.Create(txCtx, cmd); err != nil {
			return nil, services.WrapInternal("failed to persist command record", err)
		}

		if _, err := s.recorder.Record(txCtx, principal.ID, auditAction, details); err != nil {
			return nil, err
		}

		return cmd, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("command settled",
		zap.String("command_id", settled.ID.String()),
		zap.String("principal_id", principal.ID.String()),
		zap.String("status", string(settled.Status)),
		zap.Int("credits_deducted", settled.CreditsDeducted))

	return settled, nil
}

// settleSyntaxRejection records a command rejected by the syntax screen.
// Same atomic shape as a rule rejection: one record, one audit entry.
func (s *Service) settleSyntaxRejection(ctx context.Context, principal *models.Principal, commandText, reason string) (*models.Command, error) {
	settled, err := services.WithTransactionResult(ctx, s.txManager, func(txCtx context.Context, _ repositories.Transaction) (*models.Command, error) {
		cmd := models.NewCommand(principal.ID, commandText)
		cmd.MarkRejected("Invalid command: " + reason)

		if err := s.commands.Create(txCtx, cmd); err != nil {
			return nil, services.WrapInternal("failed to persist command record", err)
		}

		details := map[string]interface{}{
			"command_id":   cmd.ID.String(),
			"command_text": cmd.CommandText,
			"reason":       "VALIDATION_ERROR: " + reason,
		}
		if _, err := s.recorder.Record(txCtx, principal.ID, models.AuditActionCommandRejected, details); err != nil {
			return nil, err
		}

		return cmd, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("command rejected by syntax screen",
		zap.String("command_id", settled.ID.String()),
		zap.String("reason", reason))

	return settled, nil
}

// screen checks command text for malformed syntax. Returns the
// rejection reason and false on a hit.
func screen(trimmed string) (string, bool) {
	for _, check := range syntaxChecks {
		if check.re.MatchString(trimmed) {
			return check.message, false
		}
	}
	return "", true
}

// Get returns a single command record, restricted to its owner unless
// the caller is an admin.
func (s *Service) Get(ctx context.Context, caller *models.Principal, id uuid.UUID) (*models.Command, error) {
	cmd, err := s.commands.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrCommandNotFound
		}
		return nil, services.WrapInternal("failed to load command", err)
	}
	if !caller.IsAdmin() && cmd.PrincipalID != caller.ID {
		return nil, services.ErrForbidden
	}
	return cmd, nil
}

// History returns the caller's own command records, newest first.
func (s *Service) History(ctx context.Context, principalID uuid.UUID, limit int) ([]*models.Command, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	cmds, err := s.commands.ListByPrincipal(ctx, principalID, limit)
	if err != nil {
		return nil, services.WrapInternal("failed to list commands", err)
	}
	return cmds, nil
}

// PendingApproval returns commands waiting on an administrator. There
// is no resolution path for these; the list exists for visibility.
func (s *Service) PendingApproval(ctx context.Context, limit int) ([]*models.Command, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	cmds, err := s.commands.ListByStatus(ctx, models.StatusPendingApproval, limit)
	if err != nil {
		return nil, services.WrapInternal("failed to list pending commands", err)
	}
	return cmds, nil
}
