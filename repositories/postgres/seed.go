package postgres

import (
	"context"
	"fmt"

	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/utils"
	"go.uber.org/zap"
)

// defaultRule describes one entry of the seeded rule set
type defaultRule struct {
	pattern     string
	action      models.RuleAction
	description string
	priority    int
}

// defaultRules is the initial policy shipped with a fresh database:
// well-known destructive commands rejected at priority 0, common safe
// read operations accepted at priority 1.
var defaultRules = []defaultRule{
	{`:\(\)\{ :\|:& \};:`, models.ActionAutoReject, "Fork bomb - dangerous recursive process", 0},
	{`rm\s+-rf\s+/`, models.ActionAutoReject, "Delete root directory - extremely dangerous", 0},
	{`mkfs\.`, models.ActionAutoReject, "Format filesystem - data loss", 0},
	{`dd\s+if=/dev/(zero|random)\s+of=/dev/`, models.ActionAutoReject, "Overwrite disk - data loss", 0},
	{`chmod\s+-R\s+777\s+/`, models.ActionAutoReject, "Make all files world-writable - security risk", 0},
	{`git\s+(status|log|diff|branch|show)`, models.ActionAutoAccept, "Safe git read operations", 1},
	{`^(ls|cat|pwd|echo|which|whoami|date|uptime)`, models.ActionAutoAccept, "Safe basic commands", 1},
	{`^grep\s+`, models.ActionAutoAccept, "Text search - safe", 1},
	{`^find\s+`, models.ActionAutoAccept, "File search - safe", 1},
}

// Seed creates the default admin principal and rule set when the
// database is empty. Idempotent: existing data is left untouched.
// The admin API key is generated fresh and logged exactly once; it is
// not recoverable afterwards.
func (db *DB) Seed(ctx context.Context, adminCredits int) error {
	principalRepo := NewPrincipalRepository(db, db.logger)
	ruleRepo := NewRuleRepository(db, db.logger)

	admin, err := principalRepo.GetByUsername(ctx, "admin")
	if err == nil {
		db.logger.Info("admin principal already exists, skipping seed",
			zap.String("id", admin.ID.String()))
	} else {
		apiKey, err := utils.GenerateAPIKey()
		if err != nil {
			return fmt.Errorf("failed to generate admin API key: %w", err)
		}

		admin = models.NewPrincipal("admin", models.RoleAdmin, utils.HashAPIKey(apiKey), adminCredits)
		if err := principalRepo.Create(ctx, admin); err != nil {
			return fmt.Errorf("failed to create admin principal: %w", err)
		}

		// Shown once; only the hash is stored
		db.logger.Info("created default admin principal",
			zap.String("id", admin.ID.String()),
			zap.String("api_key", apiKey),
			zap.Int("credits", adminCredits))
	}

	existing, err := ruleRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}
	if len(existing) > 0 {
		db.logger.Info("rules already exist, skipping seed", zap.Int("count", len(existing)))
		return nil
	}

	for _, dr := range defaultRules {
		rule := models.NewRule(dr.pattern, dr.action, dr.description, dr.priority, admin.ID)
		if _, err := rule.Compile(); err != nil {
			return fmt.Errorf("default rule pattern %q does not compile: %w", dr.pattern, err)
		}
		if err := ruleRepo.Create(ctx, rule); err != nil {
			return fmt.Errorf("failed to create default rule: %w", err)
		}
	}

	db.logger.Info("created default rule set", zap.Int("count", len(defaultRules)))
	return nil
}
