// Package matcher evaluates command text against the ordered rule set.
//
// Rules are evaluated in ascending priority order with ties broken by
// creation time then id, so repeated evaluations over the same rule set
// are deterministic. Matching is unanchored: a rule matches when its
// pattern is found anywhere in the command text; patterns carry their
// own anchors when they need them. Patterns are compiled with Go's
// regexp package (RE2), which matches in time linear in the input, so
// admin-supplied patterns cannot stall evaluation.
package matcher

import (
	"context"

	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/repositories"
	"go.uber.org/zap"
)

// Service is the policy matcher
type Service struct {
	rules  repositories.RuleRepository
	cache  *PatternCache
	logger *zap.Logger
}

// NewService creates a new matcher service
func NewService(rules repositories.RuleRepository, cache *PatternCache, logger *zap.Logger) *Service {
	return &Service{
		rules:  rules,
		cache:  cache,
		logger: logger,
	}
}

// Match returns the first rule whose pattern matches the command text,
// or nil when no rule matches. Matching is side-effect-free: no state
// changes, no writes. A nil result means no rule had an opinion; the
// settlement layer treats that as accept.
//
// Rules whose stored pattern no longer compiles are skipped; patterns
// are validated at write time, so this only covers rows written outside
// the rule store.
func (s *Service) Match(ctx context.Context, commandText string) (*models.Rule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, rule := range rules {
		re, err := s.cache.Get(rule.Pattern)
		if err != nil {
			s.logger.Warn("skipping rule with invalid pattern",
				zap.String("rule_id", rule.ID.String()),
				zap.String("pattern", rule.Pattern),
				zap.Error(err))
			continue
		}

		if re.MatchString(commandText) {
			s.logger.Debug("rule matched",
				zap.String("rule_id", rule.ID.String()),
				zap.String("action", string(rule.Action)),
				zap.Int("priority", rule.Priority))
			return rule, nil
		}
	}

	return nil, nil
}
