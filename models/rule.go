package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// RuleAction represents the outcome a rule assigns to matching commands
type RuleAction string

const (
	ActionAutoAccept      RuleAction = "AUTO_ACCEPT"
	ActionAutoReject      RuleAction = "AUTO_REJECT"
	ActionRequireApproval RuleAction = "REQUIRE_APPROVAL"
)

// ValidRuleAction reports whether the given action is a known action
func ValidRuleAction(action RuleAction) bool {
	switch action {
	case ActionAutoAccept, ActionAutoReject, ActionRequireApproval:
		return true
	}
	return false
}

// Rule is an ordered classification unit. Rules are evaluated in
// ascending priority order (lower value wins); ties break on creation
// time, then id, so repeated evaluations are deterministic.
//
// Pattern is a regular expression under Go's regexp syntax (RE2).
// RE2 guarantees linear-time matching, so admin-supplied patterns
// cannot wedge the matcher through catastrophic backtracking.
type Rule struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Pattern     string     `json:"pattern" db:"pattern"`
	Action      RuleAction `json:"action" db:"action"`
	Description string     `json:"description" db:"description"`
	Priority    int        `json:"priority" db:"priority"`
	CreatedBy   uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Rule model
func (Rule) TableName() string {
	return "rules"
}

// NewRule creates a new Rule instance. The pattern is not validated
// here; callers must compile it before persisting.
func NewRule(pattern string, action RuleAction, description string, priority int, createdBy uuid.UUID) *Rule {
	return &Rule{
		ID:          uuid.New(),
		Pattern:     pattern,
		Action:      action,
		Description: description,
		Priority:    priority,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	}
}

// Compile compiles the rule pattern. Matching is unanchored: a rule
// matches when its pattern matches anywhere in the command text, unless
// the pattern itself carries anchors.
func (r *Rule) Compile() (*regexp.Regexp, error) {
	return regexp.Compile(r.Pattern)
}

// Label returns the human-readable reference used in command results:
// the description when present, otherwise the raw pattern.
func (r *Rule) Label() string {
	if r.Description != "" {
		return r.Description
	}
	return r.Pattern
}
