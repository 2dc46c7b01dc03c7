package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionCommandExecuted        AuditAction = "COMMAND_EXECUTED"
	AuditActionCommandRejected        AuditAction = "COMMAND_REJECTED"
	AuditActionCommandPendingApproval AuditAction = "COMMAND_PENDING_APPROVAL"
	AuditActionRuleCreated            AuditAction = "RULE_CREATED"
	AuditActionRuleUpdated            AuditAction = "RULE_UPDATED"
	AuditActionRuleDeleted            AuditAction = "RULE_DELETED"
	AuditActionPrincipalCreated       AuditAction = "PRINCIPAL_CREATED"
	AuditActionCreditsAdjusted        AuditAction = "CREDITS_ADJUSTED"
)

// AuditLog represents an append-only audit trail entry. Entries are
// never updated or deleted.
type AuditLog struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	PrincipalID uuid.UUID       `json:"principal_id" db:"principal_id"` // The acting principal
	Action      AuditAction     `json:"action" db:"action"`
	Details     json.RawMessage `json:"details" db:"details"` // JSONB for flexible metadata
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(principalID uuid.UUID, action AuditAction) *AuditLog {
	return &AuditLog{
		ID:          uuid.New(),
		PrincipalID: principalID,
		Action:      action,
		Timestamp:   time.Now().UTC(),
	}
}

// WithDetails attaches a structured detail payload to the entry.
// Marshal failures leave details empty rather than dropping the entry.
func (l *AuditLog) WithDetails(details map[string]interface{}) *AuditLog {
	if raw, err := json.Marshal(details); err == nil {
		l.Details = raw
	}
	return l
}
