package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CommandStatus represents the resolved state of a submitted command
type CommandStatus string

const (
	StatusAccepted        CommandStatus = "accepted"
	StatusRejected        CommandStatus = "rejected"
	StatusExecuted        CommandStatus = "executed"
	StatusPendingApproval CommandStatus = "pending_approval"
)

// Command is the record of one submission. Once settled it is
// immutable; result and executed_at are filled within the same
// settlement transaction that created the row.
type Command struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	CommandText     string        `json:"command_text" db:"command_text"`
	Status          CommandStatus `json:"status" db:"status"`
	PrincipalID     uuid.UUID     `json:"principal_id" db:"principal_id"`
	RuleID          *uuid.UUID    `json:"rule_id,omitempty" db:"rule_id"` // Null when no rule matched
	CreditsDeducted int           `json:"credits_deducted" db:"credits_deducted"`
	Result          string        `json:"result" db:"result"`
	SubmittedAt     time.Time     `json:"submitted_at" db:"submitted_at"`
	ExecutedAt      *time.Time    `json:"executed_at,omitempty" db:"executed_at"`
}

// TableName returns the table name for the Command model
func (Command) TableName() string {
	return "commands"
}

// NewCommand creates a new Command instance in the submitted state
func NewCommand(principalID uuid.UUID, commandText string) *Command {
	return &Command{
		ID:          uuid.New(),
		CommandText: commandText,
		PrincipalID: principalID,
		SubmittedAt: time.Now().UTC(),
	}
}

// MarkExecuted transitions the command to executed with a simulated
// execution result
func (c *Command) MarkExecuted(creditsDeducted int) {
	now := time.Now().UTC()
	c.Status = StatusExecuted
	c.CreditsDeducted = creditsDeducted
	c.Result = SimulatedResult(c.CommandText)
	c.ExecutedAt = &now
}

// MarkRejected transitions the command to rejected with the given reason
func (c *Command) MarkRejected(reason string) {
	c.Status = StatusRejected
	c.CreditsDeducted = 0
	c.Result = reason
}

// MarkPendingApproval transitions the command to pending approval
func (c *Command) MarkPendingApproval() {
	c.Status = StatusPendingApproval
	c.CreditsDeducted = 0
	c.Result = "Command requires admin approval"
}

// SimulatedResult synthesizes the result text for a simulated execution.
// The gateway classifies commands, it does not run them.
func SimulatedResult(commandText string) string {
	return fmt.Sprintf("[MOCK] Command '%s' would be executed with status: SUCCESS", commandText)
}
