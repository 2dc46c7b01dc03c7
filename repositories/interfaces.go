package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/command-gateway/models"
)

// ErrInsufficientCredits is returned by debit operations when the
// principal's balance cannot cover the requested amount. Negative
// balances never persist.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ErrNotFound is returned when the requested row does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint
var ErrDuplicate = errors.New("duplicate record")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// Automatically commits if function succeeds, rolls back on error.
	// The function receives a context carrying the transaction;
	// repositories route all statements through it.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// PrincipalRepository handles principal data operations
type PrincipalRepository interface {
	// Create creates a new principal
	Create(ctx context.Context, principal *models.Principal) error

	// GetByID retrieves a principal by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Principal, error)

	// GetByUsername retrieves a principal by username
	GetByUsername(ctx context.Context, username string) (*models.Principal, error)

	// GetByAPIKeyHash retrieves a principal by API key hash
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*models.Principal, error)

	// List retrieves all principals ordered by creation time
	List(ctx context.Context) ([]*models.Principal, error)

	// DeductCredits atomically deducts amount from the principal's
	// balance. Returns ErrInsufficientCredits when the balance cannot
	// cover the amount, ErrNotFound when the principal does not exist.
	DeductCredits(ctx context.Context, id uuid.UUID, amount int) error

	// AddCredits atomically adds amount to the principal's balance
	AddCredits(ctx context.Context, id uuid.UUID, amount int) error

	// AdjustCredits atomically applies a signed delta and returns the
	// new balance. Unless allowNegative is set, an adjustment that would
	// drive the balance negative fails with ErrInsufficientCredits.
	AdjustCredits(ctx context.Context, id uuid.UUID, delta int, allowNegative bool) (int, error)
}

// RuleRepository handles rule data operations
type RuleRepository interface {
	// Create creates a new rule
	Create(ctx context.Context, rule *models.Rule) error

	// GetByID retrieves a rule by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Rule, error)

	// List retrieves all rules in evaluation order:
	// priority ascending, then creation time, then id.
	List(ctx context.Context) ([]*models.Rule, error)

	// Update updates a rule. Returns ErrNotFound when the id is absent.
	Update(ctx context.Context, rule *models.Rule) error

	// Delete deletes a rule. Returns ErrNotFound when the id is absent.
	Delete(ctx context.Context, id uuid.UUID) error
}

// CommandRepository handles command record data operations
type CommandRepository interface {
	// Create creates a new command record
	Create(ctx context.Context, cmd *models.Command) error

	// GetByID retrieves a command by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Command, error)

	// ListByPrincipal retrieves a principal's commands, newest first
	ListByPrincipal(ctx context.Context, principalID uuid.UUID, limit int) ([]*models.Command, error)

	// ListByStatus retrieves commands in the given status, newest first
	ListByStatus(ctx context.Context, status models.CommandStatus, limit int) ([]*models.Command, error)

	// CountByPrincipal counts a principal's commands, optionally
	// filtered by status (empty status counts all)
	CountByPrincipal(ctx context.Context, principalID uuid.UUID, status models.CommandStatus) (int, error)
}

// AuditRepository handles audit log data operations. The log is
// append-only; there are no update or delete operations.
type AuditRepository interface {
	// Insert appends a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// ListRecent retrieves the most recent entries in timestamp order
	ListRecent(ctx context.Context, limit int) ([]*models.AuditLog, error)

	// ListByPrincipal retrieves entries for a principal in timestamp order
	ListByPrincipal(ctx context.Context, principalID uuid.UUID, limit int) ([]*models.AuditLog, error)

	// ListByTimeRange retrieves entries within [from, to] in timestamp
	// order, optionally filtered by principal (uuid.Nil means all)
	ListByTimeRange(ctx context.Context, principalID uuid.UUID, from, to time.Time, limit int) ([]*models.AuditLog, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Principals PrincipalRepository
	Rules      RuleRepository
	Commands   CommandRepository
	AuditLogs  AuditRepository
}
