package rules

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/repositories"
	"github.com/upb/command-gateway/services"
	"github.com/upb/command-gateway/services/audit"
	"go.uber.org/zap"
)

// MockRuleRepository is a mock implementation of RuleRepository
type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) Create(ctx context.Context, rule *models.Rule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Rule, error) {
	args := m.Called(ctx, id)
	if rule := args.Get(0); rule != nil {
		return rule.(*models.Rule), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRuleRepository) List(ctx context.Context) ([]*models.Rule, error) {
	args := m.Called(ctx)
	if rules := args.Get(0); rules != nil {
		return rules.([]*models.Rule), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRuleRepository) Update(ctx context.Context, rule *models.Rule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAuditRepository is a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockAuditRepository) ListRecent(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, limit)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditRepository) ListByPrincipal(ctx context.Context, principalID uuid.UUID, limit int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, principalID, limit)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditRepository) ListByTimeRange(ctx context.Context, principalID uuid.UUID, from, to time.Time, limit int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, principalID, from, to, limit)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

type fakeTx struct{}

func (fakeTx) Commit() error            { return nil }
func (fakeTx) Rollback() error          { return nil }
func (fakeTx) Context() context.Context { return context.Background() }

type fakeTxManager struct{}

func (fakeTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return fakeTx{}, nil
}

func (fakeTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return fn(ctx, fakeTx{})
}

func newFixture() (*Service, *MockRuleRepository, *MockAuditRepository) {
	ruleRepo := new(MockRuleRepository)
	auditRepo := new(MockAuditRepository)
	svc := NewService(ruleRepo, audit.NewService(auditRepo, zap.NewNop()), fakeTxManager{}, zap.NewNop())
	return svc, ruleRepo, auditRepo
}

func admin() *models.Principal {
	return models.NewPrincipal("root", models.RoleAdmin, "hash", 100)
}

func TestCreate_RejectsInvalidPattern(t *testing.T) {
	svc, ruleRepo, _ := newFixture()

	_, err := svc.Create(context.Background(), admin(), CreateInput{
		Pattern: `([unclosed`,
		Action:  models.ActionAutoReject,
	})

	assert.True(t, services.IsValidationError(err))
	ruleRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreate_RejectsUnknownAction(t *testing.T) {
	svc, ruleRepo, _ := newFixture()

	_, err := svc.Create(context.Background(), admin(), CreateInput{
		Pattern: `^ls\b`,
		Action:  models.RuleAction("MAYBE"),
	})

	assert.True(t, services.IsValidationError(err))
	ruleRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreate_PersistsRuleAndAuditEntry(t *testing.T) {
	svc, ruleRepo, auditRepo := newFixture()
	actor := admin()

	ruleRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Rule")).Return(nil)
	auditRepo.On("Insert", mock.Anything, mock.AnythingOfType("*models.AuditLog")).Return(nil)

	rule, err := svc.Create(context.Background(), actor, CreateInput{
		Pattern:     `:\(\)\{.*\};:`,
		Action:      models.ActionAutoReject,
		Description: "Fork bomb",
		Priority:    0,
	})

	require.NoError(t, err)
	assert.Equal(t, actor.ID, rule.CreatedBy)
	assert.Equal(t, models.ActionAutoReject, rule.Action)

	entry := auditRepo.Calls[0].Arguments.Get(1).(*models.AuditLog)
	assert.Equal(t, models.AuditActionRuleCreated, entry.Action)
}

func TestUpdate_PartialFieldsOnly(t *testing.T) {
	svc, ruleRepo, auditRepo := newFixture()
	actor := admin()

	existing := models.NewRule(`^ls\b`, models.ActionAutoAccept, "List files", 1, actor.ID)
	ruleRepo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	ruleRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.Rule")).Return(nil)
	auditRepo.On("Insert", mock.Anything, mock.AnythingOfType("*models.AuditLog")).Return(nil)

	newPriority := 5
	updated, err := svc.Update(context.Background(), actor, existing.ID, UpdateInput{
		Priority: &newPriority,
	})

	require.NoError(t, err)
	assert.Equal(t, 5, updated.Priority)
	// Untouched fields survive
	assert.Equal(t, `^ls\b`, updated.Pattern)
	assert.Equal(t, models.ActionAutoAccept, updated.Action)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, ruleRepo, _ := newFixture()
	id := uuid.New()

	ruleRepo.On("GetByID", mock.Anything, id).Return(nil, repositories.ErrNotFound)

	_, err := svc.Update(context.Background(), admin(), id, UpdateInput{})
	assert.True(t, services.IsNotFoundError(err))
}

func TestDelete_AuditsBeforeRemoval(t *testing.T) {
	svc, ruleRepo, auditRepo := newFixture()
	actor := admin()

	existing := models.NewRule(`^rm\b`, models.ActionAutoReject, "", 0, actor.ID)
	ruleRepo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	ruleRepo.On("Delete", mock.Anything, existing.ID).Return(nil)
	auditRepo.On("Insert", mock.Anything, mock.AnythingOfType("*models.AuditLog")).Return(nil)

	err := svc.Delete(context.Background(), actor, existing.ID)

	require.NoError(t, err)
	entry := auditRepo.Calls[0].Arguments.Get(1).(*models.AuditLog)
	assert.Equal(t, models.AuditActionRuleDeleted, entry.Action)
}

func TestDelete_NotFound(t *testing.T) {
	svc, ruleRepo, _ := newFixture()
	id := uuid.New()

	ruleRepo.On("GetByID", mock.Anything, id).Return(nil, repositories.ErrNotFound)

	err := svc.Delete(context.Background(), admin(), id)
	assert.True(t, services.IsNotFoundError(err))
}
