package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/command-gateway/models"
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

func newMatcher(rules ...*models.Rule) *Service {
	repo := new(MockRuleRepository)
	repo.On("List", mock.Anything).Return(rules, nil)
	return NewService(repo, NewPatternCache(16), zap.NewNop())
}

func TestMatch_FirstMatchInPriorityOrderWins(t *testing.T) {
	// The repository returns rules already ordered by priority, then
	// creation time, then id. The matcher must take the first hit.
	reject := models.NewRule(`rm`, models.ActionAutoReject, "", 0, uuid.New())
	accept := models.NewRule(`rm`, models.ActionAutoAccept, "", 1, uuid.New())

	svc := newMatcher(reject, accept)

	matched, err := svc.Match(context.Background(), "rm notes.txt")
	require.NoError(t, err)
	require.NotNil(t, matched)
	assert.Equal(t, reject.ID, matched.ID)
}

func TestMatch_TieBreakIsStable(t *testing.T) {
	// Two rules at the same priority: the repository orders them by
	// creation time, and the matcher must preserve that order on every
	// evaluation.
	older := models.NewRule(`ls`, models.ActionAutoAccept, "older", 0, uuid.New())
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := models.NewRule(`ls`, models.ActionAutoReject, "newer", 0, uuid.New())

	svc := newMatcher(older, newer)

	for i := 0; i < 10; i++ {
		matched, err := svc.Match(context.Background(), "ls -la")
		require.NoError(t, err)
		require.NotNil(t, matched)
		assert.Equal(t, older.ID, matched.ID)
	}
}

func TestMatch_Unanchored(t *testing.T) {
	rule := models.NewRule(`rm\s+-rf`, models.ActionAutoReject, "", 0, uuid.New())
	svc := newMatcher(rule)

	cases := []struct {
		text    string
		matches bool
	}{
		{"rm -rf /tmp", true},
		{"cd /tmp && rm -rf build", true},
		{"echo rm -rf", true},
		{"rmdir build", false},
		{"ls -la", false},
	}

	for _, tc := range cases {
		matched, err := svc.Match(context.Background(), tc.text)
		require.NoError(t, err)
		if tc.matches {
			assert.NotNil(t, matched, tc.text)
		} else {
			assert.Nil(t, matched, tc.text)
		}
	}
}

func TestMatch_AnchoredPatternRespected(t *testing.T) {
	rule := models.NewRule(`^git\s`, models.ActionAutoAccept, "", 0, uuid.New())
	svc := newMatcher(rule)

	matched, err := svc.Match(context.Background(), "git status")
	require.NoError(t, err)
	assert.NotNil(t, matched)

	matched, err = svc.Match(context.Background(), "echo git status")
	require.NoError(t, err)
	assert.Nil(t, matched)
}

func TestMatch_NoRulesMeansNoDecision(t *testing.T) {
	svc := newMatcher()

	matched, err := svc.Match(context.Background(), "anything at all")
	require.NoError(t, err)
	assert.Nil(t, matched)
}

func TestMatch_SkipsInvalidPattern(t *testing.T) {
	broken := models.NewRule(`([unclosed`, models.ActionAutoReject, "", 0, uuid.New())
	valid := models.NewRule(`whoami`, models.ActionAutoAccept, "", 1, uuid.New())

	svc := newMatcher(broken, valid)

	matched, err := svc.Match(context.Background(), "whoami")
	require.NoError(t, err)
	require.NotNil(t, matched)
	assert.Equal(t, valid.ID, matched.ID)
}

func TestPatternCache_CompilesOnceAndEvicts(t *testing.T) {
	cache := NewPatternCache(2)

	a, err := cache.Get(`foo`)
	require.NoError(t, err)

	// Same pattern returns the cached program
	b, err := cache.Get(`foo`)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = cache.Get(`bar`)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())

	// Third distinct pattern evicts the least recently used one
	_, err = cache.Get(`baz`)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())
}

func TestPatternCache_InvalidPattern(t *testing.T) {
	cache := NewPatternCache(2)

	_, err := cache.Get(`([`)
	assert.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}
