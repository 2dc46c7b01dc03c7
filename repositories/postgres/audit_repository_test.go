package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/command-gateway/models"
)

func auditColumns() []string {
	return []string{"id", "principal_id", "action", "details", "timestamp"}
}

func TestAuditRepository_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())

	entry := &models.AuditLog{
		ID:          uuid.New(),
		PrincipalID: uuid.New(),
		Action:      models.AuditActionCommandExecuted,
		Details:     json.RawMessage(`{"credits_deducted":1}`),
		Timestamp:   time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO audit_logs \(id, principal_id, action, details, timestamp\)`).
		WithArgs(entry.ID, entry.PrincipalID, entry.Action, []byte(entry.Details), entry.Timestamp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), entry)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_ListRecent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())

	newer := uuid.New()
	older := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, principal_id, action, details, timestamp\s+FROM audit_logs\s+ORDER BY timestamp DESC, id DESC\s+LIMIT \$1`).
		WithArgs(25).
		WillReturnRows(sqlmock.NewRows(auditColumns()).
			AddRow(newer, uuid.New(), "COMMAND_EXECUTED", []byte(`{}`), now).
			AddRow(older, uuid.New(), "COMMAND_REJECTED", []byte(`{}`), now.Add(-time.Hour)))

	logs, err := repo.ListRecent(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, newer, logs[0].ID)
	assert.Equal(t, models.AuditActionCommandRejected, logs[1].Action)
}

func TestAuditRepository_ListByPrincipal(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())

	principalID := uuid.New()
	mock.ExpectQuery(`SELECT id, principal_id, action, details, timestamp\s+FROM audit_logs\s+WHERE principal_id = \$1\s+ORDER BY timestamp DESC, id DESC\s+LIMIT \$2`).
		WithArgs(principalID, 10).
		WillReturnRows(sqlmock.NewRows(auditColumns()).
			AddRow(uuid.New(), principalID, "CREDITS_ADJUSTED", []byte(`{"delta":50}`), time.Now()))

	logs, err := repo.ListByPrincipal(context.Background(), principalID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, principalID, logs[0].PrincipalID)
	assert.JSONEq(t, `{"delta":50}`, string(logs[0].Details))
}

func TestAuditRepository_ListByTimeRange(t *testing.T) {
	ctx := context.Background()
	from := time.Now().UTC().Add(-24 * time.Hour)
	to := time.Now().UTC()

	t.Run("all principals when the filter is nil", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAuditRepository(db, zap.NewNop())

		mock.ExpectQuery(`SELECT id, principal_id, action, details, timestamp\s+FROM audit_logs\s+WHERE timestamp >= \$1 AND timestamp <= \$2\s+ORDER BY timestamp DESC, id DESC\s+LIMIT \$3`).
			WithArgs(from, to, 100).
			WillReturnRows(sqlmock.NewRows(auditColumns()).
				AddRow(uuid.New(), uuid.New(), "PRINCIPAL_CREATED", []byte(`{}`), to))

		logs, err := repo.ListByTimeRange(ctx, uuid.Nil, from, to, 100)
		require.NoError(t, err)
		assert.Len(t, logs, 1)
	})

	t.Run("scoped to a principal", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAuditRepository(db, zap.NewNop())

		principalID := uuid.New()
		mock.ExpectQuery(`SELECT id, principal_id, action, details, timestamp\s+FROM audit_logs\s+WHERE principal_id = \$1 AND timestamp >= \$2 AND timestamp <= \$3\s+ORDER BY timestamp DESC, id DESC\s+LIMIT \$4`).
			WithArgs(principalID, from, to, 100).
			WillReturnRows(sqlmock.NewRows(auditColumns()))

		logs, err := repo.ListByTimeRange(ctx, principalID, from, to, 100)
		require.NoError(t, err)
		assert.Empty(t, logs)
	})
}
