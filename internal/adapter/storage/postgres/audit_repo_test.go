package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"salesguard/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func auditColumnNames() []string {
	return []string{"id", "worker_id", "action_type", "sale_id", "before_data", "after_data", "created_at"}
}

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	workerID, saleID := uuid.New(), uuid.New()
	entry := &domain.AuditLog{
		ID:        uuid.New(),
		WorkerID:  &workerID,
		Action:    domain.AuditActionDeleteSale,
		SaleID:    &saleID,
		Before:    json.RawMessage(`{"product_name":"Sugar"}`),
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.ID, entry.WorkerID, entry.Action, entry.SaleID, entry.Before, entry.After, entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(errors.New("disk full"))

	err = repo.Create(context.Background(), &domain.AuditLog{ID: uuid.New(), Action: domain.AuditActionLogin})
	assert.ErrorContains(t, err, "insert audit log")
}

func TestAuditRepo_List_Filters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	workerID := uuid.New()
	end := time.Now().UTC()
	at := end.Add(-time.Hour)

	mock.ExpectQuery(`SELECT .+ FROM audit_logs WHERE created_at <= \$1 AND worker_id = \$2 AND action_type = \$3 ORDER BY created_at DESC LIMIT 500`).
		WithArgs(end, workerID, domain.AuditActionLogin).
		WillReturnRows(pgxmock.NewRows(auditColumnNames()).
			AddRow(uuid.New(), &workerID, domain.AuditActionLogin, (*uuid.UUID)(nil), json.RawMessage(nil), json.RawMessage(nil), at))

	logs, err := repo.List(context.Background(), domain.AuditFilter{
		EndDate:  &end,
		WorkerID: &workerID,
		Action:   domain.AuditActionLogin,
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.AuditActionLogin, logs[0].Action)
	assert.Nil(t, logs[0].SaleID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
