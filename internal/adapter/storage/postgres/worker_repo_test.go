package postgres

import (
	"context"
	"testing"
	"time"

	"salesguard/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker() *domain.Worker {
	now := time.Now().UTC()
	return &domain.Worker{
		ID:           uuid.New(),
		Name:         "Amina Juma",
		Email:        "amina@example.com",
		PasswordHash: "$2a$10$hash",
		Role:         domain.RoleWorker,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func workerColumnNames() []string {
	return []string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}
}

func workerRow(w *domain.Worker) *pgxmock.Rows {
	return pgxmock.NewRows(workerColumnNames()).
		AddRow(w.ID, w.Name, w.Email, w.PasswordHash, w.Role, w.CreatedAt, w.UpdatedAt)
}

func TestWorkerRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWorkerRepo(mock)
	w := newTestWorker()

	mock.ExpectExec("INSERT INTO workers").
		WithArgs(w.ID, w.Name, w.Email, w.PasswordHash, w.Role, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), w))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerRepo_Create_DuplicateEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWorkerRepo(mock)

	mock.ExpectExec("INSERT INTO workers").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	err = repo.Create(context.Background(), newTestWorker())
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestWorkerRepo_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWorkerRepo(mock)
	w := newTestWorker()

	mock.ExpectQuery(`FROM workers WHERE LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("AMINA@example.com").
		WillReturnRows(workerRow(w))

	found, err := repo.GetByEmail(context.Background(), "AMINA@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, w.ID, found.ID)
	assert.Equal(t, domain.RoleWorker, found.Role)
}

func TestWorkerRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWorkerRepo(mock)

	mock.ExpectQuery("FROM workers WHERE id").
		WillReturnRows(pgxmock.NewRows(workerColumnNames()))

	w, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, w)
}

func TestWorkerRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWorkerRepo(mock)
	w := newTestWorker()

	mock.ExpectQuery("FROM workers ORDER BY name").WillReturnRows(workerRow(w))

	workers, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, w.Email, workers[0].Email)
}

func TestWorkerRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWorkerRepo(mock)
	w := newTestWorker()

	mock.ExpectExec("UPDATE workers SET").
		WithArgs(w.Name, w.Email, w.PasswordHash, w.Role, w.UpdatedAt, w.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.Update(context.Background(), w))

	mock.ExpectExec("UPDATE workers SET").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorContains(t, repo.Update(context.Background(), w), "worker not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerRepo_Delete_HasSales(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWorkerRepo(mock)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM workers WHERE id").
		WithArgs(id).
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})

	err = repo.Delete(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrWorkerHasSales)
}

func TestWorkerRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWorkerRepo(mock)

	mock.ExpectExec("DELETE FROM workers WHERE id").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repo.Delete(context.Background(), uuid.New()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
