package postgres

import (
	"context"
	"testing"
	"time"

	"salesguard/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRepo_CreateAndGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewClientRepo(mock)
	phone := "+255700000001"
	c := &domain.Client{ID: uuid.New(), Name: "Duka la Mama", Phone: &phone, CreatedAt: time.Now().UTC()}

	mock.ExpectExec("INSERT INTO clients").
		WithArgs(c.ID, c.Name, c.Phone, c.Email, c.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM clients WHERE id").
		WithArgs(c.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "phone", "email", "created_at"}).
			AddRow(c.ID, c.Name, c.Phone, (*string)(nil), c.CreatedAt))

	require.NoError(t, repo.Create(context.Background(), c))

	found, err := repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, phone, *found.Phone)
	assert.Nil(t, found.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewClientRepo(mock)

	mock.ExpectQuery("FROM clients WHERE id").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "phone", "email", "created_at"}))

	c, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestClientRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewClientRepo(mock)

	mock.ExpectQuery("FROM clients ORDER BY name").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "phone", "email", "created_at"}).
			AddRow(uuid.New(), "Alpha", (*string)(nil), (*string)(nil), time.Now()).
			AddRow(uuid.New(), "Beta", (*string)(nil), (*string)(nil), time.Now()))

	clients, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, clients, 2)
}
