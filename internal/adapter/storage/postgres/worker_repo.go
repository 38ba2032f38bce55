package postgres

import (
	"context"
	"errors"
	"fmt"

	"salesguard/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const workerColumns = `id, name, email, password_hash, role, created_at, updated_at`

// WorkerRepo implements ports.WorkerRepository.
type WorkerRepo struct {
	pool Pool
}

// NewWorkerRepo creates a new WorkerRepo.
func NewWorkerRepo(pool Pool) *WorkerRepo {
	return &WorkerRepo{pool: pool}
}

// Create inserts a new worker. A duplicate email yields domain.ErrEmailTaken.
func (r *WorkerRepo) Create(ctx context.Context, w *domain.Worker) error {
	query := `INSERT INTO workers (` + workerColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.Name, w.Email, w.PasswordHash, w.Role, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert worker: %w", err)
	}
	return nil
}

// GetByID fetches a worker by UUID. Returns nil, nil if absent.
func (r *WorkerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE id = $1`

	w, err := scanWorker(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get worker by id: %w", err)
	}
	return w, nil
}

// GetByEmail fetches a worker by email, ignoring case.
func (r *WorkerRepo) GetByEmail(ctx context.Context, email string) (*domain.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE LOWER(email) = LOWER($1)`

	w, err := scanWorker(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get worker by email: %w", err)
	}
	return w, nil
}

// List returns all workers ordered by name.
func (r *WorkerRepo) List(ctx context.Context) ([]domain.Worker, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+workerColumns+` FROM workers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	var workers []domain.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worker row: %w", err)
		}
		workers = append(workers, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate worker rows: %w", err)
	}
	return workers, nil
}

// Update writes name, email, password hash and role.
func (r *WorkerRepo) Update(ctx context.Context, w *domain.Worker) error {
	query := `UPDATE workers
		SET name = $1, email = $2, password_hash = $3, role = $4, updated_at = $5
		WHERE id = $6`

	tag, err := r.pool.Exec(ctx, query, w.Name, w.Email, w.PasswordHash, w.Role, w.UpdatedAt, w.ID)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("update worker: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("worker not found: %s", w.ID)
	}
	return nil
}

// Delete removes a worker. Workers who recorded sales cannot be removed
// and yield domain.ErrWorkerHasSales.
func (r *WorkerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workers WHERE id = $1`, id)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return domain.ErrWorkerHasSales
		}
		return fmt.Errorf("delete worker: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("worker not found: %s", id)
	}
	return nil
}

func scanWorker(row pgx.Row) (*domain.Worker, error) {
	w := &domain.Worker{}
	if err := row.Scan(&w.ID, &w.Name, &w.Email, &w.PasswordHash, &w.Role, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return w, nil
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
