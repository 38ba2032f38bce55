package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salesguard/internal/core/domain"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const saleColumns = `id, worker_id, client_id, product_name, quantity, unit_type, unit_price, total_amount,
		notes, sale_datetime, created_at, updated_at`

// defaultSaleLimit caps unfiltered sale listings.
const defaultSaleLimit = 500

// SaleRepo implements ports.SaleRepository and ports.SaleStatsReader.
type SaleRepo struct {
	pool Pool
}

// NewSaleRepo creates a new SaleRepo.
func NewSaleRepo(pool Pool) *SaleRepo {
	return &SaleRepo{pool: pool}
}

const insertSaleQuery = `INSERT INTO sales (id, worker_id, client_id, product_name, quantity, unit_type, unit_price,
		total_amount, notes, sale_datetime, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + saleColumns

// Create inserts a sale and returns the row as stored.
func (r *SaleRepo) Create(ctx context.Context, s *domain.Sale) (*domain.Sale, error) {
	return insertSale(ctx, r.pool, s)
}

// CreateTx inserts a sale within a database transaction.
func (r *SaleRepo) CreateTx(ctx context.Context, tx pgx.Tx, s *domain.Sale) (*domain.Sale, error) {
	return insertSale(ctx, tx, s)
}

func insertSale(ctx context.Context, q rowQuerier, s *domain.Sale) (*domain.Sale, error) {
	created, err := scanSale(q.QueryRow(ctx, insertSaleQuery,
		s.ID, s.WorkerID, s.ClientID, s.ProductName, s.Quantity, s.UnitType,
		s.UnitPrice, s.TotalAmount, s.Notes, s.SaleDateTime, s.CreatedAt, s.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("insert sale: %w", err)
	}
	return created, nil
}

// GetByID fetches a sale by its UUID.
func (r *SaleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	s, err := scanSale(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale by id: %w", err)
	}
	return s, nil
}

// GetByIDForUpdate fetches a sale and locks the row until tx ends.
func (r *SaleRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1 FOR UPDATE`

	s, err := scanSale(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale for update: %w", err)
	}
	return s, nil
}

// Update writes every mutable column of s and returns the stored row.
func (r *SaleRepo) Update(ctx context.Context, tx pgx.Tx, s *domain.Sale) (*domain.Sale, error) {
	query := `UPDATE sales
		SET product_name = $1, quantity = $2, unit_type = $3, unit_price = $4, total_amount = $5,
			notes = $6, client_id = $7, sale_datetime = $8, updated_at = $9
		WHERE id = $10
		RETURNING ` + saleColumns

	updated, err := scanSale(tx.QueryRow(ctx, query,
		s.ProductName, s.Quantity, s.UnitType, s.UnitPrice, s.TotalAmount,
		s.Notes, s.ClientID, s.SaleDateTime, s.UpdatedAt, s.ID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update sale: %w", err)
	}
	return updated, nil
}

// Delete removes a sale within a database transaction.
func (r *SaleRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sale not found: %s", id)
	}
	return nil
}

// List returns sales matching filter, newest sale time first.
func (r *SaleRepo) List(ctx context.Context, f domain.SaleFilter) ([]domain.Sale, error) {
	limit := f.Limit
	if limit == 0 {
		limit = defaultSaleLimit
	}

	q := psql.Select(saleColumns).From("sales")
	if f.StartDate != nil {
		q = q.Where(squirrel.GtOrEq{"sale_datetime": *f.StartDate})
	}
	if f.EndDate != nil {
		q = q.Where(squirrel.LtOrEq{"sale_datetime": *f.EndDate})
	}
	if f.WorkerID != nil {
		q = q.Where(squirrel.Eq{"worker_id": *f.WorkerID})
	}
	if f.Product != "" {
		q = q.Where(squirrel.ILike{"product_name": "%" + f.Product + "%"})
	}
	query, args, err := q.OrderBy("sale_datetime DESC").Limit(limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sale list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale row: %w", err)
		}
		sales = append(sales, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale rows: %w", err)
	}
	return sales, nil
}

// AverageQuantity returns the mean quantity sold of a product, or nil if
// it has never been sold.
func (r *SaleRepo) AverageQuantity(ctx context.Context, productName string) (*decimal.Decimal, error) {
	query := `SELECT AVG(quantity) FROM sales WHERE LOWER(product_name) = $1`

	var avg decimal.NullDecimal
	if err := r.pool.QueryRow(ctx, query, domain.ProductKey(productName)).Scan(&avg); err != nil {
		return nil, fmt.Errorf("average quantity: %w", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Decimal, nil
}

// CountByWorkerSince counts the sales a worker submitted after since.
func (r *SaleRepo) CountByWorkerSince(ctx context.Context, workerID uuid.UUID, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM sales WHERE worker_id = $1 AND created_at > $2`

	var count int64
	if err := r.pool.QueryRow(ctx, query, workerID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count recent sales: %w", err)
	}
	return count, nil
}

// WorkerActivitySince returns a sale count for every role=worker account,
// including those with no sales after since.
func (r *SaleRepo) WorkerActivitySince(ctx context.Context, since time.Time) ([]domain.WorkerActivity, error) {
	query := `SELECT w.id, COUNT(s.id)
		FROM workers w
		LEFT JOIN sales s ON s.worker_id = w.id AND s.sale_datetime > $1
		WHERE w.role = $2
		GROUP BY w.id`

	rows, err := r.pool.Query(ctx, query, since, domain.RoleWorker)
	if err != nil {
		return nil, fmt.Errorf("worker activity: %w", err)
	}
	defer rows.Close()

	var activity []domain.WorkerActivity
	for rows.Next() {
		var a domain.WorkerActivity
		if err := rows.Scan(&a.WorkerID, &a.SaleCount); err != nil {
			return nil, fmt.Errorf("scan worker activity row: %w", err)
		}
		activity = append(activity, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate worker activity rows: %w", err)
	}
	return activity, nil
}

// scanSale reads one row in saleColumns order.
func scanSale(row pgx.Row) (*domain.Sale, error) {
	s := &domain.Sale{}
	err := row.Scan(
		&s.ID, &s.WorkerID, &s.ClientID, &s.ProductName, &s.Quantity, &s.UnitType,
		&s.UnitPrice, &s.TotalAmount, &s.Notes, &s.SaleDateTime, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}
