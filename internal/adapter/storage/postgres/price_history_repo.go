package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salesguard/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const priceHistoryColumns = `product_name, min_price, max_price, avg_price, sale_count, last_updated`

// PriceHistoryRepo implements ports.PriceHistoryRepository.
type PriceHistoryRepo struct {
	pool Pool
}

// NewPriceHistoryRepo creates a new PriceHistoryRepo.
func NewPriceHistoryRepo(pool Pool) *PriceHistoryRepo {
	return &PriceHistoryRepo{pool: pool}
}

// Upsert records one price observation. The first observation seeds
// min = max = avg = price; later ones are folded in by the conflict
// branch so concurrent writers for the same product never lose an update.
func (r *PriceHistoryRepo) Upsert(ctx context.Context, productKey string, price decimal.Decimal, at time.Time) error {
	query := `INSERT INTO price_history (product_name, min_price, max_price, avg_price, sale_count, last_updated)
		VALUES ($1, $2, $2, $2, 1, $3)
		ON CONFLICT (product_name) DO UPDATE SET
			min_price = LEAST(price_history.min_price, EXCLUDED.min_price),
			max_price = GREATEST(price_history.max_price, EXCLUDED.max_price),
			avg_price = (price_history.avg_price * price_history.sale_count + EXCLUDED.avg_price)
				/ (price_history.sale_count + 1),
			sale_count = price_history.sale_count + 1,
			last_updated = EXCLUDED.last_updated`

	if _, err := r.pool.Exec(ctx, query, productKey, price, at); err != nil {
		return fmt.Errorf("upsert price history: %w", err)
	}
	return nil
}

// Get fetches the aggregate for a product key. Returns nil, nil if absent.
func (r *PriceHistoryRepo) Get(ctx context.Context, productKey string) (*domain.PriceHistory, error) {
	query := `SELECT ` + priceHistoryColumns + ` FROM price_history WHERE product_name = $1`

	h := &domain.PriceHistory{}
	err := r.pool.QueryRow(ctx, query, productKey).Scan(
		&h.ProductName, &h.MinPrice, &h.MaxPrice, &h.AvgPrice, &h.SaleCount, &h.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get price history: %w", err)
	}
	return h, nil
}

// List returns every product aggregate ordered by product name.
func (r *PriceHistoryRepo) List(ctx context.Context) ([]domain.PriceHistory, error) {
	query := `SELECT ` + priceHistoryColumns + ` FROM price_history ORDER BY product_name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list price history: %w", err)
	}
	defer rows.Close()

	var out []domain.PriceHistory
	for rows.Next() {
		var h domain.PriceHistory
		if err := rows.Scan(&h.ProductName, &h.MinPrice, &h.MaxPrice, &h.AvgPrice, &h.SaleCount, &h.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan price history row: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price history rows: %w", err)
	}
	return out, nil
}
