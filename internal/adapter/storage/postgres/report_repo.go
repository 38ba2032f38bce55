package postgres

import (
	"context"
	"fmt"

	"salesguard/internal/core/domain"

	"github.com/Masterminds/squirrel"
)

// ReportRepo implements ports.ReportRepository.
type ReportRepo struct {
	pool Pool
}

// NewReportRepo creates a new ReportRepo.
func NewReportRepo(pool Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

// rangeConds turns a report range into conditions on column.
func rangeConds(column string, rr domain.ReportRange) squirrel.And {
	conds := squirrel.And{}
	if rr.Start != nil {
		conds = append(conds, squirrel.GtOrEq{column: *rr.Start})
	}
	if rr.End != nil {
		conds = append(conds, squirrel.LtOrEq{column: *rr.End})
	}
	return conds
}

// Summary aggregates every sale in the range.
func (r *ReportRepo) Summary(ctx context.Context, rr domain.ReportRange) (*domain.SalesSummary, error) {
	query, args, err := psql.Select(
		"COUNT(*)",
		"COALESCE(SUM(total_amount), 0)",
		"COALESCE(SUM(quantity), 0)",
		"COUNT(DISTINCT worker_id)",
		"COUNT(DISTINCT LOWER(product_name))",
	).From("sales").Where(rangeConds("sale_datetime", rr)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build summary query: %w", err)
	}

	s := &domain.SalesSummary{}
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&s.TotalSales, &s.TotalRevenue, &s.TotalQuantity, &s.ActiveWorkers, &s.UniqueProducts,
	)
	if err != nil {
		return nil, fmt.Errorf("sales summary: %w", err)
	}
	return s, nil
}

// TopProducts ranks products by revenue.
func (r *ReportRepo) TopProducts(ctx context.Context, rr domain.ReportRange, limit int) ([]domain.ProductSales, error) {
	query, args, err := psql.Select(
		"MIN(product_name)",
		"SUM(quantity)",
		"SUM(total_amount) AS total_revenue",
		"COUNT(*)",
	).From("sales").
		Where(rangeConds("sale_datetime", rr)).
		GroupBy("LOWER(product_name)").
		OrderBy("total_revenue DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build top products query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	var out []domain.ProductSales
	for rows.Next() {
		var p domain.ProductSales
		if err := rows.Scan(&p.ProductName, &p.TotalQuantity, &p.TotalRevenue, &p.SaleCount); err != nil {
			return nil, fmt.Errorf("scan top product row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top product rows: %w", err)
	}
	return out, nil
}

// WorkerPerformance totals each role=worker account, including idle ones.
func (r *ReportRepo) WorkerPerformance(ctx context.Context, rr domain.ReportRange) ([]domain.WorkerPerformance, error) {
	on := append(squirrel.And{squirrel.Expr("s.worker_id = w.id")}, rangeConds("s.sale_datetime", rr)...)
	onSQL, onArgs, err := on.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build worker join: %w", err)
	}

	query, args, err := psql.Select(
		"w.id",
		"w.name",
		"COUNT(s.id)",
		"COALESCE(SUM(s.total_amount), 0) AS total_revenue",
		"COALESCE(AVG(s.total_amount), 0)",
	).From("workers w").
		LeftJoin("sales s ON "+onSQL, onArgs...).
		Where(squirrel.Eq{"w.role": domain.RoleWorker}).
		GroupBy("w.id", "w.name").
		OrderBy("total_revenue DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build worker performance query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("worker performance: %w", err)
	}
	defer rows.Close()

	var out []domain.WorkerPerformance
	for rows.Next() {
		var p domain.WorkerPerformance
		if err := rows.Scan(&p.WorkerID, &p.Name, &p.TotalSales, &p.TotalRevenue, &p.AvgSaleValue); err != nil {
			return nil, fmt.Errorf("scan worker performance row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate worker performance rows: %w", err)
	}
	return out, nil
}

// Daily totals sales per calendar day in timezone, newest day first.
func (r *ReportRepo) Daily(ctx context.Context, rr domain.ReportRange, timezone string, limit int) ([]domain.DailySales, error) {
	query, args, err := psql.Select().
		Column(squirrel.Expr("to_char(sale_datetime AT TIME ZONE ?, 'YYYY-MM-DD') AS day", timezone)).
		Columns("COUNT(*)", "SUM(total_amount)", "SUM(quantity)").
		From("sales").
		Where(rangeConds("sale_datetime", rr)).
		GroupBy("day").
		OrderBy("day DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build daily query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("daily sales: %w", err)
	}
	defer rows.Close()

	var out []domain.DailySales
	for rows.Next() {
		var d domain.DailySales
		if err := rows.Scan(&d.Date, &d.TotalSales, &d.TotalRevenue, &d.TotalQuantity); err != nil {
			return nil, fmt.Errorf("scan daily row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily rows: %w", err)
	}
	return out, nil
}
