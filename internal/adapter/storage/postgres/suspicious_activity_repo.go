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

const suspiciousColumns = `id, sale_id, worker_id, reason, severity, reviewed, reviewed_by, reviewed_at, created_at`

// defaultSuspiciousLimit caps the review queue.
const defaultSuspiciousLimit = 100

// SuspiciousActivityRepo implements ports.SuspiciousActivityRepository.
type SuspiciousActivityRepo struct {
	pool Pool
}

// NewSuspiciousActivityRepo creates a new SuspiciousActivityRepo.
func NewSuspiciousActivityRepo(pool Pool) *SuspiciousActivityRepo {
	return &SuspiciousActivityRepo{pool: pool}
}

// CreateBatch inserts all activities in a single statement.
func (r *SuspiciousActivityRepo) CreateBatch(ctx context.Context, activities []domain.SuspiciousActivity) error {
	if len(activities) == 0 {
		return nil
	}

	q := psql.Insert("suspicious_activity").
		Columns("id", "sale_id", "worker_id", "reason", "severity", "reviewed", "created_at")
	for _, a := range activities {
		q = q.Values(a.ID, a.SaleID, a.WorkerID, a.Reason, a.Severity, a.Reviewed, a.CreatedAt)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build suspicious activity insert: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert suspicious activity: %w", err)
	}
	return nil
}

// List returns findings joined with their worker and sale, newest first.
func (r *SuspiciousActivityRepo) List(ctx context.Context, f domain.SuspiciousActivityFilter) ([]domain.SuspiciousActivityView, error) {
	limit := f.Limit
	if limit == 0 {
		limit = defaultSuspiciousLimit
	}

	q := psql.Select(
		"sa.id", "sa.sale_id", "sa.worker_id", "sa.reason", "sa.severity", "sa.reviewed",
		"sa.reviewed_by", "sa.reviewed_at", "sa.created_at",
		"COALESCE(w.name, '')",
		"s.product_name", "s.quantity", "s.unit_price", "s.total_amount", "s.sale_datetime",
	).
		From("suspicious_activity sa").
		LeftJoin("workers w ON w.id = sa.worker_id").
		LeftJoin("sales s ON s.id = sa.sale_id")
	if f.Reviewed != nil {
		q = q.Where(squirrel.Eq{"sa.reviewed": *f.Reviewed})
	}
	query, args, err := q.OrderBy("sa.created_at DESC").Limit(limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build suspicious activity list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suspicious activity: %w", err)
	}
	defer rows.Close()

	var out []domain.SuspiciousActivityView
	for rows.Next() {
		var (
			v            domain.SuspiciousActivityView
			productName  *string
			quantity     *int
			unitPrice    decimal.NullDecimal
			totalAmount  decimal.NullDecimal
			saleDateTime *time.Time
		)
		err := rows.Scan(
			&v.ID, &v.SaleID, &v.WorkerID, &v.Reason, &v.Severity, &v.Reviewed,
			&v.ReviewedBy, &v.ReviewedAt, &v.CreatedAt,
			&v.WorkerName,
			&productName, &quantity, &unitPrice, &totalAmount, &saleDateTime,
		)
		if err != nil {
			return nil, fmt.Errorf("scan suspicious activity row: %w", err)
		}
		if productName != nil {
			v.Sale = &domain.SaleSummary{ProductName: *productName}
			if quantity != nil {
				v.Sale.Quantity = *quantity
			}
			v.Sale.UnitPrice = unitPrice.Decimal
			v.Sale.TotalAmount = totalAmount.Decimal
			if saleDateTime != nil {
				v.Sale.SaleDateTime = *saleDateTime
			}
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suspicious activity rows: %w", err)
	}
	return out, nil
}

// MarkReviewed sets reviewed = true. The reviewer and timestamp are only
// written on the first review, so repeating the call changes nothing.
// Returns nil, nil if the activity does not exist.
func (r *SuspiciousActivityRepo) MarkReviewed(ctx context.Context, id uuid.UUID, reviewerID uuid.UUID, at time.Time) (*domain.SuspiciousActivity, error) {
	query := `UPDATE suspicious_activity
		SET reviewed_by = CASE WHEN reviewed THEN reviewed_by ELSE $2 END,
			reviewed_at = CASE WHEN reviewed THEN reviewed_at ELSE $3 END,
			reviewed = TRUE
		WHERE id = $1
		RETURNING ` + suspiciousColumns

	a := &domain.SuspiciousActivity{}
	err := r.pool.QueryRow(ctx, query, id, reviewerID, at).Scan(
		&a.ID, &a.SaleID, &a.WorkerID, &a.Reason, &a.Severity, &a.Reviewed,
		&a.ReviewedBy, &a.ReviewedAt, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("mark suspicious activity reviewed: %w", err)
	}
	return a, nil
}
