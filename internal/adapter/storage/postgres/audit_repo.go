package postgres

import (
	"context"
	"fmt"

	"salesguard/internal/core/domain"

	"github.com/Masterminds/squirrel"
)

const defaultAuditLimit = 500

// AuditRepo implements ports.AuditRepository. Rows are only ever inserted.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Create appends one audit entry.
func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	query := `INSERT INTO audit_logs (id, worker_id, action_type, sale_id, before_data, after_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		log.ID, log.WorkerID, log.Action, log.SaleID, log.Before, log.After, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// List returns audit entries matching filter, newest first.
func (r *AuditRepo) List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditLog, error) {
	limit := f.Limit
	if limit == 0 {
		limit = defaultAuditLimit
	}

	q := psql.Select("id", "worker_id", "action_type", "sale_id", "before_data", "after_data", "created_at").
		From("audit_logs")
	if f.StartDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *f.StartDate})
	}
	if f.EndDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *f.EndDate})
	}
	if f.WorkerID != nil {
		q = q.Where(squirrel.Eq{"worker_id": *f.WorkerID})
	}
	if f.Action != "" {
		q = q.Where(squirrel.Eq{"action_type": f.Action})
	}
	query, args, err := q.OrderBy("created_at DESC").Limit(limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		if err := rows.Scan(&l.ID, &l.WorkerID, &l.Action, &l.SaleID, &l.Before, &l.After, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return logs, nil
}
