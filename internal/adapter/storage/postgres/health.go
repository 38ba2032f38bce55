package postgres

import (
	"context"
	"fmt"
)

// HealthCheck reports PostgreSQL healthy once the sales table answers,
// which also catches a database that is up but was never migrated.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, `SELECT 1 FROM sales LIMIT 1`); err != nil {
		return fmt.Errorf("probe sales table: %w", err)
	}
	return nil
}

func (h *HealthCheck) Name() string { return "postgresql" }
