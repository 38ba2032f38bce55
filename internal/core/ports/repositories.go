package ports

import (
	"context"
	"time"

	"salesguard/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SaleRepository defines persistence operations for sales.
// Methods accepting pgx.Tx are used inside transaction blocks for row locking.
type SaleRepository interface {
	Create(ctx context.Context, sale *domain.Sale) (*domain.Sale, error)
	CreateTx(ctx context.Context, tx pgx.Tx, sale *domain.Sale) (*domain.Sale, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Sale, error)
	Update(ctx context.Context, tx pgx.Tx, sale *domain.Sale) (*domain.Sale, error)
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	List(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error)
}

// SaleStatsReader answers the aggregate questions the suspicion engine asks.
type SaleStatsReader interface {
	// AverageQuantity returns nil when the product has never been sold.
	AverageQuantity(ctx context.Context, productName string) (*decimal.Decimal, error)
	CountByWorkerSince(ctx context.Context, workerID uuid.UUID, since time.Time) (int64, error)
	// WorkerActivitySince includes every role=worker account, with zero
	// counts for workers who sold nothing.
	WorkerActivitySince(ctx context.Context, since time.Time) ([]domain.WorkerActivity, error)
}

// PriceHistoryRepository stores the running price aggregate per product.
type PriceHistoryRepository interface {
	// Upsert folds price into the product's aggregate in one atomic statement.
	Upsert(ctx context.Context, productKey string, price decimal.Decimal, at time.Time) error
	Get(ctx context.Context, productKey string) (*domain.PriceHistory, error)
	List(ctx context.Context) ([]domain.PriceHistory, error)
}

// SuspiciousActivityRepository stores findings. Rows are never deleted.
type SuspiciousActivityRepository interface {
	CreateBatch(ctx context.Context, activities []domain.SuspiciousActivity) error
	List(ctx context.Context, filter domain.SuspiciousActivityFilter) ([]domain.SuspiciousActivityView, error)
	// MarkReviewed returns nil when the activity does not exist. A second
	// call keeps the first reviewer and timestamp.
	MarkReviewed(ctx context.Context, id uuid.UUID, reviewerID uuid.UUID, at time.Time) (*domain.SuspiciousActivity, error)
}

// AuditRepository is the append-only audit log store.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLog, error)
}

// WorkerRepository defines persistence operations for worker accounts.
type WorkerRepository interface {
	Create(ctx context.Context, worker *domain.Worker) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Worker, error)
	GetByEmail(ctx context.Context, email string) (*domain.Worker, error)
	List(ctx context.Context) ([]domain.Worker, error)
	Update(ctx context.Context, worker *domain.Worker) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ClientRepository defines persistence operations for clients.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error)
	List(ctx context.Context) ([]domain.Client, error)
}

// ReportRepository runs the read-only aggregate queries behind reports.
type ReportRepository interface {
	Summary(ctx context.Context, r domain.ReportRange) (*domain.SalesSummary, error)
	TopProducts(ctx context.Context, r domain.ReportRange, limit int) ([]domain.ProductSales, error)
	WorkerPerformance(ctx context.Context, r domain.ReportRange) ([]domain.WorkerPerformance, error)
	Daily(ctx context.Context, r domain.ReportRange, timezone string, limit int) ([]domain.DailySales, error)
}

// IdempotencyRepository is the durable layer behind IdempotencyCache.
type IdempotencyRepository interface {
	// Create returns domain.ErrIdempotencyKeyExists when the key is taken.
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
