package ports

import (
	"context"
	"time"

	"salesguard/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HashService handles password hashing.
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(workerID uuid.UUID, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	WorkerID uuid.UUID
	Role     domain.Role
}

// IdempotencyCache is the Redis-layer replay cache for sale submissions.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// SaleService is the sale ingestion pipeline.
type SaleService interface {
	CreateSale(ctx context.Context, actor domain.Actor, in domain.NewSale) (*domain.Sale, error)
	CreateSaleIdempotent(ctx context.Context, actor domain.Actor, key string, in domain.NewSale) (*domain.Sale, error)
	UpdateSale(ctx context.Context, saleID uuid.UUID, actor domain.Actor, patch domain.SalePatch) (*domain.Sale, error)
	DeleteSale(ctx context.Context, saleID uuid.UUID, actor domain.Actor) error
	GetSale(ctx context.Context, actor domain.Actor, saleID uuid.UUID) (*domain.Sale, error)
	ListSales(ctx context.Context, actor domain.Actor, filter domain.SaleFilter) ([]domain.Sale, error)
}

// SuspicionEngine scores a sale against historical and behavioral baselines.
type SuspicionEngine interface {
	Evaluate(ctx context.Context, sale *domain.Sale) []domain.Finding
	RecordFindings(ctx context.Context, sale *domain.Sale, findings []domain.Finding) error
}

// PriceStatsService maintains and exposes per-product price statistics.
type PriceStatsService interface {
	RecordObservation(ctx context.Context, productName string, unitPrice decimal.Decimal) error
	GetPriceHistory(ctx context.Context, productName string) (*domain.PriceHistory, error)
	ListPriceHistory(ctx context.Context) ([]domain.PriceHistory, error)
}

// AuditLedger appends and lists audit entries. Append failures are
// returned to the caller.
type AuditLedger interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLog, error)
}

// SuspiciousActivityService is the admin review queue.
type SuspiciousActivityService interface {
	List(ctx context.Context, filter domain.SuspiciousActivityFilter) ([]domain.SuspiciousActivityView, error)
	MarkReviewed(ctx context.Context, activityID uuid.UUID, reviewerID uuid.UUID) (*domain.SuspiciousActivity, error)
}

// WorkerService manages worker accounts.
type WorkerService interface {
	List(ctx context.Context) ([]domain.Worker, error)
	Create(ctx context.Context, actor domain.Actor, req CreateWorkerRequest) (*domain.Worker, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, req UpdateWorkerRequest) (*domain.Worker, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

// CreateWorkerRequest holds validated input for a new account.
type CreateWorkerRequest struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// UpdateWorkerRequest holds a partial account update. Empty fields keep
// their current value.
type UpdateWorkerRequest struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// ClientService manages customer records.
type ClientService interface {
	List(ctx context.Context) ([]domain.Client, error)
	Create(ctx context.Context, actor domain.Actor, req CreateClientRequest) (*domain.Client, error)
}

// CreateClientRequest holds validated input for a new client.
type CreateClientRequest struct {
	Name  string
	Phone *string
	Email *string
}

// AuthService defines authentication business logic.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, actor domain.Actor) error
	Me(ctx context.Context, actor domain.Actor) (*domain.Worker, error)
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Worker    *domain.Worker
}

// ReportingService builds admin sales reports.
type ReportingService interface {
	Summary(ctx context.Context, r domain.ReportRange) (*domain.SummaryReport, error)
	Daily(ctx context.Context, r domain.ReportRange) ([]domain.DailySales, error)
}
