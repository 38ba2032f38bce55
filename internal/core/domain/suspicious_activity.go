package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Severity ranks a finding for triage.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities low < medium < high. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

// Finding is one rule hit produced by the suspicion engine.
type Finding struct {
	Rule     string   `json:"rule"`
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
}

// SuspiciousActivity is a recorded finding awaiting review.
type SuspiciousActivity struct {
	ID         uuid.UUID  `json:"id"`
	SaleID     uuid.UUID  `json:"sale_id"`
	WorkerID   uuid.UUID  `json:"worker_id"`
	Reason     string     `json:"reason"`
	Severity   Severity   `json:"severity"`
	Reviewed   bool       `json:"reviewed"`
	ReviewedBy *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewSuspiciousActivity records f against sale.
func NewSuspiciousActivity(sale *Sale, f Finding, now time.Time) SuspiciousActivity {
	return SuspiciousActivity{
		ID:        uuid.New(),
		SaleID:    sale.ID,
		WorkerID:  sale.WorkerID,
		Reason:    f.Reason,
		Severity:  f.Severity,
		CreatedAt: now,
	}
}

// SaleSummary is the part of a sale shown next to a finding. It is nil
// when the sale has since been deleted.
type SaleSummary struct {
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	SaleDateTime time.Time       `json:"sale_datetime"`
}

// SuspiciousActivityView is a finding joined with its worker and sale.
type SuspiciousActivityView struct {
	SuspiciousActivity
	WorkerName string       `json:"worker_name"`
	Sale       *SaleSummary `json:"sale,omitempty"`
}

// SuspiciousActivityFilter narrows the review queue. A nil Reviewed
// returns both reviewed and pending findings.
type SuspiciousActivityFilter struct {
	Reviewed *bool
	Limit    uint64
}
