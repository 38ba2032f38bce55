package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitType is how a sale's quantity is measured.
type UnitType string

const (
	UnitTypePiece UnitType = "piece"
	UnitTypeKg    UnitType = "kg"
)

// IsValid reports whether u is one of the known unit types.
func (u UnitType) IsValid() bool {
	return u == UnitTypePiece || u == UnitTypeKg
}

var (
	ErrProductNameRequired = errors.New("product name is required")
	ErrQuantityNotPositive = errors.New("quantity must be a positive integer")
	ErrUnitPriceNegative   = errors.New("unit price must not be negative")
	ErrUnitPricePrecision  = errors.New("unit price must have at most 2 decimal places")
	ErrUnitTypeInvalid     = errors.New("unit type must be piece or kg")
)

// Sale is one point-of-sale transaction recorded by a worker.
type Sale struct {
	ID           uuid.UUID       `json:"id"`
	WorkerID     uuid.UUID       `json:"worker_id"`
	ClientID     *uuid.UUID      `json:"client_id,omitempty"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitType     UnitType        `json:"unit_type"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Notes        *string         `json:"notes"`
	SaleDateTime time.Time       `json:"sale_datetime"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ProductKey is the case-insensitive key used for price statistics.
func (s *Sale) ProductKey() string {
	return ProductKey(s.ProductName)
}

// OwnedBy returns true if workerID recorded the sale.
func (s *Sale) OwnedBy(workerID uuid.UUID) bool {
	return s.WorkerID == workerID
}

// ProductKey normalizes a product name for matching.
func ProductKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// PriceScale is the number of decimal places a unit price may carry. It
// matches the unit_price column, so the stored total stays exactly
// quantity * unit_price.
const PriceScale = 2

func validatePrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return ErrUnitPriceNegative
	}
	if !p.Equal(p.Truncate(PriceScale)) {
		return ErrUnitPricePrecision
	}
	return nil
}

// ComputeTotal returns quantity * unitPrice.
func ComputeTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// NewSale holds the caller-supplied fields of a sale about to be recorded.
type NewSale struct {
	ProductName  string
	Quantity     int
	UnitPrice    decimal.Decimal
	UnitType     UnitType
	Notes        *string
	ClientID     *uuid.UUID
	SaleDateTime *time.Time
}

// Validate checks the required fields.
func (n NewSale) Validate() error {
	if strings.TrimSpace(n.ProductName) == "" {
		return ErrProductNameRequired
	}
	if n.Quantity <= 0 {
		return ErrQuantityNotPositive
	}
	if err := validatePrice(n.UnitPrice); err != nil {
		return err
	}
	if n.UnitType != "" && !n.UnitType.IsValid() {
		return ErrUnitTypeInvalid
	}
	return nil
}

// Build turns the input into a Sale for workerID. The total is always
// derived here; now is used when no sale time was supplied.
func (n NewSale) Build(workerID uuid.UUID, now time.Time) *Sale {
	unitType := n.UnitType
	if unitType == "" {
		unitType = UnitTypePiece
	}
	saleTime := now
	if n.SaleDateTime != nil && !n.SaleDateTime.IsZero() {
		saleTime = *n.SaleDateTime
	}
	return &Sale{
		ID:           uuid.New(),
		WorkerID:     workerID,
		ClientID:     n.ClientID,
		ProductName:  strings.TrimSpace(n.ProductName),
		Quantity:     n.Quantity,
		UnitType:     unitType,
		UnitPrice:    n.UnitPrice,
		TotalAmount:  ComputeTotal(n.Quantity, n.UnitPrice),
		Notes:        n.Notes,
		SaleDateTime: saleTime,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SalePatch is a partial update. Zero values mean "keep the prior value",
// including a zero quantity or zero unit price. Notes are tri-state: when
// NotesSet is true, Notes replaces the prior value even if nil or empty.
type SalePatch struct {
	ProductName  string
	Quantity     int
	UnitPrice    *decimal.Decimal
	UnitType     UnitType
	Notes        *string
	NotesSet     bool
	ClientID     *uuid.UUID
	SaleDateTime *time.Time
}

// Apply merges the patch over prior and recomputes the total.
func (p SalePatch) Apply(prior Sale, now time.Time) Sale {
	next := prior
	if name := strings.TrimSpace(p.ProductName); name != "" {
		next.ProductName = name
	}
	if p.Quantity != 0 {
		next.Quantity = p.Quantity
	}
	if p.UnitPrice != nil && !p.UnitPrice.IsZero() {
		next.UnitPrice = *p.UnitPrice
	}
	if p.UnitType != "" {
		next.UnitType = p.UnitType
	}
	if p.NotesSet {
		next.Notes = p.Notes
	}
	if p.ClientID != nil {
		next.ClientID = p.ClientID
	}
	if p.SaleDateTime != nil && !p.SaleDateTime.IsZero() {
		next.SaleDateTime = *p.SaleDateTime
	}
	next.TotalAmount = ComputeTotal(next.Quantity, next.UnitPrice)
	next.UpdatedAt = now
	return next
}

// Validate checks a merged sale against the same rules as a new one.
func (s Sale) Validate() error {
	if strings.TrimSpace(s.ProductName) == "" {
		return ErrProductNameRequired
	}
	if s.Quantity <= 0 {
		return ErrQuantityNotPositive
	}
	if err := validatePrice(s.UnitPrice); err != nil {
		return err
	}
	if !s.UnitType.IsValid() {
		return ErrUnitTypeInvalid
	}
	return nil
}

// SaleFilter narrows a sale listing.
type SaleFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	WorkerID  *uuid.UUID
	Product   string // case-insensitive substring
	Limit     uint64
}
