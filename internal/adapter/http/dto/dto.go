package dto

import (
	"encoding/json"
	"time"

	"salesguard/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoginRequest is the request body for worker login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt int64          `json:"expires_at"` // Unix timestamp
	Worker    *domain.Worker `json:"worker"`
}

// MeResponse is the response body for the current worker.
type MeResponse struct {
	ID uuid.UUID `json:"id"`
	domain.WorkerProfile
}

// CreateSaleRequest is the request body for recording a sale. The total
// is always computed server side.
type CreateSaleRequest struct {
	ProductName  string           `json:"product_name" binding:"required,max=200"`
	Quantity     int              `json:"quantity" binding:"required,gt=0"`
	UnitPrice    *decimal.Decimal `json:"unit_price" binding:"required"`
	UnitType     domain.UnitType  `json:"unit_type" binding:"omitempty,oneof=piece kg"`
	Notes        *string          `json:"notes,omitempty" binding:"omitempty,max=1000"`
	ClientID     *uuid.UUID       `json:"client_id,omitempty"`
	SaleDateTime *time.Time       `json:"sale_datetime,omitempty"`
}

// ToDomain converts the request into a domain.NewSale.
func (r CreateSaleRequest) ToDomain() domain.NewSale {
	in := domain.NewSale{
		ProductName:  r.ProductName,
		Quantity:     r.Quantity,
		UnitType:     r.UnitType,
		Notes:        r.Notes,
		ClientID:     r.ClientID,
		SaleDateTime: r.SaleDateTime,
	}
	if r.UnitPrice != nil {
		in.UnitPrice = *r.UnitPrice
	}
	return in
}

// UpdateSaleRequest is a partial sale update. Omitted and zero numeric
// fields keep their stored value.
type UpdateSaleRequest struct {
	ProductName  string           `json:"product_name" binding:"omitempty,max=200"`
	Quantity     int              `json:"quantity" binding:"omitempty,gt=0"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	UnitType     domain.UnitType  `json:"unit_type" binding:"omitempty,oneof=piece kg"`
	Notes        OptionalString   `json:"notes"`
	ClientID     *uuid.UUID       `json:"client_id,omitempty"`
	SaleDateTime *time.Time       `json:"sale_datetime,omitempty"`
}

// ToDomain converts the request into a domain.SalePatch.
func (r UpdateSaleRequest) ToDomain() domain.SalePatch {
	return domain.SalePatch{
		ProductName:  r.ProductName,
		Quantity:     r.Quantity,
		UnitPrice:    r.UnitPrice,
		UnitType:     r.UnitType,
		Notes:        r.Notes.Value,
		NotesSet:     r.Notes.Set,
		ClientID:     r.ClientID,
		SaleDateTime: r.SaleDateTime,
	}
}

// OptionalString tells an absent JSON field apart from an explicit null
// or empty string.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only called when the field is present.
func (o *OptionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// CreateWorkerRequest is the request body for a new worker account.
type CreateWorkerRequest struct {
	Name     string      `json:"name" binding:"required,max=100"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=8,max=72"`
	Role     domain.Role `json:"role" binding:"omitempty,oneof=worker admin"`
}

// UpdateWorkerRequest is a partial worker update.
type UpdateWorkerRequest struct {
	Name     string      `json:"name" binding:"omitempty,max=100"`
	Email    string      `json:"email" binding:"omitempty,email"`
	Password string      `json:"password" binding:"omitempty,min=8,max=72"`
	Role     domain.Role `json:"role" binding:"omitempty,oneof=worker admin"`
}

// CreateClientRequest is the request body for a new client.
type CreateClientRequest struct {
	Name  string  `json:"name" binding:"required,max=100"`
	Phone *string `json:"phone,omitempty" binding:"omitempty,phone"`
	Email *string `json:"email,omitempty" binding:"omitempty,email"`
}
