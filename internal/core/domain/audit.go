package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionLogin        AuditAction = "LOGIN"
	AuditActionLogout       AuditAction = "LOGOUT"
	AuditActionCreateSale   AuditAction = "CREATE_SALE"
	AuditActionUpdateSale   AuditAction = "UPDATE_SALE"
	AuditActionDeleteSale   AuditAction = "DELETE_SALE"
	AuditActionCreateWorker AuditAction = "CREATE_WORKER"
	AuditActionUpdateWorker AuditAction = "UPDATE_WORKER"
	AuditActionDeleteWorker AuditAction = "DELETE_WORKER"
	AuditActionCreateClient AuditAction = "CREATE_CLIENT"
)

// IsValid reports whether a is a known action.
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionLogin, AuditActionLogout,
		AuditActionCreateSale, AuditActionUpdateSale, AuditActionDeleteSale,
		AuditActionCreateWorker, AuditActionUpdateWorker, AuditActionDeleteWorker,
		AuditActionCreateClient:
		return true
	}
	return false
}

// AuditLog records a single audited action. Before and After hold the
// whole record as JSON, not a diff; either may be absent.
type AuditLog struct {
	ID        uuid.UUID       `json:"id"`
	WorkerID  *uuid.UUID      `json:"worker_id,omitempty"`
	Action    AuditAction     `json:"action_type"`
	SaleID    *uuid.UUID      `json:"sale_id,omitempty"`
	Before    json.RawMessage `json:"before_data,omitempty"`
	After     json.RawMessage `json:"after_data,omitempty"`
	CreatedAt time.Time       `json:"timestamp"`
}

// AuditEntry is what callers hand to the ledger. Before and After are
// marshaled as-is; nil means absent.
type AuditEntry struct {
	WorkerID *uuid.UUID
	Action   AuditAction
	SaleID   *uuid.UUID
	Before   any
	After    any
}

// AuditFilter narrows an audit listing.
type AuditFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	WorkerID  *uuid.UUID
	Action    AuditAction
	Limit     uint64
}
