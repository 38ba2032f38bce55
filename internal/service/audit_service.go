package service

import (
	"context"
	"encoding/json"
	"fmt"

	"salesguard/internal/core/domain"
	"salesguard/internal/core/ports"
	"salesguard/pkg/apperror"
	"salesguard/pkg/clock"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type auditService struct {
	repo  ports.AuditRepository
	clock clock.Clock
	log   zerolog.Logger
}

// NewAuditService creates the audit ledger. Append is synchronous and
// reports failures so the caller decides whether they matter.
func NewAuditService(repo ports.AuditRepository, clk clock.Clock, log zerolog.Logger) ports.AuditLedger {
	return &auditService{repo: repo, clock: clk, log: log}
}

// Append snapshots entry.Before and entry.After as JSON and writes one row.
func (s *auditService) Append(ctx context.Context, entry domain.AuditEntry) error {
	before, err := snapshot(entry.Before)
	if err != nil {
		return fmt.Errorf("marshal audit before: %w", err)
	}
	after, err := snapshot(entry.After)
	if err != nil {
		return fmt.Errorf("marshal audit after: %w", err)
	}

	record := &domain.AuditLog{
		ID:        uuid.New(),
		WorkerID:  entry.WorkerID,
		Action:    entry.Action,
		SaleID:    entry.SaleID,
		Before:    before,
		After:     after,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return fmt.Errorf("append audit %s: %w", entry.Action, err)
	}

	evt := s.log.Info().Str("action", string(entry.Action))
	if entry.WorkerID != nil {
		evt = evt.Str("worker_id", entry.WorkerID.String())
	}
	if entry.SaleID != nil {
		evt = evt.Str("sale_id", entry.SaleID.String())
	}
	evt.Msg("audit")
	return nil
}

// List returns audit entries for the admin view.
func (s *auditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLog, error) {
	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return logs, nil
}

// snapshot marshals v, keeping nil as an absent snapshot.
func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
