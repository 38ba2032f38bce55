package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"salesguard/internal/core/domain"
	"salesguard/internal/core/ports"
	"salesguard/pkg/apperror"
	"salesguard/pkg/clock"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type workerService struct {
	repo    ports.WorkerRepository
	hashSvc ports.HashService
	audit   ports.AuditLedger
	clock   clock.Clock
	log     zerolog.Logger
}

// NewWorkerService creates the worker directory service.
func NewWorkerService(
	repo ports.WorkerRepository,
	hashSvc ports.HashService,
	audit ports.AuditLedger,
	clk clock.Clock,
	log zerolog.Logger,
) ports.WorkerService {
	return &workerService{repo: repo, hashSvc: hashSvc, audit: audit, clock: clk, log: log}
}

func (s *workerService) List(ctx context.Context) ([]domain.Worker, error) {
	workers, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return workers, nil
}

func (s *workerService) Create(ctx context.Context, actor domain.Actor, req ports.CreateWorkerRequest) (*domain.Worker, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, apperror.Validation("name, email and password are required")
	}
	role := req.Role
	if role == "" {
		role = domain.RoleWorker
	}
	if !role.IsValid() {
		return nil, apperror.Validation("role must be worker or admin")
	}

	hash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := s.clock.Now()
	w := &domain.Worker{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, mapWorkerError(err)
	}

	s.appendAudit(ctx, domain.AuditEntry{
		WorkerID: &actor.WorkerID,
		Action:   domain.AuditActionCreateWorker,
		After:    w.Profile(),
	})
	return w, nil
}

func (s *workerService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, req ports.UpdateWorkerRequest) (*domain.Worker, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if existing == nil {
		return nil, apperror.ErrNotFound("Worker")
	}
	if req.Role != "" && !req.Role.IsValid() {
		return nil, apperror.Validation("role must be worker or admin")
	}

	updated := *existing
	if name := strings.TrimSpace(req.Name); name != "" {
		updated.Name = name
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		updated.Email = email
	}
	if req.Role != "" {
		updated.Role = req.Role
	}
	if req.Password != "" {
		hash, err := s.hashSvc.Hash(req.Password)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
		}
		updated.PasswordHash = hash
	}
	updated.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, mapWorkerError(err)
	}

	s.appendAudit(ctx, domain.AuditEntry{
		WorkerID: &actor.WorkerID,
		Action:   domain.AuditActionUpdateWorker,
		Before:   existing.Profile(),
		After:    updated.Profile(),
	})
	return &updated, nil
}

func (s *workerService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if id == actor.WorkerID {
		return apperror.Validation("cannot delete your own account")
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return apperror.InternalError(err)
	}
	if existing == nil {
		return apperror.ErrNotFound("Worker")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapWorkerError(err)
	}

	s.appendAudit(ctx, domain.AuditEntry{
		WorkerID: &actor.WorkerID,
		Action:   domain.AuditActionDeleteWorker,
		Before:   map[string]string{"name": existing.Name, "email": existing.Email},
	})
	return nil
}

func (s *workerService) appendAudit(ctx context.Context, entry domain.AuditEntry) {
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to audit worker change")
	}
}

func mapWorkerError(err error) error {
	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		return apperror.ErrConflict("email already in use")
	case errors.Is(err, domain.ErrWorkerHasSales):
		return apperror.ErrConflict("worker has recorded sales and cannot be deleted")
	default:
		return apperror.InternalError(err)
	}
}
