package service

import (
	"context"
	"strings"

	"salesguard/internal/core/domain"
	"salesguard/internal/core/ports"
	"salesguard/pkg/apperror"
	"salesguard/pkg/clock"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type clientService struct {
	repo  ports.ClientRepository
	audit ports.AuditLedger
	clock clock.Clock
	log   zerolog.Logger
}

// NewClientService creates the client directory service.
func NewClientService(repo ports.ClientRepository, audit ports.AuditLedger, clk clock.Clock, log zerolog.Logger) ports.ClientService {
	return &clientService{repo: repo, audit: audit, clock: clk, log: log}
}

func (s *clientService) List(ctx context.Context) ([]domain.Client, error) {
	clients, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return clients, nil
}

func (s *clientService) Create(ctx context.Context, actor domain.Actor, req ports.CreateClientRequest) (*domain.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("client name is required")
	}

	c := &domain.Client{
		ID:        uuid.New(),
		Name:      name,
		Phone:     blankToNil(req.Phone),
		Email:     blankToNil(req.Email),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := s.audit.Append(ctx, domain.AuditEntry{
		WorkerID: &actor.WorkerID,
		Action:   domain.AuditActionCreateClient,
		After:    c,
	}); err != nil {
		s.log.Warn().Err(err).Str("client_id", c.ID.String()).Msg("failed to audit client creation")
	}
	return c, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
