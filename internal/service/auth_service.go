package service

import (
	"context"
	"fmt"

	"salesguard/internal/core/domain"
	"salesguard/internal/core/ports"
	"salesguard/pkg/apperror"

	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	workerRepo ports.WorkerRepository
	hashSvc    ports.HashService
	tokenSvc   ports.TokenService
	audit      ports.AuditLedger
	log        zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	workerRepo ports.WorkerRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	audit ports.AuditLedger,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		workerRepo: workerRepo,
		hashSvc:    hashSvc,
		tokenSvc:   tokenSvc,
		audit:      audit,
		log:        log,
	}
}

// Login validates credentials and returns a JWT token. Unknown emails and
// wrong passwords fail the same way.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	worker, err := s.workerRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find worker: %w", err))
	}
	if worker == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, worker.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return nil, apperror.ErrInvalidCredentials()
	}

	token, expiresAt, err := s.tokenSvc.Generate(worker.ID, worker.Role)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	if err := s.audit.Append(ctx, domain.AuditEntry{WorkerID: &worker.ID, Action: domain.AuditActionLogin}); err != nil {
		s.log.Warn().Err(err).Str("worker_id", worker.ID.String()).Msg("failed to audit login")
	}

	return &ports.LoginResult{Token: token, ExpiresAt: expiresAt, Worker: worker}, nil
}

// Logout records the logout. Tokens are stateless and simply expire.
func (s *AuthServiceImpl) Logout(ctx context.Context, actor domain.Actor) error {
	if err := s.audit.Append(ctx, domain.AuditEntry{WorkerID: &actor.WorkerID, Action: domain.AuditActionLogout}); err != nil {
		s.log.Warn().Err(err).Str("worker_id", actor.WorkerID.String()).Msg("failed to audit logout")
	}
	return nil
}

// Me loads the authenticated worker. A token whose worker no longer exists
// is treated as invalid.
func (s *AuthServiceImpl) Me(ctx context.Context, actor domain.Actor) (*domain.Worker, error) {
	worker, err := s.workerRepo.GetByID(ctx, actor.WorkerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find worker: %w", err))
	}
	if worker == nil {
		return nil, apperror.ErrInvalidToken()
	}
	return worker, nil
}
