package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"salesguard/internal/core/domain"
	"salesguard/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupAuthService(t *testing.T) (
	*AuthServiceImpl,
	*mocks.MockWorkerRepository,
	*mocks.MockHashService,
	*mocks.MockTokenService,
	*mocks.MockAuditLedger,
	*gomock.Controller,
) {
	ctrl := gomock.NewController(t)
	workerRepo := mocks.NewMockWorkerRepository(ctrl)
	hashSvc := mocks.NewMockHashService(ctrl)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	audit := mocks.NewMockAuditLedger(ctrl)

	svc := NewAuthService(workerRepo, hashSvc, tokenSvc, audit, newTestLogger())
	return svc, workerRepo, hashSvc, tokenSvc, audit, ctrl
}

func testWorker(role domain.Role) *domain.Worker {
	return &domain.Worker{
		ID:           uuid.New(),
		Name:         "Amina",
		Email:        "amina@example.com",
		PasswordHash: "$2a$10$hashed",
		Role:         role,
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, workerRepo, hashSvc, tokenSvc, audit, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	worker := testWorker(domain.RoleWorker)
	expiresAt := time.Now().Add(12 * time.Hour)

	workerRepo.EXPECT().GetByEmail(ctx, worker.Email).Return(worker, nil)
	hashSvc.EXPECT().Verify("StrongP@ss123", worker.PasswordHash).Return(true, nil)
	tokenSvc.EXPECT().Generate(worker.ID, domain.RoleWorker).Return("jwt-token-here", expiresAt, nil)
	audit.EXPECT().Append(ctx, domain.AuditEntry{WorkerID: &worker.ID, Action: domain.AuditActionLogin}).Return(nil)

	result, err := svc.Login(ctx, worker.Email, "StrongP@ss123")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token-here", result.Token)
	assert.Equal(t, expiresAt, result.ExpiresAt)
	assert.Equal(t, worker, result.Worker)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, workerRepo, _, _, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	workerRepo.EXPECT().GetByEmail(ctx, "ghost@example.com").Return(nil, nil)

	result, err := svc.Login(ctx, "ghost@example.com", "password")
	assert.Nil(t, result)
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, workerRepo, hashSvc, _, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	worker := testWorker(domain.RoleWorker)

	workerRepo.EXPECT().GetByEmail(ctx, worker.Email).Return(worker, nil)
	hashSvc.EXPECT().Verify("wrong", worker.PasswordHash).Return(false, nil)

	result, err := svc.Login(ctx, worker.Email, "wrong")
	assert.Nil(t, result)
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_RepoError(t *testing.T) {
	svc, workerRepo, _, _, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	workerRepo.EXPECT().GetByEmail(ctx, gomock.Any()).Return(nil, errors.New("db connection failed"))

	_, err := svc.Login(ctx, "amina@example.com", "password")
	assertAppError(t, err, "SYS_001")
}

func TestAuthService_Login_TokenError(t *testing.T) {
	svc, workerRepo, hashSvc, tokenSvc, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	worker := testWorker(domain.RoleAdmin)

	workerRepo.EXPECT().GetByEmail(ctx, worker.Email).Return(worker, nil)
	hashSvc.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(true, nil)
	tokenSvc.EXPECT().Generate(worker.ID, domain.RoleAdmin).Return("", time.Time{}, errors.New("signing failed"))

	_, err := svc.Login(ctx, worker.Email, "pw")
	assertAppError(t, err, "SYS_001")
}

func TestAuthService_Login_AuditFailureStillLogsIn(t *testing.T) {
	svc, workerRepo, hashSvc, tokenSvc, audit, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	worker := testWorker(domain.RoleWorker)

	workerRepo.EXPECT().GetByEmail(ctx, worker.Email).Return(worker, nil)
	hashSvc.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(true, nil)
	tokenSvc.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("tok", time.Now(), nil)
	audit.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("audit store down"))

	result, err := svc.Login(ctx, worker.Email, "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", result.Token)
}

func TestAuthService_Logout(t *testing.T) {
	svc, _, _, _, audit, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	actor := domain.Actor{WorkerID: uuid.New(), Role: domain.RoleWorker}

	audit.EXPECT().Append(ctx, domain.AuditEntry{WorkerID: &actor.WorkerID, Action: domain.AuditActionLogout}).Return(errors.New("down"))

	assert.NoError(t, svc.Logout(ctx, actor))
}

func TestAuthService_Me(t *testing.T) {
	svc, workerRepo, _, _, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	worker := testWorker(domain.RoleAdmin)
	actor := domain.Actor{WorkerID: worker.ID, Role: domain.RoleAdmin}

	workerRepo.EXPECT().GetByID(ctx, worker.ID).Return(worker, nil)

	got, err := svc.Me(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, worker, got)
}

func TestAuthService_Me_WorkerGone(t *testing.T) {
	svc, workerRepo, _, _, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	actor := domain.Actor{WorkerID: uuid.New(), Role: domain.RoleWorker}

	workerRepo.EXPECT().GetByID(ctx, actor.WorkerID).Return(nil, nil)

	_, err := svc.Me(ctx, actor)
	assertAppError(t, err, "AUTH_003")
}

func TestAuthService_Me_RepoFailure(t *testing.T) {
	svc, workerRepo, _, _, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	actor := domain.Actor{WorkerID: uuid.New(), Role: domain.RoleWorker}

	workerRepo.EXPECT().GetByID(ctx, actor.WorkerID).Return(nil, errors.New("db down"))

	_, err := svc.Me(ctx, actor)
	assertAppError(t, err, "SYS_001")
}
