package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"salesguard/internal/core/domain"
	"salesguard/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type saleTestDeps struct {
	svc        *SaleServiceImpl
	sales      *mocks.MockSaleRepository
	clients    *mocks.MockClientRepository
	prices     *mocks.MockPriceStatsService
	suspicion  *mocks.MockSuspicionEngine
	audit      *mocks.MockAuditLedger
	idempCache *mocks.MockIdempotencyCache
	idempRepo  *mocks.MockIdempotencyRepository
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller

	mu      sync.Mutex
	results []TaskResult
}

func setupSaleService(t *testing.T) *saleTestDeps {
	ctrl := gomock.NewController(t)
	d := &saleTestDeps{
		sales:      mocks.NewMockSaleRepository(ctrl),
		clients:    mocks.NewMockClientRepository(ctrl),
		prices:     mocks.NewMockPriceStatsService(ctrl),
		suspicion:  mocks.NewMockSuspicionEngine(ctrl),
		audit:      mocks.NewMockAuditLedger(ctrl),
		idempCache: mocks.NewMockIdempotencyCache(ctrl),
		idempRepo:  mocks.NewMockIdempotencyRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewSaleService(
		d.sales, d.clients, d.prices, d.suspicion, d.audit, d.idempCache,
		d.idempRepo, d.transactor, newTestClock(), 0, nil, newTestLogger(),
	)
	d.svc.OnSideEffects(func(_ uuid.UUID, results []TaskResult) {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.results = results
	})
	return d
}

func (d *saleTestDeps) lastResults() []TaskResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.results
}

func newSaleInput() domain.NewSale {
	return domain.NewSale{
		ProductName: " Sugar ",
		Quantity:    3,
		UnitPrice:   decimal.RequireFromString("2500"),
		UnitType:    domain.UnitTypeKg,
	}
}

func echoCreate(_ context.Context, s *domain.Sale) (*domain.Sale, error) {
	out := *s
	return &out, nil
}

func workerActor() domain.Actor {
	return domain.Actor{WorkerID: uuid.New(), Role: domain.RoleWorker}
}

func adminActor() domain.Actor {
	return domain.Actor{WorkerID: uuid.New(), Role: domain.RoleAdmin}
}

// ==================== CreateSale Tests ====================

func TestSaleService_CreateSale_Success(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	actor := workerActor()
	findings := []domain.Finding{{Rule: RuleHighValue, Reason: "High value transaction: TZS 7,500", Severity: domain.SeverityMedium}}

	d.sales.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, s *domain.Sale) (*domain.Sale, error) {
		assert.Equal(t, actor.WorkerID, s.WorkerID)
		assert.Equal(t, "Sugar", s.ProductName)
		assert.True(t, decimal.NewFromInt(7500).Equal(s.TotalAmount))
		assert.Equal(t, testNow, s.CreatedAt)
		assert.Equal(t, testNow, s.SaleDateTime)
		return echoCreate(ctx, s)
	})
	d.prices.EXPECT().RecordObservation(gomock.Any(), "Sugar", gomock.Any()).Return(nil)
	d.suspicion.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return(findings)
	d.suspicion.EXPECT().RecordFindings(gomock.Any(), gomock.Any(), findings).Return(nil)
	d.audit.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e domain.AuditEntry) error {
		assert.Equal(t, domain.AuditActionCreateSale, e.Action)
		assert.Equal(t, actor.WorkerID, *e.WorkerID)
		assert.Nil(t, e.Before)
		require.NotNil(t, e.After)
		return nil
	})

	sale, err := d.svc.CreateSale(ctx, actor, newSaleInput())
	require.NoError(t, err)
	assert.Equal(t, domain.UnitTypeKg, sale.UnitType)
	assert.Empty(t, FailedTasks(d.lastResults()))
	assert.Len(t, d.lastResults(), 3)
}

func TestSaleService_CreateSale_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.NewSale)
	}{
		{"blank product", func(n *domain.NewSale) { n.ProductName = "   " }},
		{"zero quantity", func(n *domain.NewSale) { n.Quantity = 0 }},
		{"negative quantity", func(n *domain.NewSale) { n.Quantity = -2 }},
		{"negative price", func(n *domain.NewSale) { n.UnitPrice = decimal.NewFromInt(-1) }},
		{"unknown unit", func(n *domain.NewSale) { n.UnitType = "litre" }},
		{"sub-cent price", func(n *domain.NewSale) { n.UnitPrice = decimal.RequireFromString("0.333") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupSaleService(t)
			defer d.ctrl.Finish()

			in := newSaleInput()
			tt.mutate(&in)

			sale, err := d.svc.CreateSale(context.Background(), workerActor(), in)
			assert.Nil(t, sale)
			assertAppError(t, err, "VAL_001")
		})
	}
}

func TestSaleService_CreateSale_PersistenceFailure_NoFanOut(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	d.sales.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.New("insert sale: connection refused"))

	sale, err := d.svc.CreateSale(context.Background(), workerActor(), newSaleInput())
	assert.Nil(t, sale)
	assertAppError(t, err, "SYS_001")
	assert.Nil(t, d.lastResults())
}

func TestSaleService_CreateSale_AuditFailureIsNotFatal(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	d.sales.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(echoCreate)
	d.prices.EXPECT().RecordObservation(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	d.suspicion.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return(nil)
	d.suspicion.EXPECT().RecordFindings(gomock.Any(), gomock.Any(), gomock.Nil()).Return(nil)
	d.audit.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("audit store unavailable"))

	sale, err := d.svc.CreateSale(context.Background(), workerActor(), newSaleInput())
	require.NoError(t, err)
	require.NotNil(t, sale)
	assert.Equal(t, []string{taskAudit}, FailedTasks(d.lastResults()))
}

func TestSaleService_CreateSale_AllSideEffectsFail(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	d.sales.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(echoCreate)
	d.prices.EXPECT().RecordObservation(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("deadlock"))
	d.suspicion.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return([]domain.Finding{{Rule: RuleNegativeTotal}})
	d.suspicion.EXPECT().RecordFindings(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("insert failed"))
	d.audit.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("audit store unavailable"))

	sale, err := d.svc.CreateSale(context.Background(), workerActor(), newSaleInput())
	require.NoError(t, err)
	require.NotNil(t, sale)
	assert.ElementsMatch(t, []string{taskPriceStats, taskSuspicion, taskAudit}, FailedTasks(d.lastResults()))
}

func TestSaleService_CreateSale_SideEffectsSurviveCancellation(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	checkLive := func(ctx context.Context) {
		assert.NoError(t, ctx.Err(), "side effect saw a cancelled context")
	}

	d.sales.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, s *domain.Sale) (*domain.Sale, error) {
		cancel()
		return echoCreate(c, s)
	})
	d.prices.EXPECT().RecordObservation(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(c context.Context, _ string, _ decimal.Decimal) error { checkLive(c); return nil })
	d.suspicion.EXPECT().Evaluate(gomock.Any(), gomock.Any()).DoAndReturn(
		func(c context.Context, _ *domain.Sale) []domain.Finding { checkLive(c); return nil })
	d.suspicion.EXPECT().RecordFindings(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	d.audit.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(c context.Context, _ domain.AuditEntry) error { checkLive(c); return nil })

	_, err := d.svc.CreateSale(ctx, workerActor(), newSaleInput())
	require.NoError(t, err)
}

func TestSaleService_CreateSale_UnknownClient(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	clientID := uuid.New()
	in := newSaleInput()
	in.ClientID = &clientID

	d.clients.EXPECT().GetByID(gomock.Any(), clientID).Return(nil, nil)

	_, err := d.svc.CreateSale(context.Background(), workerActor(), in)
	assertAppError(t, err, "VAL_001")
}

// ==================== CreateSaleIdempotent Tests ====================

func TestSaleService_CreateSaleIdempotent_Replay(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	actor := workerActor()
	cached := &domain.Sale{ID: uuid.New(), WorkerID: actor.WorkerID, ProductName: "Sugar", Quantity: 3,
		UnitPrice: decimal.NewFromInt(2500), TotalAmount: decimal.NewFromInt(7500)}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)

	d.idempCache.EXPECT().Get(gomock.Any(), actor.WorkerID.String()+":till-1-0042").Return(payload, nil)

	sale, err := d.svc.CreateSaleIdempotent(context.Background(), actor, "till-1-0042", newSaleInput())
	require.NoError(t, err)
	assert.Equal(t, cached.ID, sale.ID)
	assert.True(t, cached.TotalAmount.Equal(sale.TotalAmount))
}

func TestSaleService_CreateSaleIdempotent_FirstCall(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	actor := workerActor()
	key := actor.WorkerID.String() + ":till-1-0043"
	tx := &mockTx{}

	d.idempCache.EXPECT().Get(gomock.Any(), key).Return(nil, errors.New("redis down"))
	d.idempRepo.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.sales.EXPECT().CreateTx(gomock.Any(), tx, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ pgx.Tx, s *domain.Sale) (*domain.Sale, error) {
			return echoCreate(ctx, s)
		})
	d.idempRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, log *domain.IdempotencyLog) error {
			assert.Equal(t, key, log.Key)
			assert.Equal(t, testNow, log.CreatedAt)
			assert.False(t, tx.committed, "key is recorded before commit")
			return nil
		})
	d.prices.EXPECT().RecordObservation(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	d.suspicion.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return(nil)
	d.suspicion.EXPECT().RecordFindings(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	d.audit.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(gomock.Any(), key, gomock.Any(), DefaultIdempotencyTTL).Return(errors.New("redis down"))

	sale, err := d.svc.CreateSaleIdempotent(context.Background(), actor, "till-1-0043", newSaleInput())
	require.NoError(t, err)
	assert.NotNil(t, sale)
	assert.True(t, tx.committed)
	assert.Len(t, d.lastResults(), 3)
}

func TestSaleService_CreateSaleIdempotent_ReplayFromDatabase(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	actor := workerActor()
	key := actor.WorkerID.String() + ":till-1-0044"
	stored := &domain.Sale{ID: uuid.New(), WorkerID: actor.WorkerID, ProductName: "Sugar", Quantity: 3,
		UnitPrice: decimal.NewFromInt(2500), TotalAmount: decimal.NewFromInt(7500)}
	payload, err := json.Marshal(stored)
	require.NoError(t, err)

	d.idempCache.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.idempRepo.EXPECT().Get(gomock.Any(), key).Return(&domain.IdempotencyLog{
		Key: key, SaleID: stored.ID, ResponseJSON: payload, CreatedAt: testNow,
	}, nil)
	d.idempCache.EXPECT().Set(gomock.Any(), key, payload, DefaultIdempotencyTTL).Return(nil)

	sale, err := d.svc.CreateSaleIdempotent(context.Background(), actor, "till-1-0044", newSaleInput())
	require.NoError(t, err)
	assert.Equal(t, stored.ID, sale.ID)
	assert.Nil(t, d.lastResults(), "a replay runs no side effects")
}

func TestSaleService_CreateSaleIdempotent_LostRace(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	actor := workerActor()
	key := actor.WorkerID.String() + ":till-1-0045"
	winner := &domain.Sale{ID: uuid.New(), WorkerID: actor.WorkerID, ProductName: "Sugar", Quantity: 3}
	payload, err := json.Marshal(winner)
	require.NoError(t, err)
	tx := &mockTx{}

	d.idempCache.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	gomock.InOrder(
		d.idempRepo.EXPECT().Get(gomock.Any(), key).Return(nil, nil),
		d.idempRepo.EXPECT().Get(gomock.Any(), key).Return(&domain.IdempotencyLog{
			Key: key, SaleID: winner.ID, ResponseJSON: payload,
		}, nil),
	)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.sales.EXPECT().CreateTx(gomock.Any(), tx, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ pgx.Tx, s *domain.Sale) (*domain.Sale, error) {
			return echoCreate(ctx, s)
		})
	d.idempRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(domain.ErrIdempotencyKeyExists)
	d.idempCache.EXPECT().Set(gomock.Any(), key, payload, DefaultIdempotencyTTL).Return(nil)

	sale, err := d.svc.CreateSaleIdempotent(context.Background(), actor, "till-1-0045", newSaleInput())
	require.NoError(t, err)
	assert.Equal(t, winner.ID, sale.ID)
	assert.False(t, tx.committed)
	assert.Nil(t, d.lastResults())
}

func TestSaleService_CreateSaleIdempotent_ValidationBeforeWrite(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	actor := workerActor()
	key := actor.WorkerID.String() + ":till-1-0046"
	in := newSaleInput()
	in.Quantity = 0

	d.idempCache.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.idempRepo.EXPECT().Get(gomock.Any(), key).Return(nil, nil)

	_, err := d.svc.CreateSaleIdempotent(context.Background(), actor, "till-1-0046", in)
	assertAppError(t, err, "VAL_001")
}

func TestSaleService_CreateSaleIdempotent_LogLookupFails(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	actor := workerActor()
	key := actor.WorkerID.String() + ":till-1-0047"

	d.idempCache.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.idempRepo.EXPECT().Get(gomock.Any(), key).Return(nil, errors.New("connection reset"))

	_, err := d.svc.CreateSaleIdempotent(context.Background(), actor, "till-1-0047", newSaleInput())
	assertAppError(t, err, "SYS_001")
}

// ==================== UpdateSale Tests ====================

func storedSale(workerID uuid.UUID) *domain.Sale {
	notes := "regular customer"
	return &domain.Sale{
		ID:           uuid.New(),
		WorkerID:     workerID,
		ProductName:  "Rice",
		Quantity:     2,
		UnitType:     domain.UnitTypeKg,
		UnitPrice:    decimal.NewFromInt(3000),
		TotalAmount:  decimal.NewFromInt(6000),
		Notes:        &notes,
		SaleDateTime: testNow.Add(-48 * time.Hour),
		CreatedAt:    testNow.Add(-48 * time.Hour),
		UpdatedAt:    testNow.Add(-48 * time.Hour),
	}
}

func TestSaleService_UpdateSale_RecomputesTotal(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	actor := adminActor()
	prior := storedSale(uuid.New())
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.sales.EXPECT().GetByIDForUpdate(ctx, tx, prior.ID).Return(prior, nil)
	d.sales.EXPECT().Update(ctx, tx, gomock.Any()).DoAndReturn(func(_ context.Context, _ pgx.Tx, s *domain.Sale) (*domain.Sale, error) {
		assert.Equal(t, 5, s.Quantity)
		assert.True(t, decimal.NewFromInt(15000).Equal(s.TotalAmount))
		assert.Equal(t, "Rice", s.ProductName)
		assert.Equal(t, testNow, s.UpdatedAt)
		out := *s
		return &out, nil
	})
	d.suspicion.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return(nil)
	d.suspicion.EXPECT().RecordFindings(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	d.audit.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e domain.AuditEntry) error {
		assert.Equal(t, domain.AuditActionUpdateSale, e.Action)
		assert.Equal(t, actor.WorkerID, *e.WorkerID)
		assert.Equal(t, prior, e.Before)
		after := e.After.(*domain.Sale)
		assert.Equal(t, 5, after.Quantity)
		return nil
	})

	updated, err := d.svc.UpdateSale(ctx, prior.ID, actor, domain.SalePatch{Quantity: 5})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(15000).Equal(updated.TotalAmount))
	assert.True(t, tx.committed)
	assert.Len(t, d.lastResults(), 2, "price statistics are not touched on update")
}

func TestSaleService_UpdateSale_NotFound(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	id := uuid.New()

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.sales.EXPECT().GetByIDForUpdate(ctx, tx, id).Return(nil, nil)

	_, err := d.svc.UpdateSale(ctx, id, adminActor(), domain.SalePatch{Quantity: 1})
	assertAppError(t, err, "RES_001")
	assert.False(t, tx.committed)
}

func TestSaleService_UpdateSale_WorkerForbidden(t *testing.T) {
	tests := []struct {
		name  string
		owner func(actor domain.Actor) uuid.UUID
	}{
		{"own sale", func(a domain.Actor) uuid.UUID { return a.WorkerID }},
		{"other worker's sale", func(domain.Actor) uuid.UUID { return uuid.New() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupSaleService(t)
			defer d.ctrl.Finish()

			actor := workerActor()
			prior := storedSale(tt.owner(actor))

			_, err := d.svc.UpdateSale(context.Background(), prior.ID, actor, domain.SalePatch{Quantity: 1})
			assertAppError(t, err, "AUTH_004")
		})
	}
}

func TestSaleService_UpdateSale_RejectsInvalidMerge(t *testing.T) {
	negPrice := decimal.NewFromInt(-50)
	subCent := decimal.RequireFromString("0.333")

	tests := []struct {
		name  string
		patch domain.SalePatch
	}{
		{"negative quantity and price", domain.SalePatch{Quantity: -3, UnitPrice: &negPrice}},
		{"negative price", domain.SalePatch{UnitPrice: &negPrice}},
		{"sub-cent price", domain.SalePatch{Quantity: 3, UnitPrice: &subCent}},
		{"unknown unit", domain.SalePatch{UnitType: "litre"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupSaleService(t)
			defer d.ctrl.Finish()

			ctx := context.Background()
			tx := &mockTx{}
			prior := storedSale(uuid.New())

			d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
			d.sales.EXPECT().GetByIDForUpdate(ctx, tx, prior.ID).Return(prior, nil)

			_, err := d.svc.UpdateSale(ctx, prior.ID, adminActor(), tt.patch)
			assertAppError(t, err, "VAL_001")
			assert.False(t, tx.committed)
			assert.Nil(t, d.lastResults())
		})
	}
}

func TestSaleService_UpdateSale_AdminMayEditAnySale(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	prior := storedSale(uuid.New())

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.sales.EXPECT().GetByIDForUpdate(ctx, tx, prior.ID).Return(prior, nil)
	d.sales.EXPECT().Update(ctx, tx, gomock.Any()).DoAndReturn(func(_ context.Context, _ pgx.Tx, s *domain.Sale) (*domain.Sale, error) {
		return s, nil
	})
	d.suspicion.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return(nil)
	d.suspicion.EXPECT().RecordFindings(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	d.audit.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	empty := ""
	updated, err := d.svc.UpdateSale(ctx, prior.ID, adminActor(), domain.SalePatch{Notes: &empty, NotesSet: true})
	require.NoError(t, err)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "", *updated.Notes)
}

// ==================== DeleteSale Tests ====================

func TestSaleService_DeleteSale_AuditsBeforeOnly(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	actor := adminActor()
	prior := storedSale(uuid.New())
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.sales.EXPECT().GetByIDForUpdate(ctx, tx, prior.ID).Return(prior, nil)
	d.sales.EXPECT().Delete(ctx, tx, prior.ID).Return(nil)
	d.audit.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e domain.AuditEntry) error {
		assert.Equal(t, domain.AuditActionDeleteSale, e.Action)
		assert.Equal(t, prior, e.Before)
		assert.Nil(t, e.After)
		require.NotNil(t, e.SaleID)
		assert.Equal(t, prior.ID, *e.SaleID)
		return nil
	})

	require.NoError(t, d.svc.DeleteSale(ctx, prior.ID, actor))
	assert.True(t, tx.committed)
}

func TestSaleService_DeleteSale_WorkerForbidden(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	actor := workerActor()
	prior := storedSale(actor.WorkerID)

	err := d.svc.DeleteSale(context.Background(), prior.ID, actor)
	assertAppError(t, err, "AUTH_004")
}

func TestSaleService_DeleteSale_NotFound(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	id := uuid.New()

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.sales.EXPECT().GetByIDForUpdate(ctx, tx, id).Return(nil, nil)

	err := d.svc.DeleteSale(ctx, id, adminActor())
	assertAppError(t, err, "RES_001")
}

func TestSaleService_DeleteSale_RepoFailure(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	prior := storedSale(uuid.New())
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.sales.EXPECT().GetByIDForUpdate(ctx, tx, prior.ID).Return(prior, nil)
	d.sales.EXPECT().Delete(ctx, tx, prior.ID).Return(errors.New("delete sale: timeout"))

	err := d.svc.DeleteSale(ctx, prior.ID, adminActor())
	assertAppError(t, err, "SYS_001")
	assert.False(t, tx.committed)
}

// ==================== Read Tests ====================

func TestSaleService_ListSales_WorkerScopedToSelf(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	actor := workerActor()
	someoneElse := uuid.New()

	d.sales.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, f domain.SaleFilter) ([]domain.Sale, error) {
		require.NotNil(t, f.WorkerID)
		assert.Equal(t, actor.WorkerID, *f.WorkerID)
		assert.Equal(t, "sug", f.Product)
		return []domain.Sale{}, nil
	})

	_, err := d.svc.ListSales(context.Background(), actor, domain.SaleFilter{WorkerID: &someoneElse, Product: "sug"})
	require.NoError(t, err)
}

func TestSaleService_ListSales_AdminSeesAll(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	admin := domain.Actor{WorkerID: uuid.New(), Role: domain.RoleAdmin}
	d.sales.EXPECT().List(gomock.Any(), domain.SaleFilter{}).Return(nil, nil)

	_, err := d.svc.ListSales(context.Background(), admin, domain.SaleFilter{})
	require.NoError(t, err)
}

func TestSaleService_GetSale(t *testing.T) {
	d := setupSaleService(t)
	defer d.ctrl.Finish()

	actor := workerActor()
	own := storedSale(actor.WorkerID)
	other := storedSale(uuid.New())
	missing := uuid.New()

	d.sales.EXPECT().GetByID(gomock.Any(), own.ID).Return(own, nil)
	d.sales.EXPECT().GetByID(gomock.Any(), other.ID).Return(other, nil)
	d.sales.EXPECT().GetByID(gomock.Any(), missing).Return(nil, nil)

	got, err := d.svc.GetSale(context.Background(), actor, own.ID)
	require.NoError(t, err)
	assert.Equal(t, own.ID, got.ID)

	_, err = d.svc.GetSale(context.Background(), actor, other.ID)
	assertAppError(t, err, "AUTH_004")

	_, err = d.svc.GetSale(context.Background(), actor, missing)
	assertAppError(t, err, "RES_001")
}
