package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salesguard/internal/core/domain"
	"salesguard/internal/core/ports"
	"salesguard/internal/metrics"
	"salesguard/pkg/apperror"
	"salesguard/pkg/clock"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Side-effect task names.
const (
	taskPriceStats = "price_stats"
	taskSuspicion  = "suspicion"
	taskAudit      = "audit"
)

// DefaultIdempotencyTTL is how long a created sale is replayable.
const DefaultIdempotencyTTL = 24 * time.Hour

// TaskResult is the outcome of one post-write side effect.
type TaskResult struct {
	Task string
	Err  error
}

// SaleServiceImpl implements ports.SaleService. A sale write is the only
// step that can fail the operation; price statistics, suspicion scoring
// and auditing run afterwards and are best effort.
type SaleServiceImpl struct {
	sales          ports.SaleRepository
	clients        ports.ClientRepository
	prices         ports.PriceStatsService
	suspicion      ports.SuspicionEngine
	audit          ports.AuditLedger
	idempCache     ports.IdempotencyCache
	idempRepo      ports.IdempotencyRepository
	transactor     ports.DBTransactor
	clock          clock.Clock
	idempotencyTTL time.Duration
	metrics        *metrics.Metrics
	log            zerolog.Logger

	// onSideEffects, when set, receives the results of every fan-out.
	onSideEffects func(saleID uuid.UUID, results []TaskResult)
}

// NewSaleService creates a new SaleServiceImpl.
func NewSaleService(
	sales ports.SaleRepository,
	clients ports.ClientRepository,
	prices ports.PriceStatsService,
	suspicion ports.SuspicionEngine,
	audit ports.AuditLedger,
	idempCache ports.IdempotencyCache,
	idempRepo ports.IdempotencyRepository,
	transactor ports.DBTransactor,
	clk clock.Clock,
	idempotencyTTL time.Duration,
	m *metrics.Metrics,
	log zerolog.Logger,
) *SaleServiceImpl {
	if idempotencyTTL <= 0 {
		idempotencyTTL = DefaultIdempotencyTTL
	}
	return &SaleServiceImpl{
		sales:          sales,
		clients:        clients,
		prices:         prices,
		suspicion:      suspicion,
		audit:          audit,
		idempCache:     idempCache,
		idempRepo:      idempRepo,
		transactor:     transactor,
		clock:          clk,
		idempotencyTTL: idempotencyTTL,
		metrics:        m,
		log:            log,
	}
}

// OnSideEffects registers fn to observe side-effect outcomes.
func (s *SaleServiceImpl) OnSideEffects(fn func(saleID uuid.UUID, results []TaskResult)) {
	s.onSideEffects = fn
}

// CreateSale validates and persists a sale, then updates price statistics,
// scores the sale and audits it concurrently. Only the insert can fail the
// call.
func (s *SaleServiceImpl) CreateSale(ctx context.Context, actor domain.Actor, in domain.NewSale) (*domain.Sale, error) {
	if err := s.validateNew(ctx, in); err != nil {
		return nil, err
	}

	sale, err := s.sales.Create(ctx, in.Build(actor.WorkerID, s.clock.Now()))
	if err != nil {
		s.log.Error().Err(err).Str("worker_id", actor.WorkerID.String()).Msg("failed to persist sale")
		return nil, apperror.InternalError(err)
	}
	s.afterCreate(ctx, actor, sale)
	return sale, nil
}

// CreateSaleIdempotent behaves like CreateSale, but a repeated key from the
// same worker returns the sale created the first time without writing
// again. Redis answers most replays; the idempotency_keys row written in
// the sale's transaction is authoritative when Redis misses or is down.
func (s *SaleServiceImpl) CreateSaleIdempotent(ctx context.Context, actor domain.Actor, key string, in domain.NewSale) (*domain.Sale, error) {
	if key == "" {
		return s.CreateSale(ctx, actor, in)
	}
	idemKey := domain.BuildIdempotencyKey(actor.WorkerID, key)

	// Layer 1: Redis
	cached, err := s.idempCache.Get(ctx, idemKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idemKey).Msg("idempotency cache lookup failed, falling back to database")
	}
	if cached != nil {
		return s.replay(idemKey, cached)
	}

	// Layer 2: Database
	if sale, err := s.replayFromLog(ctx, idemKey); sale != nil || err != nil {
		return sale, err
	}

	if err := s.validateNew(ctx, in); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	sale, err := s.sales.CreateTx(ctx, dbTx, in.Build(actor.WorkerID, s.clock.Now()))
	if err != nil {
		s.log.Error().Err(err).Str("worker_id", actor.WorkerID.String()).Msg("failed to persist sale")
		return nil, apperror.InternalError(err)
	}

	payload, err := json.Marshal(sale)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal sale: %w", err))
	}
	err = s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
		Key:          idemKey,
		SaleID:       sale.ID,
		ResponseJSON: payload,
		CreatedAt:    sale.CreatedAt,
	})
	if errors.Is(err, domain.ErrIdempotencyKeyExists) {
		// A concurrent submission with the same key committed first.
		_ = dbTx.Rollback(ctx)
		if sale, err := s.replayFromLog(ctx, idemKey); sale != nil || err != nil {
			return sale, err
		}
		return nil, apperror.InternalError(fmt.Errorf("idempotency key %s claimed but not readable", idemKey))
	}
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	s.afterCreate(ctx, actor, sale)

	if err := s.idempCache.Set(context.WithoutCancel(ctx), idemKey, payload, s.idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", idemKey).Msg("failed to cache idempotent sale")
	}
	return sale, nil
}

func (s *SaleServiceImpl) validateNew(ctx context.Context, in domain.NewSale) error {
	if err := in.Validate(); err != nil {
		return apperror.Validation(err.Error())
	}
	return s.checkClient(ctx, in.ClientID)
}

func (s *SaleServiceImpl) afterCreate(ctx context.Context, actor domain.Actor, sale *domain.Sale) {
	s.metrics.IncrementSale("create")

	s.fanOut(ctx, sale,
		s.priceStatsTask(sale),
		s.suspicionTask(sale),
		s.auditTask(domain.AuditEntry{
			WorkerID: &actor.WorkerID,
			Action:   domain.AuditActionCreateSale,
			SaleID:   &sale.ID,
			After:    sale,
		}),
	)

	s.log.Info().
		Str("sale_id", sale.ID.String()).
		Str("worker_id", actor.WorkerID.String()).
		Str("product", sale.ProductName).
		Str("total", sale.TotalAmount.String()).
		Msg("sale recorded")
}

// replayFromLog returns the sale recorded under key, or nil when the key
// has never been used.
func (s *SaleServiceImpl) replayFromLog(ctx context.Context, key string) (*domain.Sale, error) {
	log, err := s.idempRepo.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if log == nil {
		return nil, nil
	}
	sale, err := s.replay(key, log.ResponseJSON)
	if err != nil {
		return nil, err
	}
	if err := s.idempCache.Set(context.WithoutCancel(ctx), key, log.ResponseJSON, s.idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to re-warm idempotency cache")
	}
	return sale, nil
}

func (s *SaleServiceImpl) replay(key string, payload []byte) (*domain.Sale, error) {
	var sale domain.Sale
	if err := json.Unmarshal(payload, &sale); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached sale: %w", err))
	}
	s.log.Info().Str("key", key).Str("sale_id", sale.ID.String()).Msg("idempotent replay")
	return &sale, nil
}

// UpdateSale merges patch over the stored sale under a row lock and
// recomputes the total. Only admins may edit. Suspicion scoring and
// auditing follow; price statistics are left as they were.
func (s *SaleServiceImpl) UpdateSale(ctx context.Context, saleID uuid.UUID, actor domain.Actor, patch domain.SalePatch) (*domain.Sale, error) {
	if !actor.CanModify() {
		return nil, apperror.ErrForbidden()
	}
	if err := s.checkClient(ctx, patch.ClientID); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	prior, err := s.sales.GetByIDForUpdate(ctx, dbTx, saleID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock sale: %w", err))
	}
	if prior == nil {
		return nil, apperror.ErrNotFound("Sale")
	}

	next := patch.Apply(*prior, s.clock.Now())
	if err := next.Validate(); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	updated, err := s.sales.Update(ctx, dbTx, &next)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if updated == nil {
		return nil, apperror.ErrNotFound("Sale")
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	s.metrics.IncrementSale("update")

	s.fanOut(ctx, updated,
		s.suspicionTask(updated),
		s.auditTask(domain.AuditEntry{
			WorkerID: &actor.WorkerID,
			Action:   domain.AuditActionUpdateSale,
			SaleID:   &updated.ID,
			Before:   prior,
			After:    updated,
		}),
	)

	s.log.Info().
		Str("sale_id", updated.ID.String()).
		Str("worker_id", actor.WorkerID.String()).
		Str("total", updated.TotalAmount.String()).
		Msg("sale updated")

	return updated, nil
}

// DeleteSale removes a sale and audits its last state. Only admins may
// delete. Findings already raised against it are kept.
func (s *SaleServiceImpl) DeleteSale(ctx context.Context, saleID uuid.UUID, actor domain.Actor) error {
	if !actor.CanModify() {
		return apperror.ErrForbidden()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	prior, err := s.sales.GetByIDForUpdate(ctx, dbTx, saleID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock sale: %w", err))
	}
	if prior == nil {
		return apperror.ErrNotFound("Sale")
	}

	if err := s.sales.Delete(ctx, dbTx, saleID); err != nil {
		return apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	s.metrics.IncrementSale("delete")

	s.fanOut(ctx, prior,
		s.auditTask(domain.AuditEntry{
			WorkerID: &actor.WorkerID,
			Action:   domain.AuditActionDeleteSale,
			SaleID:   &prior.ID,
			Before:   prior,
		}),
	)

	s.log.Info().
		Str("sale_id", saleID.String()).
		Str("worker_id", actor.WorkerID.String()).
		Msg("sale deleted")

	return nil
}

// GetSale returns one sale. Workers may only read their own.
func (s *SaleServiceImpl) GetSale(ctx context.Context, actor domain.Actor, saleID uuid.UUID) (*domain.Sale, error) {
	sale, err := s.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if sale == nil {
		return nil, apperror.ErrNotFound("Sale")
	}
	if !actor.CanView(sale) {
		return nil, apperror.ErrForbidden()
	}
	return sale, nil
}

// ListSales returns sales matching filter. Non-admins only ever see their
// own sales, whatever worker the filter names.
func (s *SaleServiceImpl) ListSales(ctx context.Context, actor domain.Actor, filter domain.SaleFilter) ([]domain.Sale, error) {
	if !actor.IsAdmin() {
		filter.WorkerID = &actor.WorkerID
	}
	sales, err := s.sales.List(ctx, filter)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return sales, nil
}

func (s *SaleServiceImpl) checkClient(ctx context.Context, clientID *uuid.UUID) error {
	if clientID == nil {
		return nil
	}
	c, err := s.clients.GetByID(ctx, *clientID)
	if err != nil {
		return apperror.InternalError(err)
	}
	if c == nil {
		return apperror.Validation("client does not exist")
	}
	return nil
}

type sideEffect struct {
	name string
	run  func(ctx context.Context) error
}

func (s *SaleServiceImpl) priceStatsTask(sale *domain.Sale) sideEffect {
	return sideEffect{name: taskPriceStats, run: func(ctx context.Context) error {
		return s.prices.RecordObservation(ctx, sale.ProductName, sale.UnitPrice)
	}}
}

func (s *SaleServiceImpl) suspicionTask(sale *domain.Sale) sideEffect {
	return sideEffect{name: taskSuspicion, run: func(ctx context.Context) error {
		return s.suspicion.RecordFindings(ctx, sale, s.suspicion.Evaluate(ctx, sale))
	}}
}

func (s *SaleServiceImpl) auditTask(entry domain.AuditEntry) sideEffect {
	return sideEffect{name: taskAudit, run: func(ctx context.Context) error {
		return s.audit.Append(ctx, entry)
	}}
}

// fanOut runs tasks concurrently and waits for all of them. They run
// detached from ctx cancellation, so a client that disconnects after the
// write cannot cut them short. Failures are logged and counted, never
// returned.
func (s *SaleServiceImpl) fanOut(ctx context.Context, sale *domain.Sale, tasks ...sideEffect) []TaskResult {
	ctx = context.WithoutCancel(ctx)
	results := make([]TaskResult, len(tasks))

	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
				results[i] = TaskResult{Task: task.name, Err: err}
			}()
			return task.run(ctx)
		})
	}
	_ = g.Wait()

	for _, r := range results {
		s.metrics.IncrementSideEffect(r.Task, r.Err)
		if r.Err != nil {
			s.log.Warn().Err(r.Err).
				Str("task", r.Task).
				Str("sale_id", sale.ID.String()).
				Msg("sale side effect failed")
		}
	}
	if s.onSideEffects != nil {
		s.onSideEffects(sale.ID, results)
	}
	return results
}

// FailedTasks returns the names of tasks that reported an error.
func FailedTasks(results []TaskResult) []string {
	var failed []string
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r.Task)
		}
	}
	return failed
}
